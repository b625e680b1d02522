// Package filestore 是旧版的文件存储后端：所有清单保存在一个 JSON 数组文件中，
// 每次写入都通过临时文件 + rename 原子替换。
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/langchou/packlist/internal/models"
)

// Store 文件存储
type Store struct {
	mu      sync.Mutex
	path    string
	seqPath string
}

// New 打开（必要时创建）数据文件
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := atomic.WriteFile(path, strings.NewReader("[]")); err != nil {
			return nil, fmt.Errorf("create data file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	return &Store{path: path, seqPath: path + ".seq"}, nil
}

// ReadFile 读取旧版 lists.json，允许注释和尾逗号
func ReadFile(path string) ([]*models.List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []*models.List{}, nil
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}

	lists := []*models.List{}
	if err := json.Unmarshal(standardized, &lists); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, l := range lists {
		if l.Items == nil {
			l.Items = []string{}
		}
	}
	return lists, nil
}

func (s *Store) load() ([]*models.List, error) {
	return ReadFile(s.path)
}

func (s *Store) save(lists []*models.List) error {
	data, err := json.MarshalIndent(lists, "", "    ")
	if err != nil {
		return fmt.Errorf("encode lists: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

// highWater 已分配过的最大 ID；旁路文件缺失时退回到现有最大 ID
func (s *Store) highWater(lists []*models.List) (int64, error) {
	var top int64
	for _, l := range lists {
		if l.ID > top {
			top = l.ID
		}
	}

	data, err := os.ReadFile(s.seqPath)
	if errors.Is(err, os.ErrNotExist) {
		return top, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read id sequence: %w", err)
	}
	seq, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id sequence: %w", err)
	}
	if seq > top {
		top = seq
	}
	return top, nil
}

func (s *Store) writeHighWater(id int64) error {
	if err := atomic.WriteFile(s.seqPath, strings.NewReader(strconv.FormatInt(id, 10))); err != nil {
		return fmt.Errorf("write id sequence: %w", err)
	}
	return nil
}

func find(lists []*models.List, id int64) int {
	for i, l := range lists {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func clone(l *models.List) *models.List {
	c := *l
	c.Items = append([]string{}, l.Items...)
	return &c
}

// GetByID 通过 ID 获取清单
func (s *Store) GetByID(ctx context.Context, id int64) (*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.load()
	if err != nil {
		return nil, err
	}
	i := find(lists, id)
	if i < 0 {
		return nil, fmt.Errorf("get list %d: %w", id, models.ErrNotFound)
	}
	return lists[i], nil
}

// List 获取所有清单，最新创建的在前
func (s *Store) List(ctx context.Context) ([]*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(lists, func(i, j int) bool {
		if !lists[i].CreatedAt.Equal(lists[j].CreatedAt) {
			return lists[i].CreatedAt.After(lists[j].CreatedAt)
		}
		return lists[i].ID > lists[j].ID
	})
	return lists, nil
}

// Create 追加一个清单，ID 为已分配的最大 ID + 1
func (s *Store) Create(ctx context.Context, in models.ListInput, now time.Time) (*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.load()
	if err != nil {
		return nil, err
	}
	high, err := s.highWater(lists)
	if err != nil {
		return nil, err
	}

	list := &models.List{
		ID:           high + 1,
		Items:        append([]string{}, in.Items...),
		DriverName:   in.DriverName,
		LicensePlate: in.LicensePlate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// 先推进序号：即使随后写入失败，也只是跳过一个 ID
	if err := s.writeHighWater(list.ID); err != nil {
		return nil, err
	}
	if err := s.save(append(lists, list)); err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	return clone(list), nil
}

// Update 替换清单的条目、司机和车牌
func (s *Store) Update(ctx context.Context, id int64, in models.ListInput, now time.Time) (*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.load()
	if err != nil {
		return nil, err
	}
	i := find(lists, id)
	if i < 0 {
		return nil, fmt.Errorf("update list %d: %w", id, models.ErrNotFound)
	}

	list := lists[i]
	list.Items = append([]string{}, in.Items...)
	list.DriverName = in.DriverName
	list.LicensePlate = in.LicensePlate
	list.UpdatedAt = now

	if err := s.save(lists); err != nil {
		return nil, fmt.Errorf("update list %d: %w", id, err)
	}
	return clone(list), nil
}

// Delete 删除清单，返回是否删除了记录
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.load()
	if err != nil {
		return false, err
	}
	i := find(lists, id)
	if i < 0 {
		return false, nil
	}

	high, err := s.highWater(lists)
	if err != nil {
		return false, err
	}
	if err := s.writeHighWater(high); err != nil {
		return false, err
	}

	if err := s.save(append(lists[:i], lists[i+1:]...)); err != nil {
		return false, fmt.Errorf("delete list %d: %w", id, err)
	}
	return true, nil
}

// MaxID 当前最大的清单 ID
func (s *Store) MaxID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.load()
	if err != nil {
		return 0, err
	}
	var top int64
	for _, l := range lists {
		if l.ID > top {
			top = l.ID
		}
	}
	return top, nil
}

// DriverNames 清单中出现过的司机名（去重、排序）
func (s *Store) DriverNames(ctx context.Context) ([]string, error) {
	return s.distinct(func(l *models.List) string { return l.DriverName })
}

// LicensePlates 清单中出现过的车牌号（去重、排序）
func (s *Store) LicensePlates(ctx context.Context) ([]string, error) {
	return s.distinct(func(l *models.List) string { return l.LicensePlate })
}

func (s *Store) distinct(field func(*models.List) string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.load()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := []string{}
	for _, l := range lists {
		v := field(l)
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
