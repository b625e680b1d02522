package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// DraftStore 新建清单的未保存条目
type DraftStore interface {
	Load() ([]string, error)
	Save(items []string) error
	Clear() error
}

// FileDrafts 保存在 JSON 文件中的草稿，原子写入
type FileDrafts struct {
	Path string
}

// Load 文件不存在或内容无效时返回空列表
func (d FileDrafts) Load() ([]string, error) {
	data, err := os.ReadFile(d.Path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return []string{}, fmt.Errorf("read draft: %w", err)
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return []string{}, nil
	}
	return items, nil
}

// Save 写入草稿
func (d FileDrafts) Save(items []string) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.Path), 0o755); err != nil {
		return fmt.Errorf("create draft dir: %w", err)
	}
	if err := atomic.WriteFile(d.Path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	return nil
}

// Clear 删除草稿
func (d FileDrafts) Clear() error {
	if err := os.Remove(d.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove draft: %w", err)
	}
	return nil
}
