// Package autocomplete 司机名与车牌号的自动补全缓存
package autocomplete

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxResults 每次最多返回的建议数
const MaxResults = 8

// Kind 补全数据类型
type Kind int

const (
	Drivers Kind = iota
	LicensePlates
)

func (k Kind) String() string {
	switch k {
	case Drivers:
		return "drivers"
	case LicensePlates:
		return "license_plates"
	}
	return "unknown"
}

// Source 补全数据来源（*client.Client 实现）
type Source interface {
	GetDrivers(ctx context.Context) ([]string, error)
	GetLicensePlates(ctx context.Context) ([]string, error)
}

// Cache 由调用方构造并持有的补全缓存
type Cache struct {
	src    Source
	logger *zap.Logger

	mu   sync.RWMutex
	data map[Kind][]string
}

// New 创建缓存，Load 之前 Get 返回空
func New(src Source, logger *zap.Logger) *Cache {
	return &Cache{
		src:    src,
		logger: logger,
		data:   make(map[Kind][]string),
	}
}

// Load 并发获取司机与车牌；某一类失败时记录日志并保持为空，不影响另一类
func (c *Cache) Load(ctx context.Context) {
	var g errgroup.Group

	fetchers := map[Kind]func(context.Context) ([]string, error){
		Drivers:       c.src.GetDrivers,
		LicensePlates: c.src.GetLicensePlates,
	}
	for kind, fetch := range fetchers {
		kind, fetch := kind, fetch
		g.Go(func() error {
			values, err := fetch(ctx)
			if err != nil {
				c.logger.Warn("Failed to load autocomplete data", zap.Stringer("kind", kind), zap.Error(err))
				values = nil
			}
			c.mu.Lock()
			c.data[kind] = values
			c.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

// Get 返回缓存数据的副本
func (c *Cache) Get(kind Kind) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string{}, c.data[kind]...)
}

// Suggest 按 query 过滤 kind 的缓存数据
func (c *Cache) Suggest(kind Kind, query string) []string {
	return Suggest(query, c.Get(kind))
}

// Suggest 不区分大小写的子串匹配，保持原顺序，最多 MaxResults 个；空 query 返回前 MaxResults 个
func Suggest(query string, candidates []string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []string{}
	for _, cand := range candidates {
		if len(out) == MaxResults {
			break
		}
		if q == "" || strings.Contains(strings.ToLower(cand), q) {
			out = append(out, cand)
		}
	}
	return out
}
