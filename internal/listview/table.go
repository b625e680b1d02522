// Package listview 清单总览表：获取、排序、渲染行、导出
package listview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/models"
	"github.com/langchou/packlist/internal/nav"
)

// Source 清单数据来源（*client.Client 实现）
type Source interface {
	GetAllLists(ctx context.Context) ([]*models.List, error)
	GetList(ctx context.Context, id int64) (*models.List, error)
}

// Exporter 导出单个清单（打印/PDF）
type Exporter interface {
	Export(ctx context.Context, list *models.List) error
}

// Row 渲染后的一行
type Row struct {
	ID        int64
	Driver    string
	Plate     string
	ItemCount int
	Date      string
}

// Table 清单总览表
type Table struct {
	src      Source
	exporter Exporter
	logger   *zap.Logger
	loc      *time.Location

	mu    sync.Mutex
	lists []*models.List
	sort  SortState
}

// NewTable 创建总览表，初始排序为 ID 降序
func NewTable(src Source, exporter Exporter, logger *zap.Logger) *Table {
	return &Table{
		src:      src,
		exporter: exporter,
		logger:   logger,
		loc:      time.Local,
		sort:     InitialSort(),
	}
}

// SetLocation 设置日期显示时区
func (t *Table) SetLocation(loc *time.Location) {
	t.mu.Lock()
	t.loc = loc
	t.mu.Unlock()
}

// Refresh 重新获取所有清单
func (t *Table) Refresh(ctx context.Context) error {
	lists, err := t.src.GetAllLists(ctx)
	if err != nil {
		return fmt.Errorf("load lists: %w", err)
	}

	t.mu.Lock()
	t.lists = lists
	t.mu.Unlock()
	t.logger.Debug("Lists refreshed", zap.Int("count", len(lists)))
	return nil
}

// OnVisibilityChange 重新可见时刷新
func (t *Table) OnVisibilityChange(ctx context.Context, hidden bool) error {
	if hidden {
		return nil
	}
	return t.Refresh(ctx)
}

// OnPageShow 从历史缓存恢复时刷新
func (t *Table) OnPageShow(ctx context.Context, persisted bool) error {
	if !persisted {
		return nil
	}
	return t.Refresh(ctx)
}

// SortState 当前排序
func (t *Table) SortState() SortState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sort
}

// SetSort 直接设置排序
func (t *Table) SetSort(s SortState) {
	t.mu.Lock()
	t.sort = s
	t.mu.Unlock()
}

// ToggleSort 点击列头
func (t *Table) ToggleSort(key SortKey) SortState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sort = t.sort.Toggle(key)
	return t.sort
}

// Rows 按当前排序渲染的行；没有清单时为空
func (t *Table) Rows() []Row {
	t.mu.Lock()
	lists, state, loc := t.lists, t.sort, t.loc
	t.mu.Unlock()

	sorted := Sort(lists, state)
	rows := make([]Row, 0, len(sorted))
	for _, l := range sorted {
		rows = append(rows, Row{
			ID:        l.ID,
			Driver:    l.DriverName,
			Plate:     l.LicensePlate,
			ItemCount: l.ItemCount(),
			Date:      displayTime(l).In(loc).Format("02.01.2006 15:04"),
		})
	}
	return rows
}

// Export 获取单个清单并交给导出器
func (t *Table) Export(ctx context.Context, id int64) error {
	list, err := t.src.GetList(ctx, id)
	if err != nil {
		return fmt.Errorf("export list %d: %w", id, err)
	}
	if err := t.exporter.Export(ctx, list); err != nil {
		return fmt.Errorf("export list %d: %w", id, err)
	}
	return nil
}

// EditTarget 行的编辑入口
func (t *Table) EditTarget(id int64) nav.Destination {
	return nav.Destination{Page: nav.Edit, ID: id}
}
