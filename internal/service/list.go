package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/models"
)

// 清单变更动作
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Store 清单存储，PostgreSQL 仓库与旧版文件存储都实现该接口
type Store interface {
	GetByID(ctx context.Context, id int64) (*models.List, error)
	List(ctx context.Context) ([]*models.List, error)
	Create(ctx context.Context, in models.ListInput, now time.Time) (*models.List, error)
	Update(ctx context.Context, id int64, in models.ListInput, now time.Time) (*models.List, error)
	Delete(ctx context.Context, id int64) (bool, error)
	MaxID(ctx context.Context) (int64, error)
	DriverNames(ctx context.Context) ([]string, error)
	LicensePlates(ctx context.Context) ([]string, error)
}

// Notifier 清单变更通知（WebSocket Hub 实现）
type Notifier interface {
	ListsChanged(action string, id int64)
}

// ListRequest 创建/更新请求；nil 字段表示请求中未出现
type ListRequest struct {
	Items        *[]string
	DriverName   *string
	LicensePlate *string
}

// ListService 清单服务
type ListService struct {
	logger   *zap.Logger
	store    Store
	notifier Notifier
	now      func() time.Time
}

// Option 服务选项
type Option func(*ListService)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(s *ListService) { s.now = now }
}

// WithNotifier 设置变更通知
func WithNotifier(n Notifier) Option {
	return func(s *ListService) { s.notifier = n }
}

// NewListService 创建清单服务
func NewListService(logger *zap.Logger, store Store, opts ...Option) *ListService {
	s := &ListService{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get 获取单个清单
func (s *ListService) Get(ctx context.Context, id int64) (*models.List, error) {
	return s.store.GetByID(ctx, id)
}

// All 获取所有清单（最新创建的在前）
func (s *ListService) All(ctx context.Context) ([]*models.List, error) {
	return s.store.List(ctx)
}

// Create 创建清单，createdAt 与 updatedAt 相同
func (s *ListService) Create(ctx context.Context, req ListRequest) (*models.List, error) {
	in := normalize(req, nil)

	list, err := s.store.Create(ctx, in, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("List created",
		zap.Int64("list_id", list.ID),
		zap.Int("items", len(list.Items)),
	)
	s.notify(ActionCreated, list.ID)
	return list, nil
}

// Update 替换清单内容；未提供的字段保留原值，createdAt 不变
func (s *ListService) Update(ctx context.Context, id int64, req ListRequest) (*models.List, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 时钟回拨时保证 updatedAt 不倒退
	now := s.now()
	if now.Before(current.UpdatedAt) {
		now = current.UpdatedAt
	}

	list, err := s.store.Update(ctx, id, normalize(req, current), now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("List updated",
		zap.Int64("list_id", list.ID),
		zap.Int("items", len(list.Items)),
	)
	s.notify(ActionUpdated, list.ID)
	return list, nil
}

// Delete 删除清单，不存在时返回 models.ErrNotFound
func (s *ListService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("delete list %d: %w", id, models.ErrNotFound)
	}

	s.logger.Info("List deleted", zap.Int64("list_id", id))
	s.notify(ActionDeleted, id)
	return nil
}

// NextID 下一个清单 ID 的预估值（最大 ID + 1），不做预留
func (s *ListService) NextID(ctx context.Context) (int64, error) {
	id, err := s.store.MaxID(ctx)
	if err != nil {
		return 0, err
	}
	return id + 1, nil
}

// DriverNames 所有已知司机名
func (s *ListService) DriverNames(ctx context.Context) ([]string, error) {
	return s.store.DriverNames(ctx)
}

// LicensePlates 所有已知车牌号
func (s *ListService) LicensePlates(ctx context.Context) ([]string, error) {
	return s.store.LicensePlates(ctx)
}

func (s *ListService) notify(action string, id int64) {
	if s.notifier != nil {
		s.notifier.ListsChanged(action, id)
	}
}

// normalize 合并请求与当前值：条目去重，司机和车牌去除首尾空白
func normalize(req ListRequest, current *models.List) models.ListInput {
	var in models.ListInput
	if current != nil {
		in = models.ListInput{
			Items:        current.Items,
			DriverName:   current.DriverName,
			LicensePlate: current.LicensePlate,
		}
	}

	if req.Items != nil {
		in.Items = *req.Items
	}
	if req.DriverName != nil {
		in.DriverName = *req.DriverName
	}
	if req.LicensePlate != nil {
		in.LicensePlate = *req.LicensePlate
	}

	in.Items = models.DedupeItems(in.Items)
	in.DriverName = strings.TrimSpace(in.DriverName)
	in.LicensePlate = strings.TrimSpace(in.LicensePlate)
	return in
}
