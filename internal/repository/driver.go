package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/packlist/internal/models"
)

// DriverRepository 司机数据仓库
type DriverRepository struct {
	db *DB
}

// NewDriverRepository 创建司机仓库
func NewDriverRepository(db *DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// FindOrCreate 按名字查找司机，不存在则创建。
// 空白名字返回 0（表示无引用），不会插入任何行。
// q 为 nil 时使用连接池，在事务中调用时传入事务。
func (r *DriverRepository) FindOrCreate(ctx context.Context, q Querier, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, nil
	}
	if q == nil {
		q = r.db.Pool
	}

	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM drivers WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("find driver: %w", err)
	}

	// 并发首次使用同一名字时，ON CONFLICT 保证只有一行
	query := `
		INSERT INTO drivers (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	if err := q.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert driver: %w", err)
	}
	return id, nil
}

// List 获取所有司机，按名字排序
func (r *DriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, name FROM drivers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	drivers := []models.Driver{}
	for rows.Next() {
		var d models.Driver
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		drivers = append(drivers, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	return drivers, nil
}

// ListNames 获取所有司机名字，按字母排序
func (r *DriverRepository) ListNames(ctx context.Context) ([]string, error) {
	drivers, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(drivers))
	for _, d := range drivers {
		names = append(names, d.Name)
	}
	return names, nil
}
