package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/langchou/packlist/internal/models"
)

// ListRepository 清单数据仓库
type ListRepository struct {
	db      *DB
	drivers *DriverRepository
	plates  *LicensePlateRepository
}

// NewListRepository 创建清单仓库
func NewListRepository(db *DB, drivers *DriverRepository, plates *LicensePlateRepository) *ListRepository {
	return &ListRepository{db: db, drivers: drivers, plates: plates}
}

// listSelect 清单查询（司机、车牌为空时返回空字符串）
func listSelect() sq.SelectBuilder {
	return psql.Select(
		"l.id",
		"COALESCE(d.name, '')",
		"COALESCE(lp.plate_number, '')",
		"l.created_at",
		"l.updated_at",
	).
		From("lists l").
		LeftJoin("drivers d ON d.id = l.driver_id").
		LeftJoin("license_plates lp ON lp.id = l.license_plate_id")
}

// GetByID 通过 ID 获取清单，不存在时返回 models.ErrNotFound
func (r *ListRepository) GetByID(ctx context.Context, id int64) (*models.List, error) {
	query, args, err := listSelect().Where(sq.Eq{"l.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	list := &models.List{}
	err = r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&list.ID,
		&list.DriverName,
		&list.LicensePlate,
		&list.CreatedAt,
		&list.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get list %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get list by id: %w", err)
	}

	items, err := r.itemsByListIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	list.Items = items[id]
	if list.Items == nil {
		list.Items = []string{}
	}
	return list, nil
}

// List 获取所有清单，最新创建的在前
func (r *ListRepository) List(ctx context.Context) ([]*models.List, error) {
	query, args, err := listSelect().OrderBy("l.created_at DESC", "l.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	lists := []*models.List{}
	var ids []int64
	for rows.Next() {
		list := &models.List{}
		if err := rows.Scan(
			&list.ID,
			&list.DriverName,
			&list.LicensePlate,
			&list.CreatedAt,
			&list.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, list)
		ids = append(ids, list.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return lists, nil
	}

	items, err := r.itemsByListIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, list := range lists {
		list.Items = items[list.ID]
		if list.Items == nil {
			list.Items = []string{}
		}
	}
	return lists, nil
}

// itemsByListIDs 一次查询取出多个清单的条目，保持 sort_order 顺序
func (r *ListRepository) itemsByListIDs(ctx context.Context, ids []int64) (map[int64][]string, error) {
	query := `
		SELECT list_id, item_text FROM list_items
		WHERE list_id = ANY($1)
		ORDER BY list_id, sort_order, id
	`
	rows, err := r.db.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]string, len(ids))
	for rows.Next() {
		var item models.ListItem
		if err := rows.Scan(&item.ListID, &item.Text); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items[item.ListID] = append(items[item.ListID], item.Text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Create 在一个事务中创建清单及其条目，提交后重新读取
func (r *ListRepository) Create(ctx context.Context, in models.ListInput, now time.Time) (*models.List, error) {
	var id int64
	err := r.db.RunInTx(ctx, func(q Querier) error {
		driverID, err := r.drivers.FindOrCreate(ctx, q, in.DriverName)
		if err != nil {
			return err
		}
		plateID, err := r.plates.FindOrCreate(ctx, q, in.LicensePlate)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO lists (driver_id, license_plate_id, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			RETURNING id
		`
		if err := q.QueryRow(ctx, query, nullableID(driverID), nullableID(plateID), now).Scan(&id); err != nil {
			return fmt.Errorf("insert list: %w", err)
		}

		return insertItems(ctx, q, id, in.Items)
	})
	if err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Update 在一个事务中替换清单的司机、车牌和全部条目（先删后插）
func (r *ListRepository) Update(ctx context.Context, id int64, in models.ListInput, now time.Time) (*models.List, error) {
	err := r.db.RunInTx(ctx, func(q Querier) error {
		driverID, err := r.drivers.FindOrCreate(ctx, q, in.DriverName)
		if err != nil {
			return err
		}
		plateID, err := r.plates.FindOrCreate(ctx, q, in.LicensePlate)
		if err != nil {
			return err
		}

		query := `
			UPDATE lists SET driver_id = $1, license_plate_id = $2, updated_at = $3
			WHERE id = $4
		`
		tag, err := q.Exec(ctx, query, nullableID(driverID), nullableID(plateID), now, id)
		if err != nil {
			return fmt.Errorf("update list: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		if _, err := q.Exec(ctx, `DELETE FROM list_items WHERE list_id = $1`, id); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}

		return insertItems(ctx, q, id, in.Items)
	})
	if err != nil {
		return nil, fmt.Errorf("update list %d: %w", id, err)
	}

	return r.GetByID(ctx, id)
}

// Delete 删除清单，返回是否删除了记录
func (r *ListRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM lists WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete list: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MaxID 当前最大的清单 ID，没有清单时为 0
func (r *ListRepository) MaxID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM lists`).Scan(&id); err != nil {
		return 0, fmt.Errorf("max list id: %w", err)
	}
	return id, nil
}

// DriverNames 所有司机名（自动补全）
func (r *ListRepository) DriverNames(ctx context.Context) ([]string, error) {
	return r.drivers.ListNames(ctx)
}

// LicensePlates 所有车牌号（自动补全）
func (r *ListRepository) LicensePlates(ctx context.Context) ([]string, error) {
	return r.plates.ListNumbers(ctx)
}

// insertItems 批量插入条目，sort_order 为提交顺序
func insertItems(ctx context.Context, q Querier, listID int64, items []string) error {
	if len(items) == 0 {
		return nil
	}

	insert := psql.Insert("list_items").Columns("list_id", "item_text", "sort_order")
	for i, item := range items {
		insert = insert.Values(listID, item, i)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build items insert: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

// nullableID 0 表示无引用，写入 NULL
func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
