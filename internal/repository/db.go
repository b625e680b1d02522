package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// psql 使用 $1 占位符的 squirrel 构建器
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Querier 查询执行者（连接池或事务）
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool 连接池接口，*pgxpool.Pool 与 pgxmock 都满足
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// DB 数据库连接池封装
type DB struct {
	Pool Pool
}

// PoolOptions 连接池配置
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// New 创建数据库连接
func New(ctx context.Context, databaseURL string, opts PoolOptions) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// 测试连接
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// NewWithPool 使用已有连接池（测试中传入 pgxmock）
func NewWithPool(pool Pool) *DB {
	return &DB{Pool: pool}
}

// Close 关闭连接池
func (db *DB) Close() {
	db.Pool.Close()
}

// RunInTx 在单个事务中执行 fn：fn 返回错误或 panic 时回滚，否则提交
func (db *DB) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Migrate 执行数据库迁移
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateDrivers,
		migrationCreateLicensePlates,
		migrationCreateLists,
		migrationCreateListItems,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// 数据库迁移 SQL
const migrationCreateDrivers = `
CREATE TABLE IF NOT EXISTS drivers (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);
`

const migrationCreateLicensePlates = `
CREATE TABLE IF NOT EXISTS license_plates (
    id BIGSERIAL PRIMARY KEY,
    plate_number TEXT NOT NULL UNIQUE
);
`

const migrationCreateLists = `
CREATE TABLE IF NOT EXISTS lists (
    id BIGSERIAL PRIMARY KEY,
    driver_id BIGINT REFERENCES drivers(id),
    license_plate_id BIGINT REFERENCES license_plates(id),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_lists_created_at ON lists(created_at);
`

// 删除清单时级联删除条目
const migrationCreateListItems = `
CREATE TABLE IF NOT EXISTS list_items (
    id BIGSERIAL PRIMARY KEY,
    list_id BIGINT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
    item_text TEXT NOT NULL,
    sort_order INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_list_items_list_id ON list_items(list_id, sort_order);
`
