package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/packlist/internal/models"
)

// LicensePlateRepository 车牌数据仓库
type LicensePlateRepository struct {
	db *DB
}

// NewLicensePlateRepository 创建车牌仓库
func NewLicensePlateRepository(db *DB) *LicensePlateRepository {
	return &LicensePlateRepository{db: db}
}

// FindOrCreate 按车牌号查找，不存在则创建；空白车牌返回 0
func (r *LicensePlateRepository) FindOrCreate(ctx context.Context, q Querier, plate string) (int64, error) {
	if strings.TrimSpace(plate) == "" {
		return 0, nil
	}
	if q == nil {
		q = r.db.Pool
	}

	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM license_plates WHERE plate_number = $1`, plate).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("find license plate: %w", err)
	}

	query := `
		INSERT INTO license_plates (plate_number) VALUES ($1)
		ON CONFLICT (plate_number) DO UPDATE SET plate_number = EXCLUDED.plate_number
		RETURNING id
	`
	if err := q.QueryRow(ctx, query, plate).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert license plate: %w", err)
	}
	return id, nil
}

// List 获取所有车牌
func (r *LicensePlateRepository) List(ctx context.Context) ([]models.LicensePlate, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, plate_number FROM license_plates ORDER BY plate_number`)
	if err != nil {
		return nil, fmt.Errorf("list license plates: %w", err)
	}
	defer rows.Close()

	plates := []models.LicensePlate{}
	for rows.Next() {
		var p models.LicensePlate
		if err := rows.Scan(&p.ID, &p.PlateNumber); err != nil {
			return nil, fmt.Errorf("scan license plate: %w", err)
		}
		plates = append(plates, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list license plates: %w", err)
	}
	return plates, nil
}

// ListNumbers 获取所有车牌号，按字母排序
func (r *LicensePlateRepository) ListNumbers(ctx context.Context) ([]string, error) {
	plates, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(plates))
	for _, p := range plates {
		numbers = append(numbers, p.PlateNumber)
	}
	return numbers, nil
}
