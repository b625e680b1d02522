package models

import (
	"errors"
	"time"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("not found")

// Driver 司机
type Driver struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// LicensePlate 车牌
type LicensePlate struct {
	ID          int64  `json:"id" db:"id"`
	PlateNumber string `json:"plate_number" db:"plate_number"`
}

// List 装货清单（运输单据）
type List struct {
	ID           int64     `json:"id"`
	Items        []string  `json:"items"`
	DriverName   string    `json:"driverName"`
	LicensePlate string    `json:"licensePlate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ItemCount 清单条目数
func (l *List) ItemCount() int {
	return len(l.Items)
}

// ListItem 清单条目，sort_order 决定读取顺序
type ListItem struct {
	ID        int64  `json:"id" db:"id"`
	ListID    int64  `json:"list_id" db:"list_id"`
	Text      string `json:"item_text" db:"item_text"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
}

// ListInput 写入清单时的完整内容
type ListInput struct {
	Items        []string
	DriverName   string
	LicensePlate string
}

// DedupeItems 去重（区分大小写），保留首次出现的顺序
func DedupeItems(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
