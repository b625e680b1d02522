package listview

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/langchou/packlist/internal/models"
)

// SortKey 排序列
type SortKey string

const (
	KeyID        SortKey = "id"
	KeyDriver    SortKey = "driver"
	KeyPlate     SortKey = "plate"
	KeyItemCount SortKey = "itemCount"
	KeyCreatedAt SortKey = "createdAt"
)

// SortKeys 所有排序列
var SortKeys = []SortKey{KeyID, KeyDriver, KeyPlate, KeyItemCount, KeyCreatedAt}

// ParseSortKey 解析排序列名
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Direction 排序方向
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortState 当前排序
type SortState struct {
	Key SortKey
	Dir Direction
}

// InitialSort 默认按 ID 降序
func InitialSort() SortState {
	return SortState{Key: KeyID, Dir: Desc}
}

// defaultDirection id 默认降序，其他列默认升序
func defaultDirection(key SortKey) Direction {
	if key == KeyID {
		return Desc
	}
	return Asc
}

// Toggle 点击列头：同一列翻转方向，新列使用默认方向
func (s SortState) Toggle(key SortKey) SortState {
	if s.Key != key {
		return SortState{Key: key, Dir: defaultDirection(key)}
	}
	if s.Dir == Asc {
		return SortState{Key: key, Dir: Desc}
	}
	return SortState{Key: key, Dir: Asc}
}

// Sort 返回排序后的新切片（稳定排序），不修改 rows
func Sort(rows []*models.List, state SortState) []*models.List {
	out := append([]*models.List{}, rows...)
	cmp := compareBy(state.Key)
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if state.Dir == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compareBy(key SortKey) func(a, b *models.List) int {
	switch key {
	case KeyDriver:
		return func(a, b *models.List) int {
			return strings.Compare(strings.ToLower(a.DriverName), strings.ToLower(b.DriverName))
		}
	case KeyPlate:
		return func(a, b *models.List) int {
			return strings.Compare(strings.ToLower(a.LicensePlate), strings.ToLower(b.LicensePlate))
		}
	case KeyItemCount:
		return func(a, b *models.List) int {
			return compareInt(int64(a.ItemCount()), int64(b.ItemCount()))
		}
	case KeyCreatedAt:
		return func(a, b *models.List) int {
			return displayTime(a).Compare(displayTime(b))
		}
	}
	return func(a, b *models.List) int {
		return compareInt(a.ID, b.ID)
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// displayTime createdAt，缺失时使用 updatedAt
func displayTime(l *models.List) time.Time {
	if l.CreatedAt.IsZero() {
		return l.UpdatedAt
	}
	return l.CreatedAt
}
