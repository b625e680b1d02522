package listview

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/langchou/packlist/internal/models"
)

const printWidth = 64

// TextExporter 纯文本打印版式：页眉（ID、司机、SPZ），条目，页脚（日期、签名）
type TextExporter struct {
	Out io.Writer
	// PageSize 每页条目数，0 表示不分页；分页之间输出换页符
	PageSize int
	Location *time.Location
}

// Export 实现 Exporter
func (e TextExporter) Export(_ context.Context, list *models.List) error {
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	pages := paginate(list.Items, e.PageSize)
	for i, items := range pages {
		if i > 0 {
			b.WriteString("\f")
		}
		writeHeader(&b, list)
		if i == 0 {
			b.WriteString("Items\n")
		} else {
			b.WriteString("Items (continued)\n")
		}
		b.WriteString(strings.Repeat("-", printWidth) + "\n")
		for _, item := range items {
			b.WriteString(item + "\n")
		}
		writeFooter(&b, list, loc)
	}

	if _, err := io.WriteString(e.Out, b.String()); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func writeHeader(b *strings.Builder, list *models.List) {
	fmt.Fprintf(b, "ID: %d\n", list.ID)
	driver := list.DriverName
	if driver == "" {
		driver = "-"
	}
	plate := list.LicensePlate
	if plate == "" {
		plate = "-"
	}
	// 司机占 2/3 宽度，SPZ 占 1/3
	fmt.Fprintf(b, "%-*s%s\n", printWidth*2/3, "Driver: "+driver, "SPZ: "+plate)
	b.WriteString(strings.Repeat("-", printWidth) + "\n")
}

func writeFooter(b *strings.Builder, list *models.List, loc *time.Location) {
	date := "Date: " + displayTime(list).In(loc).Format("02.01.2006")
	sig := "Signature: ____________________"
	pad := printWidth - len(date) - len(sig)
	if pad < 1 {
		pad = 1
	}
	fmt.Fprintf(b, "\n%s%s%s\n", date, strings.Repeat(" ", pad), sig)
}

// paginate 至少返回一页
func paginate(items []string, size int) [][]string {
	if size <= 0 || len(items) <= size {
		return [][]string{items}
	}
	var pages [][]string
	for len(items) > 0 {
		n := min(size, len(items))
		pages = append(pages, items[:n])
		items = items[n:]
	}
	return pages
}
