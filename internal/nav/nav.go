// Package nav 视图之间的导航目标
package nav

import "fmt"

// Page 页面
type Page int

const (
	Overview Page = iota // 清单总览
	View                 // 单个清单
	Edit                 // 编辑清单
)

func (p Page) String() string {
	switch p {
	case Overview:
		return "overview"
	case View:
		return "view"
	case Edit:
		return "edit"
	}
	return fmt.Sprintf("page(%d)", int(p))
}

// Destination 导航目标；Overview 不带 ID
type Destination struct {
	Page Page
	ID   int64
}

func (d Destination) String() string {
	if d.ID == 0 {
		return d.Page.String()
	}
	return fmt.Sprintf("%s(%d)", d.Page, d.ID)
}

// Navigator 执行导航
type Navigator interface {
	Navigate(dest Destination)
}
