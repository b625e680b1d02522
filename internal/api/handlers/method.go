package handlers

import (
	"net/http"
	"net/url"
	"strings"
)

// Method 列表资源支持的有效方法
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// MethodOverrideHeader 方法覆盖请求头
const MethodOverrideHeader = "X-HTTP-Method-Override"

// methodParam 方法覆盖参数名（body 或 query）
const methodParam = "_method"

// ResolveMethod 解析有效方法：body _method > query _method > X-HTTP-Method-Override > 原始方法。
// 不区分大小写；结果不在 GET/POST/PUT/PATCH/DELETE 中时返回 false。
func ResolveMethod(native string, query, body url.Values, header http.Header) (Method, bool) {
	m := native
	switch {
	case body.Get(methodParam) != "":
		m = body.Get(methodParam)
	case query.Get(methodParam) != "":
		m = query.Get(methodParam)
	case header.Get(MethodOverrideHeader) != "":
		m = header.Get(MethodOverrideHeader)
	}

	switch Method(strings.ToUpper(strings.TrimSpace(m))) {
	case MethodGet:
		return MethodGet, true
	case MethodPost:
		return MethodPost, true
	case MethodPut:
		return MethodPut, true
	case MethodPatch:
		return MethodPatch, true
	case MethodDelete:
		return MethodDelete, true
	}
	return "", false
}
