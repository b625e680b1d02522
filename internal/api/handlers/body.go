package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/langchou/packlist/internal/service"
)

// listBody 清单请求体：覆盖参数（_method、id）与清单字段
type listBody struct {
	params url.Values
	req    service.ListRequest
}

// parseListBody 解析 JSON 或表单请求体；无法解析的 JSON 视为空请求体
func parseListBody(c *gin.Context) (listBody, error) {
	body := listBody{params: url.Values{}}

	switch c.ContentType() {
	case gin.MIMEPOSTForm, gin.MIMEMultipartPOSTForm:
		return parseFormBody(c, body)
	}

	raw, err := c.GetRawData()
	if err != nil {
		return body, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return body, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return body, nil
	}

	if v, ok := fields[methodParam]; ok {
		body.params.Set(methodParam, scalarString(v))
	}
	if v, ok := fields["id"]; ok {
		body.params.Set("id", scalarString(v))
	}
	// null 与缺省相同：更新时保留原值
	if v, ok := present(fields, "items"); ok {
		items := stringItems(v)
		body.req.Items = &items
	}
	if v, ok := present(fields, "driverName"); ok {
		s := scalarString(v)
		body.req.DriverName = &s
	}
	if v, ok := present(fields, "licensePlate"); ok {
		s := scalarString(v)
		body.req.LicensePlate = &s
	}
	return body, nil
}

func parseFormBody(c *gin.Context, body listBody) (listBody, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && c.ContentType() == gin.MIMEMultipartPOSTForm {
		return body, fmt.Errorf("parse form: %w", err)
	}
	form := c.Request.PostForm

	for _, key := range []string{methodParam, "id"} {
		if v := form.Get(key); v != "" {
			body.params.Set(key, v)
		}
	}

	if vs, ok := form["items[]"]; ok {
		items := append([]string{}, vs...)
		body.req.Items = &items
	} else if vs, ok := form["items"]; ok {
		items := append([]string{}, vs...)
		body.req.Items = &items
	}
	if _, ok := form["driverName"]; ok {
		s := form.Get("driverName")
		body.req.DriverName = &s
	}
	if _, ok := form["licensePlate"]; ok {
		s := form.Get("licensePlate")
		body.req.LicensePlate = &s
	}
	return body, nil
}

// present 字段存在且不为 null
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := fields[key]
	if !ok || string(bytes.TrimSpace(v)) == "null" {
		return nil, false
	}
	return v, true
}

// scalarString 字符串或数字转为字符串，其他类型为空
func scalarString(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

// stringItems 非数组视为空列表，非字符串元素被丢弃
func stringItems(raw json.RawMessage) []string {
	items := []string{}
	var elems []any
	if err := json.Unmarshal(raw, &elems); err != nil {
		return items
	}
	for _, e := range elems {
		if s, ok := e.(string); ok {
			items = append(items, s)
		}
	}
	return items
}

// resourceID query 中的 id 优先于 body 中的 id
func resourceID(c *gin.Context, body listBody) (string, bool) {
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		return id, true
	}
	if id := strings.TrimSpace(body.params.Get("id")); id != "" {
		return id, true
	}
	return "", false
}

// parseID 非法 id 与不存在的 id 同样处理
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
