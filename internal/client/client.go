// Package client 清单 API 的类型化 HTTP 客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/models"
)

// APIError 非 2xx 响应或网络错误；Status 为 0 表示请求未到达服务器
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	return fmt.Sprintf("API call failed: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound 是否为 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Payload 创建/更新请求体（更新时发送完整内容）
type Payload struct {
	ID           int64    `json:"id,omitempty"`
	Items        []string `json:"items"`
	DriverName   string   `json:"driverName"`
	LicensePlate string   `json:"licensePlate"`
}

// Client 清单 API 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 使用自定义 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout 设置请求超时；复制 http.Client，不修改调用方传入的实例
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New 创建客户端
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAllLists 获取所有清单
func (c *Client) GetAllLists(ctx context.Context) ([]*models.List, error) {
	var lists []*models.List
	if err := c.do(ctx, http.MethodGet, "/api/lists", nil, nil, nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// GetList 获取单个清单
func (c *Client) GetList(ctx context.Context, id int64) (*models.List, error) {
	var list models.List
	if err := c.do(ctx, http.MethodGet, "/api/lists", idQuery(id), nil, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateList 创建清单
func (c *Client) CreateList(ctx context.Context, p Payload) (*models.List, error) {
	var list models.List
	if err := c.do(ctx, http.MethodPost, "/api/lists", nil, nil, p, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UpdateList 先尝试 PUT；失败后改用 POST + _method=PUT + X-HTTP-Method-Override（兼容屏蔽 PUT 的代理）
func (c *Client) UpdateList(ctx context.Context, id int64, p Payload) (*models.List, error) {
	p.ID = id

	var list models.List
	err := c.do(ctx, http.MethodPut, "/api/lists", idQuery(id), nil, p, &list)
	if err == nil {
		return &list, nil
	}
	c.logger.Warn("PUT failed, retrying with method override", zap.Int64("list_id", id), zap.Error(err))

	query := idQuery(id)
	query.Set("_method", http.MethodPut)
	header := http.Header{"X-HTTP-Method-Override": {http.MethodPut}}

	list = models.List{}
	if err := c.do(ctx, http.MethodPost, "/api/lists", query, header, p, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteList 删除清单
func (c *Client) DeleteList(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/lists", idQuery(id), nil, nil, nil)
}

// GetNextListID 下一个清单 ID（仅供显示）
func (c *Client) GetNextListID(ctx context.Context) (int64, error) {
	var resp struct {
		NextID int64 `json:"nextId"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/lists", url.Values{"nextId": {"1"}}, nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.NextID, nil
}

// GetDrivers 所有司机名
func (c *Client) GetDrivers(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.do(ctx, http.MethodGet, "/api/drivers", nil, nil, nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// GetLicensePlates 所有车牌号
func (c *Client) GetLicensePlates(ctx context.Context) ([]string, error) {
	var plates []string
	if err := c.do(ctx, http.MethodGet, "/api/license-plates", nil, nil, nil, &plates); err != nil {
		return nil, err
	}
	return plates, nil
}

func idQuery(id int64) url.Values {
	return url.Values{"id": {strconv.FormatInt(id, 10)}}
}

// do 发送 JSON 请求；out 为 nil 时忽略响应体
func (c *Client) do(ctx context.Context, method, path string, query url.Values, header http.Header, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: "network error", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

// errorMessage 取响应中的 {"error": ...}，没有则用状态文本
func errorMessage(status int, data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return http.StatusText(status)
}
