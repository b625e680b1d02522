package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/langchou/packlist/pkg/ws"
)

// Watch 订阅 /ws，对每条消息调用 fn，直到 ctx 取消或连接断开。ctx 取消时返回 nil。
func (c *Client) Watch(ctx context.Context, fn func(ws.Message)) error {
	target := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return &APIError{Message: "websocket dial", Err: err}
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		conn.Close()
	}()

	for {
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return nil
			}
			return fmt.Errorf("read websocket: %w", err)
		}
		fn(msg)
	}
}
