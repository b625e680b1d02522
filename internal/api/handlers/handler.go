package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/api/middleware"
	"github.com/langchou/packlist/internal/models"
	"github.com/langchou/packlist/internal/service"
	"github.com/langchou/packlist/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger   *zap.Logger
	lists    *service.ListService
	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(logger *zap.Logger, lists *service.ListService, wsHub *ws.Hub) *Handler {
	return &Handler{
		logger: logger,
		lists:  lists,
		wsHub:  wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 前端可能部署在其他域名
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(MethodNotAllowed)

	api := r.Group("/api", middleware.NoCache())
	{
		// 清单资源
		api.Any("/lists", h.Lists)
		api.Any("/lists.php", h.Lists)

		// 自动补全
		api.GET("/drivers", h.Drivers)
		api.GET("/drivers.php", h.Drivers)
		api.GET("/license-plates", h.LicensePlates)
		api.GET("/license_plates.php", h.LicensePlates)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// MethodNotAllowed 405 响应
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}

// storageError 将服务层错误映射为状态码；存储错误只返回固定信息
func (h *Handler) storageError(c *gin.Context, msg string, err error, fields ...zap.Field) {
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	h.logger.Error(msg, append(fields,
		zap.Error(err),
		zap.String("request_id", middleware.RequestIDFrom(c)),
	)...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	if !client.Register() {
		conn.Close()
		return
	}

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
