package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/packlist/internal/api/handlers"
	"github.com/langchou/packlist/internal/api/middleware"
	"github.com/langchou/packlist/internal/config"
	"github.com/langchou/packlist/internal/repository"
	"github.com/langchou/packlist/internal/repository/filestore"
	"github.com/langchou/packlist/internal/service"
	"github.com/langchou/packlist/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting packlist server",
		zap.String("port", cfg.ServerPort),
		zap.String("storage", cfg.Storage),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 存储后端
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer closeStore()

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run(ctx)

	// 创建清单服务
	listService := service.NewListService(logger, store, service.WithNotifier(wsHub))

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	// 创建路由
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		metrics.Middleware(),
		middleware.Recovery(logger),
		middleware.CORS(),
	)

	// 注册路由
	handlers.NewHandler(logger, listService, wsHub).RegisterRoutes(router)
	router.GET("/metrics", metrics.Handler())

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	<-ctx.Done()
	logger.Info("Shutting down server...")

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openStore 按配置打开 PostgreSQL 或 JSON 文件存储
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Store, func(), error) {
	if cfg.Storage == config.StorageFile {
		store, err := filestore.New(cfg.DataFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using JSON file storage", zap.String("path", cfg.DataFile))
		return store, func() {}, nil
	}

	// 连接数据库
	db, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	// 执行数据库迁移
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("Database migrated successfully")

	drivers := repository.NewDriverRepository(db)
	plates := repository.NewLicensePlateRepository(db)
	return repository.NewListRepository(db, drivers, plates), db.Close, nil
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

var (
	_ service.Store    = (*repository.ListRepository)(nil)
	_ service.Store    = (*filestore.Store)(nil)
	_ service.Notifier = (*ws.Hub)(nil)
)
