// packlist 命令行客户端：查看、打印、新建、编辑、删除清单
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/packlist/internal/config"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:         cfg,
		out:         os.Stdout,
		errOut:      os.Stderr,
		logger:      logger,
		draftPath:   defaultDraftPath(),
		newPrompter: newLinerPrompter,
	}
	code := a.run(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}

// initLogger 初始化日志；非调试模式只输出警告以上，避免干扰命令输出
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		config.Encoding = "console"
	}

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// defaultDraftPath 新建清单草稿文件
func defaultDraftPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "packlist-draft.json")
	}
	return filepath.Join(dir, "packlist", "draft.json")
}
