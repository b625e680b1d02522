// migrate-json 将旧版 lists.json 导入 PostgreSQL
package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/packlist/internal/config"
	"github.com/langchou/packlist/internal/models"
	"github.com/langchou/packlist/internal/repository"
	"github.com/langchou/packlist/internal/repository/filestore"
)

// creator 导入目标（*repository.ListRepository 实现）
type creator interface {
	Create(ctx context.Context, in models.ListInput, now time.Time) (*models.List, error)
	Update(ctx context.Context, id int64, in models.ListInput, now time.Time) (*models.List, error)
}

// result 导入统计
type result struct {
	Imported int
	Failed   int
}

func main() {
	cfg, err := config.LoadMigrate()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("migrate-json", flag.ContinueOnError)
	file := fs.StringP("file", "f", cfg.DataFile, "Legacy lists.json to import")
	dsn := fs.String("database-url", cfg.DatabaseURL, "PostgreSQL connection URL")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "error: --database-url or DATABASE_URL is required")
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lists, err := filestore.ReadFile(*file)
	if err != nil {
		logger.Fatal("Failed to read legacy file", zap.String("file", *file), zap.Error(err))
	}

	db, err := repository.New(ctx, *dsn, repository.PoolOptions{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	drivers := repository.NewDriverRepository(db)
	plates := repository.NewLicensePlateRepository(db)
	dst := repository.NewListRepository(db, drivers, plates)

	res := migrate(ctx, lists, dst, os.Stdout, logger)
	fmt.Printf("Imported %d of %d lists (%d failed)\n", res.Imported, len(lists), res.Failed)

	if res.Failed > 0 {
		stop()
		db.Close()
		os.Exit(1)
	}
}

// migrate 按旧 ID 升序逐个导入，单个失败时记录并继续；每行输出 "旧 -> 新"
func migrate(ctx context.Context, lists []*models.List, dst creator, out io.Writer, logger *zap.Logger) result {
	ordered := slices.Clone(lists)
	slices.SortStableFunc(ordered, func(a, b *models.List) int {
		return cmp.Compare(a.ID, b.ID)
	})

	var res result
	for _, old := range ordered {
		if ctx.Err() != nil {
			logger.Warn("Import interrupted", zap.Int("remaining", len(ordered)-res.Imported-res.Failed))
			break
		}

		in := models.ListInput{
			Items:        models.DedupeItems(old.Items),
			DriverName:   strings.TrimSpace(old.DriverName),
			LicensePlate: strings.TrimSpace(old.LicensePlate),
		}
		stamp := old.CreatedAt
		if stamp.IsZero() {
			stamp = time.Now()
		}

		created, err := dst.Create(ctx, in, stamp)
		if err != nil {
			res.Failed++
			logger.Error("Failed to import list", zap.Int64("old_id", old.ID), zap.Error(err))
			fmt.Fprintf(out, "%d -> failed: %v\n", old.ID, err)
			continue
		}

		// 旧文件中修改时间晚于创建时间的，补写一次以保留 updatedAt
		if old.UpdatedAt.After(stamp) {
			if _, err := dst.Update(ctx, created.ID, in, old.UpdatedAt); err != nil {
				logger.Warn("Failed to keep updatedAt", zap.Int64("old_id", old.ID), zap.Int64("id", created.ID), zap.Error(err))
			}
		}

		res.Imported++
		fmt.Fprintf(out, "%d -> %d\n", old.ID, created.ID)
	}
	return res
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

var _ creator = (*repository.ListRepository)(nil)
