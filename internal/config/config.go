package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// 存储后端
const (
	StoragePostgres = "postgres"
	StorageFile     = "file"
)

// Config 服务端配置
type Config struct {
	// Server
	ServerPort      string        `env:"PORT" env-default:"4000"`
	Debug           bool          `env:"DEBUG" env-default:"false"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"5s"`

	// Storage
	Storage     string `env:"STORAGE" env-default:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" env-default:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" env-default:"2"`

	// 旧版 JSON 文件存储路径
	DataFile string `env:"DATA_FILE" env-default:"data/lists.json"`
}

// ClientConfig 命令行客户端配置
type ClientConfig struct {
	ServerURL string        `env:"PACKLIST_SERVER" env-default:"http://localhost:4000"`
	Timeout   time.Duration `env:"PACKLIST_TIMEOUT" env-default:"10s"`
	Debug     bool          `env:"DEBUG" env-default:"false"`
}

// Load 加载服务端配置
func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres storage")
		}
	case StorageFile:
		if c.DataFile == "" {
			return errors.New("DATA_FILE is required for file storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// LoadClient 加载客户端配置
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	var cfg ClientConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if cfg.ServerURL == "" {
		return nil, errors.New("PACKLIST_SERVER is required")
	}
	return &cfg, nil
}

// MigrateConfig 旧数据导入配置，命令行参数可覆盖
type MigrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	DataFile    string `env:"DATA_FILE" env-default:"data/lists.json"`
	Debug       bool   `env:"DEBUG" env-default:"false"`
}

// LoadMigrate 加载导入配置；DATABASE_URL 可以稍后由参数提供，这里不校验
func LoadMigrate() (*MigrateConfig, error) {
	_ = godotenv.Load()

	var cfg MigrateConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return &cfg, nil
}
