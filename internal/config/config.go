package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development" validate:"oneof=development production test"`

	DataDir           string  `envconfig:"DATA_DIR" default:"./data/sales" validate:"required"`
	SourceProfile     string  `envconfig:"SOURCE_PROFILE" default:"sales_extracts" validate:"oneof=sales_extracts pre_aggregated"`
	AggregationLevel  string  `envconfig:"AGGREGATION_LEVEL" default:"quarterly" validate:"oneof=monthly quarterly"`
	ChunkSize         int     `envconfig:"CHUNK_SIZE" default:"50000" validate:"min=1"`
	MinPeriods        int     `envconfig:"MIN_PERIODS" default:"4" validate:"min=3"`
	SignificanceLevel float64 `envconfig:"SIGNIFICANCE_LEVEL" default:"0.05" validate:"gt=0,lt=1"`
	SegmentColumn     string  `envconfig:"SEGMENT_COLUMN" default:"segment" validate:"required"`
	ValueColumn       string  `envconfig:"VALUE_COLUMN" default:"total_revenue" validate:"oneof=total_quantity total_revenue total_actual_revenue unique_products"`

	DBDriver          string        `envconfig:"DB_DRIVER" default:"sqlite3" validate:"required"`
	DBPath            string        `envconfig:"DB_PATH" default:"./data/trends.db" validate:"required"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"4" validate:"min=1"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2" validate:"min=0,ltefield=DBMaxOpenConns"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m" validate:"gte=0"`

	// RedisAddr set to the empty string disables the result cache.
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0" validate:"min=0,max=15"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"10m" validate:"gt=0"`

	GRPCPort              int           `envconfig:"GRPC_PORT" default:"50051" validate:"min=1,max=65535"`
	GRPCReflectionEnabled bool          `envconfig:"GRPC_REFLECTION_ENABLED" default:"false"`
	HTTPPort              int           `envconfig:"HTTP_PORT" default:"8080" validate:"min=1,max=65535,nefield=GRPCPort"`
	ShutdownTimeout       time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
}

// LoadFromEnv loads configuration from environment variables. Variables
// from the given dotenv files (".env" when none are named) fill in whatever
// the environment does not already set; missing files are ignored.
func LoadFromEnv(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
