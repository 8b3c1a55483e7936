package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"

	UploadStoreMemory = "memory"
	UploadStoreRedis  = "redis"

	monthFloorLayout = "2006-01-02"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatasetBackend    string `env:"DATASET_BACKEND" envDefault:"file"`
	DataDir           string `env:"DATA_DIR" envDefault:"data"`
	FirstSeenFile     string `env:"FIRST_SEEN_FILE" envDefault:"first_seen.json"`
	PostgresURL       string `env:"POSTGRES_URL"`
	MonthFloorRaw     string `env:"MONTH_FLOOR" envDefault:"2023-01-01"`
	SourceLabelPrefix string `env:"SOURCE_LABEL_PREFIX" envDefault:"root_"`

	HTTPServerAddr  string `env:"HTTP_SERVER_ADDR" envDefault:":8080"`
	AdminServerAddr string `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`

	UploadStore     string        `env:"UPLOAD_STORE" envDefault:"memory"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"redis://localhost:6379/0"`
	UploadTTL       time.Duration `env:"UPLOAD_TTL" envDefault:"30m"`
	MaxUploadSize   int64         `env:"MAX_UPLOAD_SIZE_BYTES" envDefault:"10485760"` // 10MB
	UploadRateLimit float64       `env:"UPLOAD_RATE_LIMIT" envDefault:"5"`
	UploadRateBurst int           `env:"UPLOAD_RATE_BURST" envDefault:"10"`

	monthFloor time.Time
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MonthFloor is the earliest month the cutoff index may start at.
func (c *Config) MonthFloor() time.Time {
	return c.monthFloor
}

func (c *Config) validate() error {
	floor, err := time.Parse(monthFloorLayout, c.MonthFloorRaw)
	if err != nil {
		return fmt.Errorf("invalid MONTH_FLOOR %q: %w", c.MonthFloorRaw, err)
	}
	c.monthFloor = floor

	switch c.DatasetBackend {
	case BackendFile:
		if c.DataDir == "" {
			return errors.New("DATA_DIR is required for the file backend")
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown DATASET_BACKEND %q", c.DatasetBackend)
	}

	switch c.UploadStore {
	case UploadStoreMemory, UploadStoreRedis:
	default:
		return fmt.Errorf("unknown UPLOAD_STORE %q", c.UploadStore)
	}

	if c.UploadTTL <= 0 {
		return errors.New("UPLOAD_TTL must be positive")
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("MAX_UPLOAD_SIZE_BYTES must be positive")
	}
	return nil
}
