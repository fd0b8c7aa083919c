package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"

	"github.com/inamate/inamate/render-core/internal/surface"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

type Config struct {
	Port                 int    `envconfig:"PORT" default:"8080"`
	DatabaseURL          string `envconfig:"DATABASE_URL"`
	JWTSecret            string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	Operator             string `envconfig:"OPERATOR" default:"operator"`
	OperatorPasswordHash string `envconfig:"OPERATOR_PASSWORD_HASH"`
	AllowedOrigins       string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	TileSize             int    `envconfig:"TILE_SIZE" default:"512"`
	PoolCapacity         int    `envconfig:"POOL_CAPACITY" default:"32"`
	PoolPolicy           string `envconfig:"POOL_POLICY" default:"skipinuse"`
	LogLevel             string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TileSize <= 0 || c.TileSize > 4*tiles.TileSize {
		return fmt.Errorf("TILE_SIZE must be in 1..%d, got %d", 4*tiles.TileSize, c.TileSize)
	}
	if c.PoolCapacity <= 0 {
		return fmt.Errorf("POOL_CAPACITY must be positive, got %d", c.PoolCapacity)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Policy parses POOL_POLICY.
func (c *Config) Policy() (surface.Policy, error) {
	p, err := surface.ParsePolicy(c.PoolPolicy)
	if err != nil {
		return 0, fmt.Errorf("POOL_POLICY: %w", err)
	}
	return p, nil
}

// Level parses LOG_LEVEL.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}
