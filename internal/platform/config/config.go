// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (cache manager, stores) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends accepted by CACHE_BACKEND and STATE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// # Configuration Schema

// Config holds all runtime configuration for the cardbinder server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Offline cache partitions storage: postgres, sqlite or memory.
	CacheBackend string `env:"CACHE_BACKEND" envDefault:"sqlite"`
	SQLitePath   string `env:"SQLITE_PATH"   envDefault:"./data/offline.db"`

	// Relational Database (PostgreSQL), required when CACHE_BACKEND=postgres.
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./migrations"`

	// Collection, filter and usage slots: redis or memory.
	StateBackend string `env:"STATE_BACKEND" envDefault:"redis"`
	RedisURL     string `env:"REDIS_URL"     envDefault:"redis://localhost:6379/0"`

	// Upstream origins
	AppOrigin     string `env:"APP_ORIGIN"     envDefault:"http://localhost:5173"`
	DatasetOrigin string `env:"DATASET_ORIGIN" envDefault:"http://localhost:5173"`
	AssetBaseURL  string `env:"ASSET_BASE_URL" envDefault:"https://en.onepiece-cardgame.com/"`
	ImageDomain   string `env:"IMAGE_DOMAIN"   envDefault:"onepiece-cardgame.com"`

	// Dataset loading
	Sets         []string `env:"SETS" envSeparator:","`
	BatchSize    int      `env:"BATCH_SIZE"    envDefault:"6"`
	WatchDataset bool     `env:"WATCH_DATASET" envDefault:"false"`

	// Cache and persistence timing
	ImageFetchTimeout time.Duration `env:"IMAGE_FETCH_TIMEOUT" envDefault:"8s"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL"      envDefault:"1h"`
	PersistInterval   time.Duration `env:"PERSIST_INTERVAL"    envDefault:"100ms"`

	// Idle prefetch pacing, in set files per second. Zero disables prefetch.
	PrefetchRPS float64 `env:"PREFETCH_RPS" envDefault:"0.5"`

	// Tracing (OTLP/HTTP). Empty disables tracing.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints the struct tags cannot express.
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when CACHE_BACKEND=%s", BackendPostgres)
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("config: SQLITE_PATH is required when CACHE_BACKEND=%s", BackendSQLite)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	switch c.StateBackend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("config: unknown STATE_BACKEND %q", c.StateBackend)
	}

	for name, raw := range map[string]string{
		"APP_ORIGIN":     c.AppOrigin,
		"DATASET_ORIGIN": c.DatasetOrigin,
		"ASSET_BASE_URL": c.AssetBaseURL,
	} {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" {
			return fmt.Errorf("config: %s must be an absolute URL, got %q", name, raw)
		}
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("config: BATCH_SIZE must be positive, got %d", c.BatchSize)
	}

	if c.PersistInterval <= 0 || c.SweepInterval <= 0 || c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("config: PERSIST_INTERVAL, SWEEP_INTERVAL and IMAGE_FETCH_TIMEOUT must be positive")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DatasetIsLocal reports whether set files are read from a local directory.
func (c *Config) DatasetIsLocal() bool {
	return strings.HasPrefix(c.DatasetOrigin, "file://")
}

// AllowedOrigins returns the extra CORS origins as a trimmed list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
