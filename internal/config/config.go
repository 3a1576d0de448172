// Package config reads tirgul's configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tirgul/tirgul/internal/store"
)

// Config holds all application configuration.
type Config struct {
	DB         DBConfig
	LogMode    string
	RedisAddr  string // empty disables the distributed key locker
	PolicyFile string // optional YAML overriding the difficulty policy
}

// DBConfig selects and bounds the database connection.
type DBConfig struct {
	Driver         string
	DatabaseURL    string // postgres DSN
	Path           string // sqlite file
	ConnectTimeout time.Duration
	MaxOpenConns   int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; it never overrides
// variables that are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		DB: DBConfig{
			Driver:         strings.ToLower(getEnv("TIRGUL_DB_DRIVER", store.DriverSQLite)),
			DatabaseURL:    getEnv("TIRGUL_DATABASE_URL", ""),
			Path:           getEnv("TIRGUL_DB", ""),
			ConnectTimeout: getEnvDuration("TIRGUL_DB_CONNECT_TIMEOUT", store.DefaultConnectTimeout),
			MaxOpenConns:   getEnvInt("TIRGUL_DB_MAX_OPEN_CONNS", 10),
		},
		LogMode:    getEnv("TIRGUL_LOG_MODE", "dev"),
		RedisAddr:  getEnv("TIRGUL_REDIS_ADDR", ""),
		PolicyFile: getEnv("TIRGUL_POLICY_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case store.DriverSQLite:
	case store.DriverPostgres:
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("TIRGUL_DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("TIRGUL_DB_DRIVER must be %q or %q, got %q", store.DriverSQLite, store.DriverPostgres, c.DB.Driver)
	}
	if c.DB.ConnectTimeout <= 0 {
		return fmt.Errorf("TIRGUL_DB_CONNECT_TIMEOUT must be > 0")
	}
	if c.DB.MaxOpenConns <= 0 {
		return fmt.Errorf("TIRGUL_DB_MAX_OPEN_CONNS must be > 0")
	}
	if c.LogMode != "dev" && c.LogMode != "prod" {
		return fmt.Errorf("TIRGUL_LOG_MODE must be dev or prod, got %q", c.LogMode)
	}
	return nil
}

// StoreOptions returns the options for store.Open. For sqlite an explicit
// path wins over TIRGUL_DB, which wins over the default data path.
func (c *Config) StoreOptions(path string) (store.Options, error) {
	opts := store.Options{
		Driver:         c.DB.Driver,
		DSN:            c.DB.DatabaseURL,
		ConnectTimeout: c.DB.ConnectTimeout,
		MaxOpenConns:   c.DB.MaxOpenConns,
	}
	if c.DB.Driver != store.DriverSQLite {
		return opts, nil
	}

	switch {
	case path != "":
	case c.DB.Path != "":
		path = c.DB.Path
	default:
		p, err := store.DefaultDBPath()
		if err != nil {
			return opts, err
		}
		path = p
	}
	if err := store.EnsureDir(path); err != nil {
		return opts, err
	}
	opts.DSN = path
	return opts, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
