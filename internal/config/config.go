// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Fetch   FetchConfig
	Update  UpdateConfig
	Logging LogConfig
}

// ServerConfig holds bridge server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"7420"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// DataDir is where scripts.json and dependencies.json live.
	// Empty means a platform data directory is chosen at startup.
	DataDir string `envconfig:"DATA_DIR" default:""`
	Watch   bool   `envconfig:"DATA_WATCH" default:"false"`
}

// FetchConfig holds remote fetcher configuration.
type FetchConfig struct {
	Timeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	MaxBytes  int64         `envconfig:"FETCH_MAX_BYTES" default:"10485760"`
	UserAgent string        `envconfig:"FETCH_USER_AGENT" default:"GeoGuessrDesktop/1.0"`
}

// UpdateConfig holds auto-update policy configuration.
type UpdateConfig struct {
	Interval     time.Duration `envconfig:"UPDATE_INTERVAL" default:"1h"`
	SuccessAge   time.Duration `envconfig:"UPDATE_SUCCESS_AGE" default:"24h"`
	ErrorBackoff time.Duration `envconfig:"UPDATE_ERROR_BACKOFF" default:"1h"`
	Enabled      bool          `envconfig:"UPDATE_ENABLED" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "7420",
			Host: "127.0.0.1",
		},
		Storage: StorageConfig{},
		Fetch: FetchConfig{
			Timeout:   30 * time.Second,
			MaxBytes:  10 << 20,
			UserAgent: "GeoGuessrDesktop/1.0",
		},
		Update: UpdateConfig{
			Interval:     time.Hour,
			SuccessAge:   24 * time.Hour,
			ErrorBackoff: time.Hour,
			Enabled:      true,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// ResolveDataDir returns the configured data directory, falling back to the
// per-user data dir, and ensures it exists.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.Storage.DataDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		dir = filepath.Join(base, "GeoGuessrDesktop")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	return dir, nil
}
