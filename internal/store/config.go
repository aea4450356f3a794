// File path: internal/store/config.go
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config controls the SQLite connection pool backing the store.
type Config struct {
	Path string `json:"path"`

	MaxOpenConns int `json:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns"`

	ConnMaxLifetime time.Duration `json:"-"`
	BusyTimeout     time.Duration `json:"-"`
}

// DefaultConfig returns the baseline store configuration.
func DefaultConfig() Config {
	return Config{
		Path:            filepath.Join("data", "socrates.db"),
		MaxOpenConns:    8,
		MaxIdleConns:    8,
		ConnMaxLifetime: 15 * time.Minute,
		BusyTimeout:     5 * time.Second,
	}
}

// LoadConfig builds a Config from defaults and SOCRATES_DB_* environment
// variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("SOCRATES_DB_PATH")); value != "" {
		cfg.Path = value
	}
	if value := strings.TrimSpace(os.Getenv("SOCRATES_DB_MAX_OPEN_CONNS")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse SOCRATES_DB_MAX_OPEN_CONNS: %w", err)
		}
		if parsed > 0 {
			cfg.MaxOpenConns = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("SOCRATES_DB_MAX_IDLE_CONNS")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse SOCRATES_DB_MAX_IDLE_CONNS: %w", err)
		}
		if parsed > 0 {
			cfg.MaxIdleConns = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("SOCRATES_DB_CONN_MAX_LIFETIME")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse SOCRATES_DB_CONN_MAX_LIFETIME: %w", err)
		}
		cfg.ConnMaxLifetime = dur
	}
	if value := strings.TrimSpace(os.Getenv("SOCRATES_DB_BUSY_TIMEOUT")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse SOCRATES_DB_BUSY_TIMEOUT: %w", err)
		}
		cfg.BusyTimeout = dur
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.Path) == "" {
		c.Path = defaults.Path
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = defaults.MaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = defaults.BusyTimeout
	}
}
