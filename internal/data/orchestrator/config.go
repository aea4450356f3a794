// File path: internal/data/orchestrator/config.go
package orchestrator

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

// Config controls the construction of the orchestrator and the pipeline it
// wires up.
type Config struct {
	Store store.Config

	QualityThreshold float64
	StageTimeout     time.Duration
}

// DefaultConfig returns the baseline configuration used when no overrides are
// supplied.
func DefaultConfig() Config {
	return Config{
		Store:            store.DefaultConfig(),
		QualityThreshold: 0.3,
		StageTimeout:     time.Minute,
	}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	storeCfg, err := store.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Store = storeCfg
	if value := strings.TrimSpace(os.Getenv("SOCRATES_QUALITY_THRESHOLD")); value != "" {
		threshold, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse SOCRATES_QUALITY_THRESHOLD: %w", err)
		}
		cfg.QualityThreshold = threshold
	}
	if value := strings.TrimSpace(os.Getenv("SOCRATES_STAGE_TIMEOUT")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse SOCRATES_STAGE_TIMEOUT: %w", err)
		}
		cfg.StageTimeout = dur
	}
	return applyDefaults(cfg), nil
}

func applyDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.QualityThreshold <= 0 || cfg.QualityThreshold >= 1 {
		cfg.QualityThreshold = defaults.QualityThreshold
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = defaults.StageTimeout
	}
	return cfg
}

func (c Config) validate() error {
	if c.QualityThreshold <= 0 || c.QualityThreshold >= 1 {
		return fmt.Errorf("quality threshold must be within (0, 1)")
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("stage timeout must be positive")
	}
	return nil
}
