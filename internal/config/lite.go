// Package config loads server configuration. This file holds the
// configuration for standalone operation on SQLite.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/clindx-engine/internal/domain"
)

// LiteConfig configures the standalone server. It needs no external
// services besides the optional predictor.
type LiteConfig struct {
	// Data storage
	DataDir string

	// Cache settings
	CacheMaxItems int
	SummaryTTL    time.Duration

	// Predictor
	PredictorURL     string
	PredictorTimeout time.Duration

	// HTTP
	HTTPPort  int
	JWTSecret string

	// Logging
	LogLevel  string
	LogFormat string
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".clindx")

	return &LiteConfig{
		DataDir:          dataDir,
		CacheMaxItems:    1000,
		SummaryTTL:       30 * time.Second,
		PredictorURL:     "http://127.0.0.1:8000/predict",
		PredictorTimeout: 60 * time.Second,
		HTTPPort:         8080,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("CLINDX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("CLINDX_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("CLINDX_SUMMARY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SummaryTTL = d
		}
	}

	// An explicitly empty URL disables the predictor.
	if v, ok := os.LookupEnv("CLINDX_PREDICTOR_URL"); ok {
		cfg.PredictorURL = v
	}
	if v := os.Getenv("CLINDX_PREDICTOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PredictorTimeout = d
		}
	}

	if v := os.Getenv("CLINDX_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}
	cfg.JWTSecret = os.Getenv("CLINDX_JWT_SECRET")

	if v := os.Getenv("CLINDX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CLINDX_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// EvaluationsDBPath returns the path to the patients and evaluations database.
func (c *LiteConfig) EvaluationsDBPath() string {
	return filepath.Join(c.DataDir, "evaluations.db")
}

// AuditDBPath returns the path to the audit trail database.
func (c *LiteConfig) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// PredictorConfig converts the lite settings for the predictor client.
// The circuit breaker stays enabled with its default thresholds.
func (c *LiteConfig) PredictorConfig() domain.PredictorConfig {
	return domain.PredictorConfig{
		URL:            c.PredictorURL,
		Timeout:        c.PredictorTimeout,
		CircuitBreaker: domain.CircuitBreakerConfig{Enabled: true, FailureRatio: 0.6},
	}
}

// LoggingConfig converts the lite settings for the logger.
func (c *LiteConfig) LoggingConfig() domain.LoggingConfig {
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stdout"}
}
