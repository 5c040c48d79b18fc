// Package common provides shared utilities for jqfeed
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for jqfeed
type Config struct {
	Environment string        `toml:"environment"`
	Storage     StorageConfig `toml:"storage"`
	JQuants     JQuantsConfig `toml:"jquants"`
	Ingest      IngestConfig  `toml:"ingest"`
	Screen      ScreenConfig  `toml:"screen"`
	Logging     LoggingConfig `toml:"logging"`
}

// StorageConfig holds the SQLite database location.
type StorageConfig struct {
	Path string `toml:"path"`
}

// JQuantsConfig holds J-Quants API configuration.
// RefreshToken is the long-lived credential exchanged for an id token at startup.
type JQuantsConfig struct {
	BaseURL      string `toml:"base_url"`
	RefreshToken string `toml:"refresh_token"`
	RateLimit    int    `toml:"rate_limit"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the HTTP timeout duration
func (c *JQuantsConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// IngestConfig holds ingestion pipeline configuration.
// Lookback windows apply only when the corresponding archive table is empty.
type IngestConfig struct {
	MaxRetry              int `toml:"max_retry"`
	QuoteLookbackDays     int `toml:"quote_lookback_days"`
	FinancialLookbackDays int `toml:"financial_lookback_days"`
}

// ScreenConfig holds screening thresholds and score weights.
type ScreenConfig struct {
	MinVolume       float64 `toml:"min_volume"`
	MinROE          float64 `toml:"min_roe"`
	SalesRetention  float64 `toml:"sales_retention"`
	MinPER          float64 `toml:"min_per"`
	MaxPER          float64 `toml:"max_per"`
	ROEWeight       float64 `toml:"roe_weight"`
	GrowthWeight    float64 `toml:"growth_weight"`
	LiquidityWeight float64 `toml:"liquidity_weight"`
	Limit           int     `toml:"limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Path: "data/jquants.db",
		},
		JQuants: JQuantsConfig{
			BaseURL:   "https://api.jquants.com",
			RateLimit: 5,
			Timeout:   "30s",
		},
		Ingest: IngestConfig{
			MaxRetry:              3,
			QuoteLookbackDays:     365,
			FinancialLookbackDays: 730,
		},
		Screen: ScreenConfig{
			MinVolume:       10000,
			MinROE:          0.08,
			SalesRetention:  0.95,
			MinPER:          5,
			MaxPER:          40,
			ROEWeight:       0.5,
			GrowthWeight:    0.3,
			LiquidityWeight: 0.2,
			Limit:           50,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("JQFEED_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("JQFEED_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("JQFEED_DB_PATH"); path != "" {
		config.Storage.Path = path
	}

	if url := os.Getenv("JQFEED_BASE_URL"); url != "" {
		config.JQuants.BaseURL = url
	}

	if token := os.Getenv("JQUANTS_REFRESH_TOKEN"); token != "" {
		config.JQuants.RefreshToken = token
	}

	if v := os.Getenv("JQFEED_MAX_RETRY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Ingest.MaxRetry = n
		}
	}
}

// ValidateRequired returns the names of required settings that are missing.
// The refresh token is checked before any network activity so a misconfigured
// process fails at startup rather than mid-run.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if c.JQuants.RefreshToken == "" {
		missing = append(missing, "jquants.refresh_token (JQUANTS_REFRESH_TOKEN)")
	}
	if c.Storage.Path == "" {
		missing = append(missing, "storage.path")
	}
	return missing
}
