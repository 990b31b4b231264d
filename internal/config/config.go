// Package config handles configuration loading for EquityLens.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Data      DataConfig      `mapstructure:"data"      yaml:"data"`
	Valuation ValuationConfig `mapstructure:"valuation" yaml:"valuation"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Database  DatabaseConfig  `mapstructure:"database"  yaml:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// DataConfig holds market-data provider settings.
type DataConfig struct {
	FMPKey            string `mapstructure:"fmp_key"            yaml:"fmp_key"`   // financialmodelingprep API key (optional)
	CacheTTL          int    `mapstructure:"cache_ttl"          yaml:"cache_ttl"` // seconds
	ConcurrentFetches int    `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
	RatePerSecond     int    `mapstructure:"rate_per_second"    yaml:"rate_per_second"` // per-provider request budget
}

// ValuationConfig holds DCF engine presentation defaults. The scenario
// ladder itself is fixed policy; these only shape the default views.
type ValuationConfig struct {
	DefaultScenario  string `mapstructure:"default_scenario"  yaml:"default_scenario"` // "conservative", "base", "aggressive"
	SensitivitySteps int    `mapstructure:"sensitivity_steps" yaml:"sensitivity_steps"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// DatabaseConfig holds optional Postgres persistence settings. An empty URL
// disables the store entirely.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.equitylens/config.yaml (home directory)
//  3. /etc/equitylens/config.yaml (system)
//
// Environment variables override config file values.
// Format: EQUITYLENS_<SECTION>_<KEY>, e.g., EQUITYLENS_DATA_FMP_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".equitylens"))
	v.AddConfigPath("/etc/equitylens")

	v.SetEnvPrefix("EQUITYLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — defaults + env vars apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("EQUITYLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Data defaults
	v.SetDefault("data.cache_ttl", 300) // 5 minutes
	v.SetDefault("data.concurrent_fetches", 5)
	v.SetDefault("data.request_timeout_sec", 15)
	v.SetDefault("data.rate_per_second", 4)

	// Valuation defaults
	v.SetDefault("valuation.default_scenario", "base")
	v.SetDefault("valuation.sensitivity_steps", 7)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Database defaults (empty URL = persistence disabled)
	v.SetDefault("database.url", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("EQUITYLENS_DATA_FMP_KEY"); key != "" {
		cfg.Data.FMPKey = key
	}
	if url := os.Getenv("EQUITYLENS_DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
