// Package config handles configuration loading for folio.
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
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Classify  ClassifyConfig  `mapstructure:"classify"  yaml:"classify"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Refresh   RefreshConfig   `mapstructure:"refresh"   yaml:"refresh"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// ProvidersConfig holds market-data provider credentials. Each provider
// accepts multiple keys; the fetch client rotates through them.
type ProvidersConfig struct {
	FinnhubKeys []string `mapstructure:"finnhub_keys" yaml:"finnhub_keys"`
	TiingoKeys  []string `mapstructure:"tiingo_keys"  yaml:"tiingo_keys"`
}

// ClassifyConfig holds AI classification settings.
type ClassifyConfig struct {
	GeminiKey string `mapstructure:"gemini_key" yaml:"gemini_key"`
	Model     string `mapstructure:"model"      yaml:"model"`
}

// StorageConfig selects the durable cache backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "sqlite", "redis", "memory"

	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	RedisAddr     string `mapstructure:"redis_addr"     yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"       yaml:"redis_db"`
}

// RefreshConfig holds the live quote refresh schedule.
type RefreshConfig struct {
	QuoteIntervalSec int `mapstructure:"quote_interval_sec" yaml:"quote_interval_sec"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.folio/config.yaml (home directory)
//  3. /etc/folio/config.yaml (system)
//
// Environment variables override config file values.
// Format: FOLIO_<SECTION>_<KEY>, e.g., FOLIO_CLASSIFY_GEMINI_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".folio"))
	v.AddConfigPath("/etc/folio")

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
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
	v.SetEnvPrefix("FOLIO")
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
	v.SetDefault("classify.model", "gemini-2.0-flash")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", filepath.Join(homeDir(), ".folio", "cache.db"))
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_db", 0)

	v.SetDefault("refresh.quote_interval_sec", 15)

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment
// variables. Provider key lists are comma-separated.
func overrideFromEnv(cfg *Config) {
	if keys := os.Getenv("FOLIO_PROVIDERS_FINNHUB_KEYS"); keys != "" {
		cfg.Providers.FinnhubKeys = splitKeys(keys)
	}
	if keys := os.Getenv("FOLIO_PROVIDERS_TIINGO_KEYS"); keys != "" {
		cfg.Providers.TiingoKeys = splitKeys(keys)
	}
	if key := os.Getenv("FOLIO_CLASSIFY_GEMINI_KEY"); key != "" {
		cfg.Classify.GeminiKey = key
	}
	if pw := os.Getenv("FOLIO_STORAGE_REDIS_PASSWORD"); pw != "" {
		cfg.Storage.RedisPassword = pw
	}
}

// splitKeys parses a comma-separated credential list, dropping empties.
func splitKeys(s string) []string {
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
