// Package config loads reelcache configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SourceType identifies the metadata source backend
type SourceType string

const (
	SourceTypeTautulli SourceType = "tautulli"
	SourceTypePlex     SourceType = "plex"
)

// Config holds all application configuration
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig holds metadata source configuration
type SourceConfig struct {
	Type              SourceType    `mapstructure:"type"`                // "tautulli", "plex", or empty to detect
	URL               string        `mapstructure:"url"`                 // Server URL, scheme optional for tautulli
	APIKey            string        `mapstructure:"api_key"`             // Tautulli only
	Token             string        `mapstructure:"token"`               // Plex only
	Timeout           time.Duration `mapstructure:"timeout"`             // Per request
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 0 disables the limiter
}

// CacheConfig holds snapshot and refresh configuration
type CacheConfig struct {
	Path           string        `mapstructure:"path"`
	Backend        string        `mapstructure:"backend"` // "json" or "bolt"
	TTL            time.Duration `mapstructure:"ttl"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	BatchSize      int           `mapstructure:"batch_size"`
	BatchDelay     time.Duration `mapstructure:"batch_delay"`
	PageSize       int           `mapstructure:"page_size"`
	// RefreshInterval is how often watch checks staleness; 0 means TTL
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"` // "-" logs to stderr
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:    "",
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Path:           filepath.Join("cache", "media_cache.json"),
			Backend:        "json",
			TTL:            time.Hour,
			MaxConcurrency: 10,
			BatchSize:      20,
			BatchDelay:     200 * time.Millisecond,
			PageSize:       10000,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reelcache", "reelcache.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reelcache", "reelcache.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reelcache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "reelcache")
	}
}

// LoadConfig loads configuration from file and environment. An explicit
// path must exist; otherwise config.yaml is looked up in the default
// directories and its absence is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. REELCACHE_SOURCE_API_KEY
	v.SetEnvPrefix("REELCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("source.type", string(cfg.Source.Type))
	v.SetDefault("source.url", cfg.Source.URL)
	v.SetDefault("source.api_key", cfg.Source.APIKey)
	v.SetDefault("source.token", cfg.Source.Token)
	v.SetDefault("source.timeout", cfg.Source.Timeout)
	v.SetDefault("source.requests_per_second", cfg.Source.RequestsPerSecond)

	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.max_concurrency", cfg.Cache.MaxConcurrency)
	v.SetDefault("cache.batch_size", cfg.Cache.BatchSize)
	v.SetDefault("cache.batch_delay", cfg.Cache.BatchDelay)
	v.SetDefault("cache.page_size", cfg.Cache.PageSize)
	v.SetDefault("cache.refresh_interval", cfg.Cache.RefreshInterval)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Validate reports configuration that cannot produce a working cache
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return errors.New("source.url is required")
	}
	switch c.Source.Type {
	case "":
		if c.Source.APIKey == "" && c.Source.Token == "" {
			return errors.New("source.api_key or source.token is required")
		}
	case SourceTypeTautulli:
		if c.Source.APIKey == "" {
			return errors.New("source.api_key is required for tautulli")
		}
	case SourceTypePlex:
		if c.Source.Token == "" {
			return errors.New("source.token is required for plex")
		}
	default:
		return fmt.Errorf("unknown source type: %q", c.Source.Type)
	}
	if c.Cache.MaxConcurrency <= 0 {
		return errors.New("cache.max_concurrency must be positive")
	}
	if c.Cache.BatchSize <= 0 {
		return errors.New("cache.batch_size must be positive")
	}
	switch c.Cache.Backend {
	case "json", "bolt":
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}
	return nil
}

// WatchInterval returns the effective ticker period for periodic refresh
func (c *CacheConfig) WatchInterval() time.Duration {
	if c.RefreshInterval > 0 {
		return c.RefreshInterval
	}
	return c.TTL
}

// IsConfigured returns true if the source URL and a credential are set
func (c *Config) IsConfigured() bool {
	return c.Source.URL != "" && (c.Source.APIKey != "" || c.Source.Token != "")
}
