package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends for the cache KV.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Provider types.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all quill configuration.
type Config struct {
	Listen    string           `yaml:"listen"`
	Log       LogConfig        `yaml:"log"`
	Tracing   TracingConfig    `yaml:"tracing"`
	Features  FeaturesConfig   `yaml:"features"`
	Limits    LimitsConfig     `yaml:"limits"`
	Storage   StorageConfig    `yaml:"storage"`
	Providers []ProviderConfig `yaml:"providers"`
	// Chain optionally orders providers by name. Empty means declaration order.
	Chain []string `yaml:"chain"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// TracingConfig selects the span exporter: "none" or "stdout".
type TracingConfig struct {
	Exporter string `yaml:"exporter"`
}

// FeaturesConfig toggles optional behaviour.
type FeaturesConfig struct {
	EnableCaching  bool `yaml:"enable_caching"`
	EnableFallback bool `yaml:"enable_fallback"`
	EnableUsage    bool `yaml:"enable_usage"`
}

// LimitsConfig bounds cache size, input size and upstream latency.
type LimitsConfig struct {
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	MaxCacheEntries int           `yaml:"max_cache_entries"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MinInputLength  int           `yaml:"min_input_length"`
	MaxInputLength  int           `yaml:"max_input_length"`
	// UsageRetention drops usage records older than this. Zero keeps them forever.
	UsageRetention time.Duration `yaml:"usage_retention"`
}

// StorageConfig selects the persistent KV behind the cache.
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	DBPath    string `yaml:"db_path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	Namespace string `yaml:"namespace"`
}

// ProviderConfig defines an upstream text-generation provider.
// Type is "openai" (default) or "anthropic".
type ProviderConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled reports whether the provider takes part in the chain.
// Providers are enabled unless explicitly disabled.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8787",
		Log: LogConfig{
			Level: "info",
		},
		Tracing: TracingConfig{
			Exporter: "none",
		},
		Features: FeaturesConfig{
			EnableCaching:  true,
			EnableFallback: true,
			EnableUsage:    true,
		},
		Limits: LimitsConfig{
			CacheTTL:        time.Hour,
			MaxCacheEntries: 100,
			ProviderTimeout: 10 * time.Second,
			RequestTimeout:  60 * time.Second,
			MinInputLength:  10,
			MaxInputLength:  12000,
			UsageRetention:  30 * 24 * time.Hour,
		},
		Storage: StorageConfig{
			Backend:   BackendSQLite,
			DBPath:    "quill.db",
			RedisAddr: "127.0.0.1:6379",
			Namespace: "quill",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks limits, storage backend and provider definitions.
func (c *Config) Validate() error {
	var errs []error

	if c.Limits.CacheTTL < 0 {
		errs = append(errs, errors.New("limits.cache_ttl must not be negative"))
	}
	if c.Limits.MaxCacheEntries < 0 {
		errs = append(errs, errors.New("limits.max_cache_entries must not be negative"))
	}
	if c.Limits.ProviderTimeout < 0 {
		errs = append(errs, errors.New("limits.provider_timeout must not be negative"))
	}
	if c.Limits.UsageRetention < 0 {
		errs = append(errs, errors.New("limits.usage_retention must not be negative"))
	}
	if c.Limits.MinInputLength < 0 || c.Limits.MaxInputLength < 0 {
		errs = append(errs, errors.New("limits input lengths must not be negative"))
	}
	if c.Limits.MaxInputLength > 0 && c.Limits.MaxInputLength < c.Limits.MinInputLength {
		errs = append(errs, errors.New("limits.max_input_length must be at least min_input_length"))
	}

	switch c.Storage.Backend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of sqlite, redis, memory", c.Storage.Backend))
	}

	switch c.Tracing.Exporter {
	case "", "none", "stdout":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter %q is not one of none, stdout", c.Tracing.Exporter))
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: name is required", i))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true
		switch p.Type {
		case "", ProviderOpenAI, ProviderAnthropic:
		default:
			errs = append(errs, fmt.Errorf("providers[%d]: unknown type %q", i, p.Type))
		}
	}

	return errors.Join(errs...)
}
