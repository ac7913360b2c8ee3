package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when none is given on the command line.
const DefaultPath = "tonal.yaml"

// Cache backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all tonal configuration.
type Config struct {
	Listen     string           `yaml:"listen"`
	DBPath     string           `yaml:"db_path"`
	Provider   ProviderConfig   `yaml:"provider"`
	Generation GenerationConfig `yaml:"generation"`
	Cache      CacheConfig      `yaml:"cache"`
	CORS       CORSConfig       `yaml:"cors"`
	Log        LogConfig        `yaml:"log"`
	Tracking   TrackingConfig   `yaml:"tracking"`
}

// ProviderConfig defines the upstream chat-completion provider.
type ProviderConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// GenerationConfig controls sampling for the two generation passes.
type GenerationConfig struct {
	Temperature           float64 `yaml:"temperature"`
	MaxTokens             int     `yaml:"max_tokens"`
	SecondPassTemperature float64 `yaml:"second_pass_temperature"`
	// ConcisenessThreshold is the verbosity level at or below which an
	// over-long first result gets a second pass.
	ConcisenessThreshold float64 `yaml:"conciseness_threshold"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds the connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CORSConfig lists origins allowed to call the HTTP API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// TrackingConfig controls provider usage tracking.
type TrackingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":3001",
		DBPath: "tonal.db",
		Provider: ProviderConfig{
			Name:    "mistral",
			URL:     "https://api.mistral.ai",
			Model:   "mistral-small",
			Timeout: 30 * time.Second,
		},
		Generation: GenerationConfig{
			Temperature:           0.7,
			MaxTokens:             2000,
			SecondPassTemperature: 0.3,
			ConcisenessThreshold:  30,
		},
		Cache: CacheConfig{
			Backend:    BackendMemory,
			TTL:        2 * time.Hour,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "tonal:",
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracking: TrackingConfig{
			Enabled: true,
		},
	}
}

// Load reads a YAML config file, expands environment variables and applies
// environment overrides. A missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
		// defaults plus environment
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TONAL_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	} else if v := os.Getenv("MISTRAL_API_KEY"); v != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Listen = ":" + v
	}
	if v := os.Getenv("TONAL_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("invalid config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("invalid config: cache ttl must be positive, got %v", c.Cache.TTL)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("invalid config: cache max_entries must not be negative")
	}
	if c.Provider.URL == "" {
		return fmt.Errorf("invalid config: provider url is required")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("invalid config: provider timeout must be positive")
	}
	g := c.Generation
	if g.Temperature < 0 || g.Temperature > 2 || g.SecondPassTemperature < 0 || g.SecondPassTemperature > 2 {
		return fmt.Errorf("invalid config: temperatures must be within [0, 2]")
	}
	if g.MaxTokens <= 0 {
		return fmt.Errorf("invalid config: generation max_tokens must be positive")
	}
	if g.ConcisenessThreshold < 0 || g.ConcisenessThreshold > 100 {
		return fmt.Errorf("invalid config: conciseness_threshold must be within [0, 100]")
	}
	return nil
}
