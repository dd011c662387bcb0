package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Analytics AnalyticsConfig `koanf:"analytics"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// AnalyticsConfig carries the tunable thresholds of the detection
// engine. Everything else about the scoring formulas is fixed.
type AnalyticsConfig struct {
	ClusterThreshold int           `koanf:"cluster_threshold"`
	OverviewCacheTTL time.Duration `koanf:"overview_cache_ttl"`
	QueryTimeout     time.Duration `koanf:"query_timeout"`
	DefaultLimit     int           `koanf:"default_limit"`
	MaxLimit         int           `koanf:"max_limit"`
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB:          0,
			PoolSize:    10,
			DialTimeout: 5 * time.Second,
		},
		Analytics: AnalyticsConfig{
			ClusterThreshold: 70,
			OverviewCacheTTL: 5 * time.Minute,
			QueryTimeout:     5 * time.Second,
			DefaultLimit:     20,
			MaxLimit:         100,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	_ = k.Load(file.Provider(configPath), yaml.Parser())

	// Environment variables take highest precedence
	if err := k.Load(env.Provider("SPEAKUP_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "SPEAKUP_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects knob values the engine cannot operate with. This is
// a deployment mismatch, so it fails fast rather than degrading.
func (c *Config) Validate() error {
	if c.Analytics.ClusterThreshold < 1 || c.Analytics.ClusterThreshold > 100 {
		return fmt.Errorf("analytics.cluster_threshold must be within [1,100], got %d", c.Analytics.ClusterThreshold)
	}
	if c.Analytics.OverviewCacheTTL <= 0 {
		return fmt.Errorf("analytics.overview_cache_ttl must be positive")
	}
	if c.Analytics.QueryTimeout <= 0 {
		return fmt.Errorf("analytics.query_timeout must be positive")
	}
	if c.Analytics.DefaultLimit < 1 || c.Analytics.MaxLimit < c.Analytics.DefaultLimit {
		return fmt.Errorf("analytics limits misconfigured: default=%d max=%d",
			c.Analytics.DefaultLimit, c.Analytics.MaxLimit)
	}
	return nil
}

// ClampLimit folds a caller-supplied result count into the configured
// [1, MaxLimit] range, substituting the default for zero or negatives.
func (c *AnalyticsConfig) ClampLimit(limit int) int {
	if limit <= 0 {
		return c.DefaultLimit
	}
	if limit > c.MaxLimit {
		return c.MaxLimit
	}
	return limit
}
