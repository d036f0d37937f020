// Package config loads application configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	AI        AIConfig
	Sandbox   SandboxConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// StorageConfig holds database and cache configuration. Empty values
// degrade gracefully: no Mongo URI means in-memory persistence, no Redis
// URL means no read cache.
type StorageConfig struct {
	MongoURI string `envconfig:"MONGO_URI" default:""`
	Database string `envconfig:"MONGO_DATABASE" default:"codecraft"`
	RedisURL string `envconfig:"REDIS_URL" default:""`
}

// AIConfig holds model provider configuration.
type AIConfig struct {
	APIKey  string `envconfig:"OPENROUTER_API_KEY" default:""`
	BaseURL string `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	Model   string `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
}

// SandboxConfig holds preflight sandbox configuration.
type SandboxConfig struct {
	PoolSize       int    `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
	TimeoutSeconds int    `envconfig:"SANDBOX_TIMEOUT_SECONDS" default:"5"`
	AssetCacheDir  string `envconfig:"ASSET_CACHE_DIR" default:"/tmp/codecraft-assets"`
	Enabled        bool   `envconfig:"SANDBOX_ENABLED" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Storage: StorageConfig{
			Database: "codecraft",
		},
		AI: AIConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "gpt-4o-mini",
		},
		Sandbox: SandboxConfig{
			PoolSize:       4,
			TimeoutSeconds: 5,
			AssetCacheDir:  "/tmp/codecraft-assets",
			Enabled:        true,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
