// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/borjamrd/hormiwita/internal/common"
)

// Config is the resolved runtime configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Oracle  OracleConfig
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// StorageConfig selects and configures the session store backend.
type StorageConfig struct {
	Backend    string // memory, sqlite, redis
	SQLitePath string
	RedisAddr  string
	RedisTTL   time.Duration
}

// OracleConfig configures the oracle backend.
type OracleConfig struct {
	Provider       string // gemini, mock
	Model          string
	APIKey         string
	MaxRetries     int
	RateLimit      int
	Temperature    float64
	TextStatements bool // opt-in model interpretation of plain-text statements
}

// Load resolves configuration from viper (flags, config file, env).
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:           viper.GetString("server.addr"),
			AllowedOrigins: viper.GetStringSlice("server.allowed_origins"),
		},
		Storage: StorageConfig{
			Backend:    viper.GetString("storage.backend"),
			SQLitePath: ExpandPath(viper.GetString("storage.sqlite_path")),
			RedisAddr:  viper.GetString("storage.redis_addr"),
			RedisTTL:   viper.GetDuration("storage.redis_ttl"),
		},
		Oracle: OracleConfig{
			Provider:       viper.GetString("oracle.provider"),
			Model:          viper.GetString("oracle.model"),
			APIKey:         viper.GetString("oracle.api_key"),
			MaxRetries:     viper.GetInt("oracle.max_retries"),
			RateLimit:      viper.GetInt("oracle.rate_limit"),
			Temperature:    viper.GetFloat64("oracle.temperature"),
			TextStatements: viper.GetBool("oracle.text_statements"),
		},
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = ExpandPath("~/.local/share/hormiwita/sessions.db")
	}
	if cfg.Storage.Backend == "redis" && cfg.Storage.RedisAddr == "" {
		return nil, fmt.Errorf("%w: storage.redis_addr is required for the redis backend", common.ErrMissingConfig)
	}
	if cfg.Oracle.Provider == "" {
		cfg.Oracle.Provider = "gemini"
	}

	return cfg, nil
}
