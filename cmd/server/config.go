package main

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds server configuration loaded from the environment.
type Config struct {
	// Addr is the address the HTTP server listens on (e.g. :3000).
	Addr string `mapstructure:"ADDR"`
	// BaseURL is the externally visible URL, used to build OAuth callbacks.
	BaseURL string `mapstructure:"BASE_URL"`
	// DatabaseURL is the Postgres DSN. When empty the server falls back to
	// SQLitePath.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SQLitePath is the dev-mode SQLite file (default whisperwall.db).
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	// SessionTTL is the session lifetime (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// JWTSecretKey signs the auth token cookie. Required outside dev.
	JWTSecretKey string `mapstructure:"JWT_SECRET_KEY"`

	// OAuth client credentials. A provider with an empty client ID is not
	// mounted.
	GoogleClientID       string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `mapstructure:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `mapstructure:"FACEBOOK_CLIENT_SECRET"`

	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// SessionLifetime parses SessionTTL, falling back to 24h.
func (c *Config) SessionLifetime() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// LoadConfig reads .env (if present), then builds Config from the
// environment via Viper. Env vars override .env.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("ADDR", ":3000")
	v.SetDefault("BASE_URL", "http://localhost:3000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "whisperwall.db")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("APP_ENV", "development")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Env == "production" && cfg.JWTSecretKey == "" {
		return nil, errors.New("config: JWT_SECRET_KEY must be set in production")
	}
	if cfg.JWTSecretKey == "" {
		cfg.JWTSecretKey = "dev-only-insecure-secret"
	}
	return &cfg, nil
}
