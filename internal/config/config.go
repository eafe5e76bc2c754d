// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used by the server and
// the migration CLI.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string
	Port     string
	Env      string // "development", "production", "testing"
	LogLevel string

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache and job locks)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// S3-compatible object storage holding uploaded assets
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3AssetsBucket string
	S3PublicURL    string

	// External search index
	SearchBaseURL      string
	SearchClientID     string
	SearchClientSecret string
	SearchIndexID      string

	// Scheduled publisher
	PublisherCron         string
	PublisherRetryLimit   int
	PublisherHeartbeatURL string
	JobLockTTL            time.Duration

	// Public base URL of the rendered site, used to build search result links.
	SiteBaseURL string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode or a value cannot be parsed.
func Load() (*Config, error) {
	cfg := &Config{
		Host:     envOrDefault("APP_HOST", "0.0.0.0"),
		Port:     envOrDefault("APP_PORT", "8080"),
		Env:      envOrDefault("APP_ENV", "development"),
		LogLevel: envOrDefault("LOG_LEVEL", "info"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "isomer"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "isomer"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3Region:       envOrDefault("S3_REGION", "ap-southeast-1"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3AssetsBucket: envOrDefault("S3_ASSETS_BUCKET", "isomer-assets"),
		S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),

		SearchBaseURL:      os.Getenv("SEARCH_BASE_URL"),
		SearchClientID:     os.Getenv("SEARCH_CLIENT_ID"),
		SearchClientSecret: os.Getenv("SEARCH_CLIENT_SECRET"),
		SearchIndexID:      os.Getenv("SEARCH_INDEX_ID"),

		PublisherCron:         envOrDefault("PUBLISHER_CRON", "* * * * *"),
		PublisherHeartbeatURL: os.Getenv("PUBLISHER_HEARTBEAT_URL"),

		SiteBaseURL: strings.TrimRight(envOrDefault("SITE_BASE_URL", "http://localhost:3000"), "/"),
	}

	var err error
	if cfg.PublisherRetryLimit, err = envInt("PUBLISHER_RETRY_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.PublisherRetryLimit < 0 {
		return nil, fmt.Errorf("PUBLISHER_RETRY_LIMIT must not be negative")
	}
	if cfg.JobLockTTL, err = envDuration("JOB_LOCK_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SearchEnabled reports whether every search index setting is present.
func (c *Config) SearchEnabled() bool {
	return c.SearchBaseURL != "" && c.SearchClientID != "" &&
		c.SearchClientSecret != "" && c.SearchIndexID != ""
}

// StorageEnabled reports whether S3 credentials are configured.
func (c *Config) StorageEnabled() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
