package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port     string
	Env      string
	RedisURL string

	// TokenSecret keys the HMAC over issued identity tokens. Every process
	// in the cluster must share the same value.
	TokenSecret string
	// TokenTTL bounds how long an issued token record survives in the
	// shared store before the client must re-issue.
	TokenTTL time.Duration

	// AdminPassword gates the moderation endpoint.
	AdminPassword string

	// ResetCheckInterval is how often the reset coordinator re-evaluates
	// the calendar period.
	ResetCheckInterval time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present and fills in
// generated defaults. In production, it panics on missing required values.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		Env:                getEnv("ENV", "development"),
		RedisURL:           os.Getenv("REDIS_URL"),
		TokenSecret:        os.Getenv("TOKEN_SECRET"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", "admin1234"),
		TokenTTL:           getDuration("TOKEN_TTL", 24*time.Hour),
		ResetCheckInterval: getDuration("RESET_CHECK_INTERVAL", time.Hour),
	}

	if cfg.Env == "production" {
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.TokenSecret == "" {
			panic("TOKEN_SECRET is required in production")
		}
		if os.Getenv("ADMIN_PASSWORD") == "" {
			panic("ADMIN_PASSWORD is required in production")
		}
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://localhost:6379"
	}
	if cfg.TokenSecret == "" {
		// Dev-only: a random per-process secret. Tokens will not validate
		// across processes, which is fine for a single local server.
		cfg.TokenSecret = randomHex(32)
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
