package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "REDIS_URL", "TOKEN_SECRET",
		"ADMIN_PASSWORD", "TOKEN_TTL", "RESET_CHECK_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.RedisURL != "redis://localhost:6379" {
		t.Errorf("RedisURL = %q, want local default", cfg.RedisURL)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL)
	}
	if cfg.ResetCheckInterval != time.Hour {
		t.Errorf("ResetCheckInterval = %v, want 1h", cfg.ResetCheckInterval)
	}
	if cfg.AdminPassword != "admin1234" {
		t.Errorf("AdminPassword = %q, want dev default", cfg.AdminPassword)
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}
}

func TestLoadDevGeneratesSecret(t *testing.T) {
	clearEnv(t)

	a := Load()
	b := Load()

	if a.TokenSecret == "" {
		t.Fatal("TokenSecret empty in development")
	}
	if len(a.TokenSecret) != 64 {
		t.Errorf("len(TokenSecret) = %d, want 64 hex chars", len(a.TokenSecret))
	}
	if a.TokenSecret == b.TokenSecret {
		t.Error("generated secrets are not unique per load")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("REDIS_URL", "redis://example:6380/2")
	t.Setenv("TOKEN_SECRET", "secret")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("RESET_CHECK_INTERVAL", "120")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.RedisURL != "redis://example:6380/2" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.TokenSecret != "secret" {
		t.Errorf("TokenSecret = %q", cfg.TokenSecret)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL = %v, want 30m", cfg.TokenTTL)
	}
	if cfg.ResetCheckInterval != 120*time.Second {
		t.Errorf("ResetCheckInterval = %v, want 120s (bare seconds)", cfg.ResetCheckInterval)
	}
}

func TestGetDurationRejectsGarbage(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"nonsense", time.Minute},
		{"-5m", time.Minute},
		{"0", time.Minute},
		{"90s", 90 * time.Second},
		{"45", 45 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("TOKEN_TTL", tt.value)
		if got := getDuration("TOKEN_TTL", time.Minute); got != tt.want {
			t.Errorf("getDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("REDIS_URL", "redis://example:6379")
	t.Setenv("TOKEN_SECRET", "secret")

	defer func() {
		if recover() == nil {
			t.Error("Load() did not panic without ADMIN_PASSWORD in production")
		}
	}()
	Load()
}
