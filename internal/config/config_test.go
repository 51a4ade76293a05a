package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/cipherchat")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "900")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "604800")
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Port, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "postgres://localhost:5432/cipherchat", cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
	assert.EqualValues(t, 900, cfg.AccessExpiry)
	assert.EqualValues(t, 604800, cfg.RefreshExpiry)
}

func TestLoadOptionalOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		blank string
	}{
		{"database url", "DATABASE_URL"},
		{"jwt secret", "JWT_SECRET"},
		{"access expiry", "ACCESS_TOKEN_EXPIRY"},
		{"refresh expiry", "REFRESH_TOKEN_EXPIRY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.blank, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.blank)
		})
	}
}

func TestLoadRejectsNonNumericExpiry(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCESS_TOKEN_EXPIRY", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_EXPIRY")
}
