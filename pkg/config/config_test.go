package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskdeck/pkg/observability"
)

const validSecret = "test-secret-test-secret-test-secret-1234"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TASKDECK_JWT_SECRET", validSecret)
	t.Setenv("TASKDECK_POSTGRES_URL", "postgres://localhost/taskdeck?sslmode=disable")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "9090", cfg.Server.HealthPort)
		assert.Equal(t, "HS256", cfg.JWT.Algorithm)
		assert.Equal(t, 24*time.Hour, cfg.JWT.MaxTokenTTL)
		assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
		assert.True(t, cfg.Storage.CacheEnabled)
	})

	t.Run("env overrides", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TASKDECK_PORT", "3000")
		t.Setenv("TASKDECK_LOG_LEVEL", "debug")
		t.Setenv("TASKDECK_JWT_MAX_TOKEN_TTL", "1h")
		t.Setenv("TASKDECK_CACHE_ENABLED", "false")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "3000", cfg.Server.Port)
		assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
		assert.Equal(t, time.Hour, cfg.JWT.MaxTokenTTL)
		assert.False(t, cfg.Storage.CacheEnabled)
	})

	t.Run("missing JWT secret is fatal", func(t *testing.T) {
		t.Setenv("TASKDECK_JWT_SECRET", "")
		t.Setenv("TASKDECK_POSTGRES_URL", "postgres://localhost/taskdeck")

		cfg, err := LoadConfig()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT secret is required")
	})

	t.Run("short JWT secret is fatal", func(t *testing.T) {
		t.Setenv("TASKDECK_JWT_SECRET", "too-short")
		t.Setenv("TASKDECK_POSTGRES_URL", "postgres://localhost/taskdeck")

		cfg, err := LoadConfig()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 bytes")
	})

	t.Run("missing postgres URL is fatal", func(t *testing.T) {
		t.Setenv("TASKDECK_JWT_SECRET", validSecret)
		t.Setenv("TASKDECK_POSTGRES_URL", "")

		cfg, err := LoadConfig()
		assert.Nil(t, cfg)
		assert.Error(t, err)
	})

	t.Run("invalid algorithm", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TASKDECK_JWT_ALGORITHM", "RS256")

		cfg, err := LoadConfig()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JWT algorithm")
	})

	t.Run("equal ports rejected", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TASKDECK_PORT", "8080")
		t.Setenv("TASKDECK_HEALTH_PORT", "8080")

		cfg, err := LoadConfig()
		assert.Nil(t, cfg)
		assert.Error(t, err)
	})
}

func TestLoadConfig_File(t *testing.T) {
	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "taskdeck.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	t.Run("file values applied", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: "4000"
jwt:
  secret: `+validSecret+`
storage:
  postgresurl: postgres://localhost/taskdeck
observability:
  log_level: warn
`)
		t.Setenv("TASKDECK_CONFIG_FILE", path)

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "4000", cfg.Server.Port)
		assert.Equal(t, observability.WarnLevel, cfg.Observability.LogLevel)
	})

	t.Run("env wins over file", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: "4000"
`)
		t.Setenv("TASKDECK_CONFIG_FILE", path)
		setRequiredEnv(t)
		t.Setenv("TASKDECK_PORT", "5000")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "5000", cfg.Server.Port)
	})

	t.Run("missing file is fatal", func(t *testing.T) {
		t.Setenv("TASKDECK_CONFIG_FILE", "/nonexistent/taskdeck.yaml")
		setRequiredEnv(t)

		cfg, err := LoadConfig()
		assert.Nil(t, cfg)
		assert.Error(t, err)
	})
}
