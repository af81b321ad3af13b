package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvVars clears all gritline-related environment variables.
func clearEnvVars() {
	envVars := []string{
		"APP_ENV", "LOG_LEVEL", "GRITLINE_USER_ID",
		"DATABASE_DRIVER", "DATABASE_URL", "SQLITE_PATH",
		"REDIS_URL", "GRITLINE_SCORE_TTL", "RABBITMQ_URL", "GRITLINE_QUEUE",
		"GRITLINE_TRIGGER_COOLDOWN", "GRITLINE_DAILY_CAP", "GRITLINE_HISTORY_WINDOW",
		"GRITLINE_WARM_CONCURRENCY", "GRITLINE_BREAKER_FAILURES", "GRITLINE_BREAKER_TIMEOUT",
		"WORKER_HEALTH_ADDR", "GRITLINE_RECORD_RETENTION", "GRITLINE_PRUNE_INTERVAL",
		"MCP_ADDR", "MCP_AUTH_TOKEN", "GRITLINE_TUNING_FILE",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", cfg.UserID)

	// Local mode is the default when no DATABASE_URL is set
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.True(t, cfg.LocalMode())
	assert.Empty(t, cfg.DatabaseURL)

	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 24*time.Hour, cfg.ScoreTTL)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Equal(t, "gritline.scores", cfg.QueueName)

	// Engine limits left to the tuning defaults
	assert.Zero(t, cfg.TriggerCooldown)
	assert.Zero(t, cfg.DailyCap)
	assert.Zero(t, cfg.HistoryWindow)
	assert.Equal(t, 4, cfg.WarmConcurrency)

	assert.Equal(t, 5, cfg.BreakerFailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.BreakerTimeout)

	assert.Equal(t, "0.0.0.0:8081", cfg.WorkerHealthAddr)
	assert.Equal(t, 30*24*time.Hour, cfg.RecordRetention)
	assert.Equal(t, time.Hour, cfg.PruneInterval)
	assert.Equal(t, "0.0.0.0:8082", cfg.MCPAddr)
	assert.Empty(t, cfg.TuningFile)
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("APP_ENV", "production")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("GRITLINE_USER_ID", "custom-user-id")
	os.Setenv("REDIS_URL", "redis://cache:6379/1")
	os.Setenv("RABBITMQ_URL", "amqp://guest:guest@mq:5672/")
	os.Setenv("GRITLINE_TRIGGER_COOLDOWN", "6h")
	os.Setenv("GRITLINE_DAILY_CAP", "5")
	os.Setenv("GRITLINE_HISTORY_WINDOW", "20")
	os.Setenv("GRITLINE_BREAKER_TIMEOUT", "1m")
	os.Setenv("GRITLINE_TUNING_FILE", "/etc/gritline/tuning.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "custom-user-id", cfg.UserID)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitMQURL)
	assert.Equal(t, 6*time.Hour, cfg.TriggerCooldown)
	assert.Equal(t, 5, cfg.DailyCap)
	assert.Equal(t, 20, cfg.HistoryWindow)
	assert.Equal(t, time.Minute, cfg.BreakerTimeout)
	assert.Equal(t, "/etc/gritline/tuning.yaml", cfg.TuningFile)
}

func TestLoad_DatabaseDriver(t *testing.T) {
	tests := []struct {
		name      string
		driver    string
		url       string
		want      string
		wantLocal bool
	}{
		{name: "auto without url", want: "sqlite", wantLocal: true},
		{name: "auto with url", url: "postgres://localhost/gritline", want: "postgres"},
		{name: "explicit memory", driver: "memory", want: "memory", wantLocal: true},
		{name: "explicit sqlite ignores url", driver: "sqlite", url: "postgres://localhost/gritline", want: "sqlite", wantLocal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			defer clearEnvVars()
			if tt.driver != "" {
				os.Setenv("DATABASE_DRIVER", tt.driver)
			}
			if tt.url != "" {
				os.Setenv("DATABASE_URL", tt.url)
			}

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.DatabaseDriver)
			assert.Equal(t, tt.wantLocal, cfg.LocalMode())
		})
	}
}

func TestGetIntEnv(t *testing.T) {
	t.Run("returns default when not set", func(t *testing.T) {
		os.Unsetenv("TEST_INT_VAR")
		assert.Equal(t, 42, getIntEnv("TEST_INT_VAR", 42))
	})

	t.Run("parses valid integer", func(t *testing.T) {
		os.Setenv("TEST_INT_VAR", "123")
		defer os.Unsetenv("TEST_INT_VAR")
		assert.Equal(t, 123, getIntEnv("TEST_INT_VAR", 42))
	})

	t.Run("returns default for invalid integer", func(t *testing.T) {
		os.Setenv("TEST_INT_VAR", "not-a-number")
		defer os.Unsetenv("TEST_INT_VAR")
		assert.Equal(t, 42, getIntEnv("TEST_INT_VAR", 42))
	})
}

func TestGetDurationEnv(t *testing.T) {
	t.Run("returns default when not set", func(t *testing.T) {
		os.Unsetenv("TEST_DURATION_VAR")
		assert.Equal(t, 5*time.Second, getDurationEnv("TEST_DURATION_VAR", 5*time.Second))
	})

	t.Run("parses valid duration", func(t *testing.T) {
		os.Setenv("TEST_DURATION_VAR", "90m")
		defer os.Unsetenv("TEST_DURATION_VAR")
		assert.Equal(t, 90*time.Minute, getDurationEnv("TEST_DURATION_VAR", 5*time.Second))
	})

	t.Run("returns default for invalid duration", func(t *testing.T) {
		os.Setenv("TEST_DURATION_VAR", "soon")
		defer os.Unsetenv("TEST_DURATION_VAR")
		assert.Equal(t, 5*time.Second, getDurationEnv("TEST_DURATION_VAR", 5*time.Second))
	})
}
