package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	UserID   string

	// Database. DatabaseDriver is one of "sqlite", "postgres", "memory" or
	// "auto"; auto picks postgres when DatabaseURL is set.
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	// Redis scoreboard. Empty disables the mirror.
	RedisURL string
	ScoreTTL time.Duration

	// RabbitMQ. Empty publishes events in process.
	RabbitMQURL string
	QueueName   string

	// Engine limits. Zero keeps the tuning file or built-in value.
	TriggerCooldown time.Duration
	DailyCap        int
	HistoryWindow   int
	WarmConcurrency int

	// Data store circuit breaker
	BreakerFailureThreshold int
	BreakerTimeout          time.Duration

	// Worker
	WorkerHealthAddr string
	RecordRetention  time.Duration
	PruneInterval    time.Duration

	// MCP
	MCPAddr      string
	MCPAuthToken string

	// TuningFile points at an optional YAML file with curve anchors and
	// predicate thresholds.
	TuningFile string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		UserID:   getEnv("GRITLINE_USER_ID", "00000000-0000-0000-0000-000000000001"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "auto"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SQLitePath:     getEnv("SQLITE_PATH", ""),

		RedisURL: getEnv("REDIS_URL", ""),
		ScoreTTL: getDurationEnv("GRITLINE_SCORE_TTL", 24*time.Hour),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),
		QueueName:   getEnv("GRITLINE_QUEUE", "gritline.scores"),

		TriggerCooldown: getDurationEnv("GRITLINE_TRIGGER_COOLDOWN", 0),
		DailyCap:        getIntEnv("GRITLINE_DAILY_CAP", 0),
		HistoryWindow:   getIntEnv("GRITLINE_HISTORY_WINDOW", 0),
		WarmConcurrency: getIntEnv("GRITLINE_WARM_CONCURRENCY", 4),

		BreakerFailureThreshold: getIntEnv("GRITLINE_BREAKER_FAILURES", 5),
		BreakerTimeout:          getDurationEnv("GRITLINE_BREAKER_TIMEOUT", 30*time.Second),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),
		RecordRetention:  getDurationEnv("GRITLINE_RECORD_RETENTION", 30*24*time.Hour),
		PruneInterval:    getDurationEnv("GRITLINE_PRUNE_INTERVAL", time.Hour),

		MCPAddr:      getEnv("MCP_ADDR", "0.0.0.0:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),

		TuningFile: getEnv("GRITLINE_TUNING_FILE", ""),
	}

	if cfg.DatabaseDriver == "auto" {
		cfg.DatabaseDriver = "sqlite"
		if cfg.DatabaseURL != "" {
			cfg.DatabaseDriver = "postgres"
		}
	}

	return cfg, nil
}

// LocalMode reports whether the app runs against a local store without
// external services.
func (c *Config) LocalMode() bool {
	return c.DatabaseDriver != "postgres"
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
