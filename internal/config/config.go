package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	HTTPPort string

	// Upstream mlcomp API
	APIURL          string
	APIToken        string
	UpstreamTimeout time.Duration
	UpstreamRPS     float64

	// Redis, event bus disabled when empty
	RedisURL         string
	EventHistorySize int

	// MQTT mirror, disabled when empty
	MQTTBrokerURL   string
	MQTTTopicPrefix string

	// Upstream status polling
	StatusPollInterval time.Duration

	// List views
	DefaultPageSize       int
	DefaultSortDescending bool

	// Logging
	LogLevel  slog.Level
	LogFormat string // "json" or "text"

	// Tracing
	OTLPEndpoint string
	ServiceName  string

	// Features
	EnableMetrics bool
	EnableTracing bool
}

func Load() (*Config, error) {
	// A .env file is optional
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		APIURL:                getEnv("MLCOMP_API_URL", "http://localhost:4201"),
		APIToken:              getEnv("MLCOMP_API_TOKEN", ""),
		UpstreamTimeout:       getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		UpstreamRPS:           getEnvFloat("UPSTREAM_RPS", 20),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		EventHistorySize:      getEnvInt("EVENT_HISTORY_SIZE", 100),
		MQTTBrokerURL:         getEnv("MQTT_BROKER_URL", ""),
		MQTTTopicPrefix:       getEnv("MQTT_TOPIC_PREFIX", "mlboard"),
		StatusPollInterval:    getEnvDuration("STATUS_POLL_INTERVAL", 30*time.Second),
		DefaultPageSize:       getEnvInt("DEFAULT_PAGE_SIZE", 10),
		DefaultSortDescending: getEnvBool("DEFAULT_SORT_DESCENDING", true),
		LogFormat:             getEnv("LOG_FORMAT", "text"),
		OTLPEndpoint:          getEnv("OTLP_ENDPOINT", ""),
		ServiceName:           getEnv("SERVICE_NAME", "mlboard"),
		EnableMetrics:         getEnvBool("ENABLE_METRICS", true),
		EnableTracing:         getEnvBool("ENABLE_TRACING", false),
	}
	cfg.LogLevel = ParseLevel(getEnv("LOG_LEVEL", "info"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("MLCOMP_API_URL is required")
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive, got %d", c.DefaultPageSize)
	}
	if c.StatusPollInterval <= 0 {
		return fmt.Errorf("STATUS_POLL_INTERVAL must be positive, got %s", c.StatusPollInterval)
	}
	if c.UpstreamRPS <= 0 {
		return fmt.Errorf("UPSTREAM_RPS must be positive, got %v", c.UpstreamRPS)
	}
	return nil
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
