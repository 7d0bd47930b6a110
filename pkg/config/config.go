package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	RedisURL           string
	LogLevel           string
	CORSAllowedOrigins []string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Webhook ingestion
	WebhookSecret     string
	WebhookMaxBodyKB  int
	EventQueueKey     string
	DeadLetterKey     string
	EventMaxAttempts  int
	EventRetryBackoff time.Duration

	// Cache behaviour
	CacheTTL        time.Duration
	JanitorInterval time.Duration

	// Admin API auth
	JWTSecret         string
	AdminEmail        string
	AdminPasswordHash string // bcrypt hash
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxBodyKB, err := strconv.Atoi(getEnv("WEBHOOK_MAX_BODY_KB", "256"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_MAX_BODY_KB: %w", err)
	}

	maxAttempts, err := strconv.Atoi(getEnv("EVENT_MAX_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_MAX_ATTEMPTS: %w", err)
	}

	retryBackoff, err := time.ParseDuration(getEnv("EVENT_RETRY_BACKOFF", "200ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_RETRY_BACKOFF: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	janitorInterval, err := time.ParseDuration(getEnv("JANITOR_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JANITOR_INTERVAL: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            dbPort,
		DBUser:            getEnv("DB_USER", "jobboard"),
		DBPassword:        getEnv("DB_PASSWORD", "dev"),
		DBName:            getEnv("DB_NAME", "jobboard"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		WebhookSecret:     getEnv("WEBHOOK_SECRET", ""),
		WebhookMaxBodyKB:  maxBodyKB,
		EventQueueKey:     getEnv("EVENT_QUEUE_KEY", "events:queue"),
		DeadLetterKey:     getEnv("EVENT_DEAD_LETTER_KEY", "events:dead"),
		EventMaxAttempts:  maxAttempts,
		EventRetryBackoff: retryBackoff,
		CacheTTL:          cacheTTL,
		JanitorInterval:   janitorInterval,
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminEmail:        getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
