package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr string

	// Database
	DatabaseURL string

	// Snapshot cache; empty disables Redis
	RedisURL             string
	SnapshotCacheTTL     time.Duration
	SnapshotWarmInterval time.Duration // 0 disables the warmer

	// CORS
	CORSOrigins string // Comma-separated allowed origins, e.g. "https://example.com,https://app.example.com"

	// Rate limiting, requests per minute per IP
	RateLimitMax int

	// Engine
	LeakageMinClicks   int64
	SpendCostThreshold float64
	BatchWorkers       int // 0 uses GOMAXPROCS
	MaxBatchSize       int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:                  getEnv("ENV", "development"),
		ServerAddr:           getEnv("SERVER_ADDR", ":3000"),
		DatabaseURL:          getEnv("DATABASE_URL", "postgres://localhost:5432/kwintel?sslmode=disable"),
		RedisURL:             getEnv("REDIS_URL", ""),
		SnapshotCacheTTL:     getEnvDuration("SNAPSHOT_CACHE_TTL", 24*time.Hour),
		SnapshotWarmInterval: getEnvDuration("SNAPSHOT_WARM_INTERVAL", time.Minute),
		CORSOrigins:          getEnv("CORS_ORIGINS", "*"),
		RateLimitMax:         getEnvInt("RATE_LIMIT_MAX", 100),
		LeakageMinClicks:     int64(getEnvInt("LEAKAGE_MIN_CLICKS", 20)),
		SpendCostThreshold:   getEnvFloat("SPEND_COST_THRESHOLD", 200),
		BatchWorkers:         getEnvInt("BATCH_WORKERS", 0),
		MaxBatchSize:         getEnvInt("MAX_BATCH_SIZE", 5000),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", value)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("ignoring invalid number setting", "key", key, "value", value)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", value)
		return fallback
	}
	return d
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// ApplyYAML lets file settings override engine thresholds. Zero values in
// the file leave the env settings alone.
func (c *Config) ApplyYAML(y *YAMLConfig) {
	if y == nil {
		return
	}
	if y.Engine.LeakageMinClicks > 0 {
		c.LeakageMinClicks = y.Engine.LeakageMinClicks
	}
	if y.Engine.SpendCostThreshold > 0 {
		c.SpendCostThreshold = y.Engine.SpendCostThreshold
	}
	if y.Engine.BatchWorkers > 0 {
		c.BatchWorkers = y.Engine.BatchWorkers
	}
}
