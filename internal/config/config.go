package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds application settings read from the environment
type Config struct {
	Port           string
	AppEnv         string
	GinMode        string
	LogLevel       string
	RedisURL       string
	CronSecret     string
	AllowedOrigins []string

	SyncEnabled    bool
	SyncCron       string
	SyncTimezone   string
	SyncBatchSize  int
	SyncBatchDelay time.Duration
	QuoteRateLimit float64
	QuoteTimeout   time.Duration

	CacheTTL         time.Duration
	SyncRunRetention time.Duration
}

// Load reads .env (when present) and then the process environment.
// It reports whether a .env file was loaded.
func Load() (*Config, bool) {
	envLoaded := godotenv.Load() == nil

	return &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		AppEnv:         getEnvOrDefault("APP_ENV", "development"),
		GinMode:        os.Getenv("GIN_MODE"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		RedisURL:       os.Getenv("REDIS_URL"),
		CronSecret:     os.Getenv("CRON_SECRET"),
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		SyncEnabled:    getEnvBool("SYNC_ENABLED", true),
		SyncCron:       getEnvOrDefault("SYNC_CRON", "0 0 18 * * 1-5"),
		SyncTimezone:   getEnvOrDefault("SYNC_TIMEZONE", "Asia/Tokyo"),
		SyncBatchSize:  getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncBatchDelay: getEnvDuration("SYNC_BATCH_DELAY", 500*time.Millisecond),
		QuoteRateLimit: getEnvFloat("QUOTE_RATE_LIMIT", 20),
		QuoteTimeout:   getEnvDuration("QUOTE_TIMEOUT", 10*time.Second),

		CacheTTL:         getEnvDuration("CACHE_TTL", 10*time.Minute),
		SyncRunRetention: getEnvDuration("SYNC_RUN_RETENTION", 90*24*time.Hour),
	}, envLoaded
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location resolves SyncTimezone, falling back to JST
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SyncTimezone)
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
