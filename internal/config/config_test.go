package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "CRON_SECRET", "CORS_ALLOWED_ORIGINS",
		"SYNC_ENABLED", "SYNC_CRON", "SYNC_BATCH_SIZE", "SYNC_BATCH_DELAY",
		"QUOTE_RATE_LIMIT", "QUOTE_TIMEOUT", "CACHE_TTL",
	} {
		t.Setenv(key, "")
	}

	cfg, _ := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.SyncEnabled)
	assert.Equal(t, "0 0 18 * * 1-5", cfg.SyncCron)
	assert.Equal(t, 10, cfg.SyncBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.SyncBatchDelay)
	assert.Equal(t, 20.0, cfg.QuoteRateLimit)
	assert.Equal(t, 10*time.Second, cfg.QuoteTimeout)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CRON_SECRET", "s3cret")
	t.Setenv("SYNC_ENABLED", "false")
	t.Setenv("SYNC_BATCH_SIZE", "5")
	t.Setenv("SYNC_BATCH_DELAY", "2s")
	t.Setenv("QUOTE_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, _ := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3cret", cfg.CronSecret)
	assert.False(t, cfg.SyncEnabled)
	assert.Equal(t, 5, cfg.SyncBatchSize)
	assert.Equal(t, 2*time.Second, cfg.SyncBatchDelay)
	assert.Equal(t, 3*time.Second, cfg.QuoteTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SYNC_BATCH_SIZE", "-3")
	t.Setenv("SYNC_BATCH_DELAY", "soon")
	t.Setenv("QUOTE_RATE_LIMIT", "fast")
	t.Setenv("SYNC_ENABLED", "maybe")

	cfg, _ := Load()

	assert.Equal(t, 10, cfg.SyncBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.SyncBatchDelay)
	assert.Equal(t, 20.0, cfg.QuoteRateLimit)
	assert.True(t, cfg.SyncEnabled)
}

func TestConfig_Location(t *testing.T) {
	cfg := &Config{SyncTimezone: "Asia/Tokyo"}
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())

	cfg.SyncTimezone = "Mars/Olympus_Mons"
	_, offset := time.Now().In(cfg.Location()).Zone()
	assert.Equal(t, 9*60*60, offset)
}
