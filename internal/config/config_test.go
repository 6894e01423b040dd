package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "USAGE_STORE", "MATCH_THRESHOLD", "JWT_EXPIRY_HOURS", "USAGE_TIMEZONE", "DB_MAX_CONNS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, UsageStorePostgres, cfg.UsageStore)
	assert.Equal(t, 0.6, cfg.MatchThreshold)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 25, cfg.DBMaxConns)
	assert.Equal(t, time.UTC, cfg.UsageLocation())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("USAGE_STORE", UsageStoreBadger)
	t.Setenv("MATCH_THRESHOLD", "0.75")
	t.Setenv("USAGE_RETENTION_DAYS", "3")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := Load()

	assert.Equal(t, UsageStoreBadger, cfg.UsageStore)
	assert.Equal(t, 0.75, cfg.MatchThreshold)
	assert.Equal(t, 72*time.Hour, cfg.UsageRetention)
	assert.True(t, cfg.S3UseSSL)
	assert.True(t, cfg.LLMEnabled())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "high")
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("S3_USE_SSL", "maybe")
	t.Setenv("USAGE_TIMEZONE", "Mars/Olympus_Mons")

	cfg := Load()

	assert.Equal(t, 0.6, cfg.MatchThreshold)
	assert.Equal(t, 25, cfg.DBMaxConns)
	assert.False(t, cfg.S3UseSSL)
	assert.Equal(t, time.UTC, cfg.UsageLocation())
}
