package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, 300*time.Second, cfg.ConfirmationTimeout)
	assert.Equal(t, time.Second, cfg.QueueScanInterval)
	assert.Equal(t, 2*time.Second, cfg.DeckPollInterval)
	assert.Equal(t, 5, cfg.SubmitRateLimit)
	assert.Equal(t, time.Minute, cfg.SubmitRateWindow)
	assert.True(t, cfg.EnableMetrics)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIRMATION_TIMEOUT", "2m")
	t.Setenv("DECK_POLL_INTERVAL", "500ms")
	t.Setenv("SUBMIT_RATE_LIMIT", "10")
	t.Setenv("ENABLE_METRICS", "false")

	cfg := LoadConfig()

	assert.Equal(t, 2*time.Minute, cfg.ConfirmationTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.DeckPollInterval)
	assert.Equal(t, 10, cfg.SubmitRateLimit)
	assert.False(t, cfg.EnableMetrics)
}

func TestLoadConfig_BadDurationFallsBack(t *testing.T) {
	t.Setenv("CONFIRMATION_TIMEOUT", "not-a-duration")

	cfg := LoadConfig()
	assert.Equal(t, 300*time.Second, cfg.ConfirmationTimeout)
}
