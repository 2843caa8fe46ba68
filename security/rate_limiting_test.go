package security

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karaoke-live/config"
)

func setupLimiter() (*RateLimiter, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	cfg := &config.Config{
		SubmitRateLimit:  5,
		SubmitRateWindow: time.Minute,
	}
	return NewRateLimiter(db, cfg), mock
}

func TestRateLimiter_FirstSubmissionAllowed(t *testing.T) {
	limiter, mock := setupLimiter()
	defer mock.ClearExpect()

	mock.ExpectIncr("ratelimit:submit:u1").SetVal(1)
	mock.ExpectExpire("ratelimit:submit:u1", time.Minute).SetVal(true)

	allowed, err := limiter.AllowSubmission(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_AtLimitAllowed(t *testing.T) {
	limiter, mock := setupLimiter()
	defer mock.ClearExpect()

	mock.ExpectIncr("ratelimit:submit:u1").SetVal(5)

	allowed, err := limiter.AllowSubmission(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_OverLimitDenied(t *testing.T) {
	limiter, mock := setupLimiter()
	defer mock.ClearExpect()

	mock.ExpectIncr("ratelimit:submit:u1").SetVal(6)

	allowed, err := limiter.AllowSubmission(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiter_SuspiciousUserAgents(t *testing.T) {
	limiter, _ := setupLimiter()

	assert.True(t, limiter.isSuspiciousUserAgent("Googlebot/2.1"))
	assert.True(t, limiter.isSuspiciousUserAgent("my-scraper 1.0"))
	assert.True(t, limiter.isSuspiciousUserAgent("SpiderThing"))
	assert.False(t, limiter.isSuspiciousUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)"))
	assert.False(t, limiter.isSuspiciousUserAgent(""))
}
