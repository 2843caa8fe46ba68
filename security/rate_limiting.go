package security

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"karaoke-live/config"
)

// RateLimiter caps submission churn per singer and screens obvious bots.
// Counters live in Redis so the limits hold across server instances.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, cfg *config.Config) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  cfg.SubmitRateLimit,
		window: cfg.SubmitRateWindow,
	}
}

// AllowSubmission implements the queue service's SubmitLimiter: a fixed
// window counter per user.
func (r *RateLimiter) AllowSubmission(ctx context.Context, userID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:submit:%s", userID)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("AllowSubmission: incr: %w", err)
	}
	if count == 1 {
		r.redis.Expire(ctx, key, r.window)
	}
	return count <= int64(r.limit), nil
}

// AntiBotMiddleware screens bot user agents and caps per-IP request
// frequency across all queue endpoints.
func (r *RateLimiter) AntiBotMiddleware() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		userAgent := e.Request.Header.Get("User-Agent")
		if r.isSuspiciousUserAgent(userAgent) {
			return e.JSON(http.StatusForbidden, map[string]string{
				"error": "Access denied",
			})
		}

		ip := e.RealIP()
		key := fmt.Sprintf("antibot:%s", ip)

		count, err := r.redis.Incr(context.Background(), key).Result()
		if err == nil {
			if count == 1 {
				r.redis.Expire(context.Background(), key, time.Minute)
			}
			if count > 120 { // Max 120 requests per minute
				return e.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "Too many requests",
				})
			}
		}

		return e.Next()
	}
}

func (r *RateLimiter) isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
