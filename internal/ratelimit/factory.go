package ratelimit

import (
	"time"

	"github.com/brahma/api-tracker/internal/config"
	"github.com/brahma/api-tracker/internal/storage"
)

// Builds the configured limiter. Redis-backed algorithms fall back to the
// local limiter when redis is nil.
func NewLimiter(redis *storage.RedisClient, cfg config.RateLimitConfig) Limiter {
	limit := cfg.RequestsPerMinute
	window := time.Minute

	if redis == nil {
		return NewLocalLimiter(limit, window)
	}

	switch cfg.Algorithm {
	case config.AlgorithmTokenBucket:
		return NewTokenBucket(redis, limit, float64(limit)/window.Seconds())
	case config.AlgorithmSlidingWindow:
		return NewSlidingWindowLimiter(redis, limit, window)
	case config.AlgorithmLocal:
		return NewLocalLimiter(limit, window)
	default:
		return NewFixedWindow(redis, limit, window)
	}
}
