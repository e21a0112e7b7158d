package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/brahma/api-tracker/internal/storage"
)

type FixedWindowLimiter struct {
	redis  *storage.RedisClient
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewFixedWindow(redis *storage.RedisClient, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (f *FixedWindowLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := f.now()
	windowSeconds := int64(f.window.Seconds())
	currentWindow := now.Unix() / windowSeconds
	redisKey := fmt.Sprintf("ratelimit:fixed:%s:%d", key, currentWindow)

	count, err := f.redis.Incr(ctx, redisKey)
	if err != nil {
		return Result{}, fmt.Errorf("fixed window incr: %w", err)
	}

	if count == 1 {
		if err := f.redis.Expire(ctx, redisKey, f.window); err != nil {
			return Result{}, fmt.Errorf("fixed window expire: %w", err)
		}
	}

	remaining := f.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(f.limit),
		Limit:     f.limit,
		Remaining: remaining,
		ResetAt:   time.Unix((currentWindow+1)*windowSeconds, 0),
	}, nil
}

func (f *FixedWindowLimiter) Limit() int {
	return f.limit
}

func (f *FixedWindowLimiter) Window() time.Duration {
	return f.window
}
