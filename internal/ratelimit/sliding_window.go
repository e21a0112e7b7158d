package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/brahma/api-tracker/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type SlidingWindowLimiter struct {
	redis  *storage.RedisClient
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewSlidingWindowLimiter(redis *storage.RedisClient, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (s *SlidingWindowLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := fmt.Sprintf("ratelimit:sliding:%s", key)
	now := s.now()
	windowStart := now.Add(-s.window)

	// Sorted set scored by request time in nanoseconds
	pipe := s.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("sliding window read: %w", err)
	}

	count := countCmd.Val()
	result := Result{Limit: s.limit, ResetAt: now.Add(s.window)}
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		result.ResetAt = time.Unix(0, int64(oldest[0].Score)).Add(s.window)
	}

	if count >= int64(s.limit) {
		return result, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
	pipe = s.redis.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, redisKey, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("sliding window add: %w", err)
	}

	result.Allowed = true
	result.Remaining = s.limit - int(count) - 1
	return result, nil
}

func (s *SlidingWindowLimiter) Limit() int {
	return s.limit
}

func (s *SlidingWindowLimiter) Window() time.Duration {
	return s.window
}
