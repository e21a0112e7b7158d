package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Keys tracked before idle buckets are swept
const localSweepThreshold = 10000

// In-process limiter used when no Redis is configured. Limits are per instance.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    int
	window   time.Duration
	every    rate.Limit
	now      func() time.Time
}

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		window:   window,
		every:    rate.Every(window / time.Duration(limit)),
		now:      time.Now,
	}
}

func (l *LocalLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	now := l.now()
	lim := l.limiterFor(key, now)

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)

	result := Result{
		Allowed: allowed,
		Limit:   l.limit,
		ResetAt: now,
	}
	if tokens > 0 {
		result.Remaining = int(tokens)
	}
	if tokens < 1 {
		wait := (1 - tokens) / float64(l.every)
		result.ResetAt = now.Add(time.Duration(wait * float64(time.Second)))
	}
	return result, nil
}

func (l *LocalLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[key]; ok {
		return lim
	}

	if len(l.limiters) >= localSweepThreshold {
		for k, lim := range l.limiters {
			if lim.TokensAt(now) >= float64(l.limit) {
				delete(l.limiters, k)
			}
		}
	}

	lim := rate.NewLimiter(l.every, l.limit)
	l.limiters[key] = lim
	return lim
}

func (l *LocalLimiter) Limit() int {
	return l.limit
}

func (l *LocalLimiter) Window() time.Duration {
	return l.window
}
