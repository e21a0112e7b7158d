package ratelimit

import (
	"context"
	"time"
)

// Outcome of a single rate limit check
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the wait until the next request can succeed, never negative.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed {
		return 0
	}
	wait := r.ResetAt.Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

type Limiter interface {
	// Consumes one unit for key and reports whether the request may proceed
	Allow(ctx context.Context, key string) (Result, error)

	Limit() int

	Window() time.Duration
}
