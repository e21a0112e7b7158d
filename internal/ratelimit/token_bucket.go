package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/brahma/api-tracker/internal/storage"
	"github.com/redis/go-redis/v9"
)

type TokenBucket struct {
	redis      *storage.RedisClient
	capacity   int     // Total capacity of the bucket
	refillRate float64 // Tokens per second
	now        func() time.Time
}

type bucketState struct {
	Tokens     float64   `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
}

func NewTokenBucket(redis *storage.RedisClient, capacity int, refillRate float64) *TokenBucket {
	if refillRate <= 0 {
		refillRate = 1
	}
	return &TokenBucket{
		redis:      redis,
		capacity:   capacity,
		refillRate: refillRate,
		now:        time.Now,
	}
}

func (t *TokenBucket) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := fmt.Sprintf("ratelimit:bucket:%s", key)
	now := t.now()

	var state bucketState
	data, err := t.redis.Get(ctx, redisKey)
	switch {
	case errors.Is(err, redis.Nil):
		// First request for this key
		state = bucketState{Tokens: float64(t.capacity), LastRefill: now}
	case err != nil:
		return Result{}, fmt.Errorf("token bucket read: %w", err)
	default:
		if err := json.Unmarshal([]byte(data), &state); err != nil {
			state = bucketState{Tokens: float64(t.capacity), LastRefill: now}
		}
	}

	elapsed := now.Sub(state.LastRefill).Seconds()
	if elapsed > 0 {
		state.Tokens = math.Min(state.Tokens+elapsed*t.refillRate, float64(t.capacity))
	}
	state.LastRefill = now

	allowed := state.Tokens >= 1
	if allowed {
		state.Tokens--
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return Result{}, err
	}
	if err := t.redis.Set(ctx, redisKey, stateJSON, t.Window()+time.Minute); err != nil {
		return Result{}, fmt.Errorf("token bucket write: %w", err)
	}

	result := Result{
		Allowed:   allowed,
		Limit:     t.capacity,
		Remaining: int(math.Floor(state.Tokens)),
		ResetAt:   now,
	}
	if state.Tokens < 1 {
		wait := (1 - state.Tokens) / t.refillRate
		result.ResetAt = now.Add(time.Duration(wait * float64(time.Second)))
	}
	return result, nil
}

func (t *TokenBucket) Limit() int {
	return t.capacity
}

// Time to refill an empty bucket
func (t *TokenBucket) Window() time.Duration {
	return time.Duration(float64(t.capacity) / t.refillRate * float64(time.Second))
}
