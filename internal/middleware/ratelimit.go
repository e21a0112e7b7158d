package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/brahma/api-tracker/internal/apperrors"
	"github.com/brahma/api-tracker/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Counts requests turned away before reaching the handler
type RejectionRecorder interface {
	RecordRejected(err error)
}

// Limits requests per client IP. A failing limiter lets the request through.
func RateLimit(limiter ratelimit.Limiter, recorder RejectionRecorder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		result, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter(time.Now()).Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			appErr := apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil)
			if recorder != nil {
				recorder.RecordRejected(appErr)
			}
			_ = c.Error(appErr)
			c.Abort()
			return
		}

		c.Next()
	}
}
