package middleware

import (
	"fmt"

	"github.com/brahma/api-tracker/internal/apperrors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Turns a panic into an INTERNAL_ERROR for ErrorHandler to render
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered",
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				_ = c.Error(apperrors.New(apperrors.ErrInternal, "internal server error", fmt.Errorf("panic: %v", rec)))
				c.Abort()
			}
		}()
		c.Next()
	}
}
