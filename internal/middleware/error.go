package middleware

import (
	"github.com/brahma/api-tracker/internal/apperrors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Renders the last error pushed with c.Error as {"code","message","suggestion"}
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := apperrors.Wrap(c.Errors.Last().Err)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("code", string(appErr.Type)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(RequestIDKey)),
		}

		if appErr.HTTPStatus >= 500 {
			log.Error(appErr.Message, append(fields, zap.Error(appErr.Cause))...)
		} else {
			log.Warn(appErr.Message, fields...)
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
	}
}
