package middleware

import (
	"strings"

	"github.com/brahma/api-tracker/internal/apperrors"
	"github.com/brahma/api-tracker/internal/service"
	"github.com/gin-gonic/gin"
)

// Validates the bearer token, loads the admin it was issued to and stores it in the context
func RequireAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			_ = c.Error(apperrors.NewAuthFailed("authorization header required"))
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			_ = c.Error(apperrors.NewAuthFailed("invalid authorization header format, use: Bearer <token>"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		user, err := authService.GetUserByID(c.Request.Context(), claims.Subject)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				err = apperrors.NewAuthFailed("account no longer exists")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set("user_id", user.ID.String())
		c.Set("email", user.Email)
		c.Set("role", user.Role)

		c.Next()
	}
}
