package middleware

import (
	"time"

	"github.com/brahma/api-tracker/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Observes request latency by matched route
func Metrics(m *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
