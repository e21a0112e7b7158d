package handler

import (
	"net/http"
	"time"

	"github.com/brahma/api-tracker/internal/healthcheck"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	checker *healthcheck.Checker
}

func NewHealthHandler(checker *healthcheck.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Handles GET /health. Only a fully unhealthy tracker answers 503.
func (h *HealthHandler) Health(c *gin.Context) {
	overall := h.checker.OverallHealth()

	status := http.StatusOK
	if overall == healthcheck.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":     overall.String(),
		"components": h.checker.GetAllStatus(),
		"timestamp":  time.Now().Unix(),
	})
}
