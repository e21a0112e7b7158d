package handler

import (
	"net/http"

	"github.com/brahma/api-tracker/internal/service"
	"github.com/brahma/api-tracker/internal/tracker"
	"github.com/gin-gonic/gin"
)

const (
	welcomeMessage = "Welcome to home"
	trackedMessage = "API Hit Tracked"
)

type HitHandler struct {
	service *service.HitService
}

func NewHitHandler(service *service.HitService) *HitHandler {
	return &HitHandler{service: service}
}

// Handles GET /
func (h *HitHandler) Home(c *gin.Context) {
	c.String(http.StatusOK, welcomeMessage)
}

// Handles GET, POST, PUT and DELETE /track
func (h *HitHandler) Track(c *gin.Context) {
	rc, err := tracker.FromGin(c)
	if err != nil {
		h.service.RecordRejected(err)
		_ = c.Error(err)
		return
	}

	if _, err := h.service.Track(c.Request.Context(), rc); err != nil {
		_ = c.Error(err)
		return
	}

	c.String(http.StatusOK, trackedMessage)
}

// Handles GET /api/hits
func (h *HitHandler) List(c *gin.Context) {
	hits, err := h.service.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, hits)
}

// Handles GET /api/hits/stats
func (h *HitHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
