package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/axops/axops-core/pkg/cache"
	"github.com/axops/axops-core/pkg/logger"
)

type HealthHandler struct {
	cache  cache.Cache
	logger logger.Logger
}

func NewHealthHandler(coord cache.Cache, logger logger.Logger) *HealthHandler {
	return &HealthHandler{cache: coord, logger: logger}
}

// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /ready - Readiness includes the coordination cache; a degraded cache
// still serves traffic since the engines fall back to store-level checks.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	cacheStatus := "healthy"
	if err := h.cache.HealthCheck(c.Request.Context()); err != nil {
		h.logger.Warn("coordination cache unhealthy", "error", err)
		cacheStatus = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"components": gin.H{
			"cache": cacheStatus,
		},
	})
}
