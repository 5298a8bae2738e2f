package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/axops/axops-core/internal/correlation"
	"github.com/axops/axops-core/pkg/logger"
)

type IncidentHandler struct {
	engine *correlation.Engine
	logger logger.Logger
}

func NewIncidentHandler(engine *correlation.Engine, logger logger.Logger) *IncidentHandler {
	return &IncidentHandler{engine: engine, logger: logger}
}

// POST /api/v1/correlation/run - Trigger one correlation pass
func (h *IncidentHandler) RunCorrelation(c *gin.Context) {
	incident, err := h.engine.CorrelateAlerts(c.Request.Context())
	if err != nil {
		h.logger.Error("correlation run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "correlation run failed"})
		return
	}

	if incident == nil {
		c.JSON(http.StatusOK, gin.H{"status": "success", "correlated": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "correlated": true, "incident": incident})
}

// GET /api/v1/incidents - List incidents, optionally filtered by status
func (h *IncidentHandler) GetIncidents(c *gin.Context) {
	incidents, err := h.engine.GetIncidents(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.logger.Error("incident listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "incident listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "incidents": incidents, "count": len(incidents)})
}

// GET /api/v1/incidents/:id/alerts - Member alerts of one incident
func (h *IncidentHandler) GetIncidentAlerts(c *gin.Context) {
	alerts, err := h.engine.GetAlertsForCorrelation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("incident alert listing failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "incident alert listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "alerts": alerts, "count": len(alerts)})
}

// PUT /api/v1/incidents/:id/resolve - Resolve the incident and cascade to
// its still-active member alerts
func (h *IncidentHandler) ResolveIncident(c *gin.Context) {
	found, err := h.engine.ResolveCorrelation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("incident resolution failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "incident resolution failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
