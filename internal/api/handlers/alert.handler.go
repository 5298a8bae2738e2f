package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/axops/axops-core/internal/alerting"
	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/models"
	"github.com/axops/axops-core/pkg/logger"
)

type AlertHandler struct {
	manager *alerting.Manager
	cfg     config.AlertingConfig
	logger  logger.Logger
}

func NewAlertHandler(manager *alerting.Manager, cfg config.AlertingConfig, logger logger.Logger) *AlertHandler {
	return &AlertHandler{manager: manager, cfg: cfg, logger: logger}
}

type createAlertRequest struct {
	Type      string            `json:"type" binding:"required"`
	Severity  models.Severity   `json:"severity" binding:"required"`
	Message   string            `json:"message" binding:"required"`
	CreatedBy string            `json:"created_by"`
	Metadata  map[string]string `json:"metadata"`
}

// POST /api/v1/alerts - Create alert through the lifecycle gates
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	result, err := h.manager.CreateAlertWithMetadata(c.Request.Context(),
		req.Type, req.Severity, req.Message, req.CreatedBy, req.Metadata)
	if err != nil {
		h.logger.Error("alert creation failed", "type", req.Type, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "alert creation failed"})
		return
	}

	switch result.Outcome {
	case models.OutcomeCreated:
		c.JSON(http.StatusCreated, gin.H{"status": "created", "alert": result.Alert})
	case models.OutcomeDeduplicated:
		c.JSON(http.StatusOK, gin.H{"status": "deduplicated", "alert": result.Alert})
	default:
		c.JSON(http.StatusConflict, gin.H{
			"status":    "rejected",
			"reason":    result.Rejection.Reason,
			"message":   result.Rejection.Message(),
			"retryable": result.Rejection.Retryable(),
		})
	}
}

// GET /api/v1/alerts - List alerts, optionally filtered by status
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.manager.GetAlerts(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.logger.Error("alert listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "alert listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "alerts": alerts, "count": len(alerts)})
}

// GET /api/v1/alerts/:id
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, err := h.manager.GetAlertByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "alert lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "alert": alert})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PUT /api/v1/alerts/:id/status
func (h *AlertHandler) UpdateAlertStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	found, err := h.manager.UpdateAlertStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.logger.Error("alert status update failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "status update failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type acknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledged_by"`
}

// PUT /api/v1/alerts/:id/acknowledge
func (h *AlertHandler) AcknowledgeAlert(c *gin.Context) {
	var req acknowledgeRequest
	_ = c.ShouldBindJSON(&req)

	found, err := h.manager.AcknowledgeAlert(c.Request.Context(), c.Param("id"), req.AcknowledgedBy)
	if err != nil {
		h.logger.Error("alert acknowledgment failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "acknowledgment failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// DELETE /api/v1/alerts/:id
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	found, err := h.manager.DeleteAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("alert deletion failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "deletion failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type baselineCheckRequest struct {
	MetricName   string  `json:"metric_name" binding:"required"`
	MetricType   string  `json:"metric_type"`
	CurrentValue float64 `json:"current_value"`
	MetricClass  string  `json:"metric_class"`
	Environment  string  `json:"environment"`
}

// POST /api/v1/alerts/baseline-check - Compare a live value against its
// historical 95th percentile and raise a deviation alert when it breaches.
func (h *AlertHandler) BaselineCheck(c *gin.Context) {
	var req baselineCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	alert, err := h.manager.CheckBaselineAndCreateAlert(c.Request.Context(),
		req.MetricName, req.MetricType, req.CurrentValue,
		h.cfg.BaselineThresholdPercent, req.MetricClass, req.Environment)
	if err != nil {
		h.logger.Error("baseline check failed", "metric", req.MetricName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "baseline check failed"})
		return
	}

	if alert == nil {
		c.JSON(http.StatusOK, gin.H{"status": "success", "breached": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "breached": true, "alert": alert})
}
