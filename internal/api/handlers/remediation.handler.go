package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/axops/axops-core/internal/models"
	"github.com/axops/axops-core/internal/remediation"
	"github.com/axops/axops-core/pkg/logger"
)

type RemediationHandler struct {
	engine *remediation.Engine
	logger logger.Logger
}

func NewRemediationHandler(engine *remediation.Engine, logger logger.Logger) *RemediationHandler {
	return &RemediationHandler{engine: engine, logger: logger}
}

// POST /api/v1/remediation/rules
func (h *RemediationHandler) CreateRule(c *gin.Context) {
	var rule models.RemediationRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	created, err := h.engine.CreateRule(c.Request.Context(), &rule)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": verr.Error()})
			return
		}
		h.logger.Error("rule creation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "rule creation failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "rule": created})
}

// GET /api/v1/remediation/rules?enabled=true
func (h *RemediationHandler) GetRules(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"
	rules, err := h.engine.ListRules(c.Request.Context(), enabledOnly)
	if err != nil {
		h.logger.Error("rule listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "rule listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "rules": rules, "count": len(rules)})
}

// GET /api/v1/remediation/rules/:id
func (h *RemediationHandler) GetRule(c *gin.Context) {
	rule, err := h.engine.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "rule lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "rule": rule})
}

// PUT /api/v1/remediation/rules/:id - Partial update; absent fields keep
// their stored values
func (h *RemediationHandler) UpdateRule(c *gin.Context) {
	var update models.RuleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	rule, err := h.engine.UpdateRule(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "rule not found"})
			return
		}
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": verr.Error()})
			return
		}
		h.logger.Error("rule update failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "rule update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "rule": rule})
}

// DELETE /api/v1/remediation/rules/:id
func (h *RemediationHandler) DeleteRule(c *gin.Context) {
	found, err := h.engine.DeleteRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("rule deletion failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "rule deletion failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type evaluateRequest struct {
	Metrics map[string]interface{} `json:"metrics" binding:"required"`
}

// POST /api/v1/remediation/evaluate - Which enabled rules would fire on this
// metrics snapshot
func (h *RemediationHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	triggered, err := h.engine.EvaluateConditions(c.Request.Context(), req.Metrics)
	if err != nil {
		h.logger.Error("rule evaluation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "rule evaluation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "triggered": triggered, "count": len(triggered)})
}

type executeRequest struct {
	TriggerData map[string]interface{} `json:"trigger_data"`
}

// POST /api/v1/remediation/rules/:id/execute - Start an execution; the
// actions run asynchronously and the response carries the execution ID to
// poll
func (h *RemediationHandler) ExecuteRule(c *gin.Context) {
	var req executeRequest
	_ = c.ShouldBindJSON(&req)

	handle, err := h.engine.ExecuteRemediation(c.Request.Context(), c.Param("id"), req.TriggerData)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "rule not found"})
		case errors.Is(err, remediation.ErrCooldownActive):
			c.JSON(http.StatusTooManyRequests, gin.H{"status": "error", "error": "rule cooldown active"})
		default:
			h.logger.Error("execution start failed", "rule_id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "execution start failed"})
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "success", "execution_id": handle.ID()})
}

// GET /api/v1/remediation/executions?rule_id=
func (h *RemediationHandler) GetExecutions(c *gin.Context) {
	executions, err := h.engine.GetExecutionHistory(c.Request.Context(), c.Query("rule_id"))
	if err != nil {
		h.logger.Error("execution history failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "execution history failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "executions": executions, "count": len(executions)})
}

// GET /api/v1/remediation/executions/:id
func (h *RemediationHandler) GetExecution(c *gin.Context) {
	execution, err := h.engine.GetExecution(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "execution not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "execution lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "execution": execution})
}
