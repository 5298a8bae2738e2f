package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axops/axops-core/internal/alerting"
	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/correlation"
	"github.com/axops/axops-core/internal/remediation"
	"github.com/axops/axops-core/internal/services"
	"github.com/axops/axops-core/internal/storage/memory"
	"github.com/axops/axops-core/pkg/cache"
	"github.com/axops/axops-core/pkg/logger"
)

type serverFixture struct {
	server      *Server
	alerts      *alerting.Manager
	remediation *remediation.Engine
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment: "test",
		Port:        0,
		Alerting: config.AlertingConfig{
			DedupWindowMinutes:       15,
			ThrottleWindowMinutes:    15,
			ThrottleMaxPerType:       1,
			SuppressionWindowMinutes: 30,
			BaselineThresholdPercent: 30,
		},
		Correlation: config.CorrelationConfig{
			LookbackMinutes:             60,
			TypeChainWindowMinutes:      5,
			ServerAffinityWindowMinutes: 10,
			RunLockSeconds:              60,
		},
		Remediation: config.RemediationConfig{
			HistoryLimit:         100,
			ActionTimeoutSeconds: 30,
		},
		Monitoring: config.MonitoringConfig{MetricsEnabled: true, MetricsPath: "/metrics"},
	}

	log := logger.NewNop()
	store := memory.New()
	coord := cache.NewNoop()

	maintenance, err := services.NewMaintenanceWindowService(nil, log)
	require.NoError(t, err)

	alerts := alerting.NewManager(store, coord, maintenance,
		&services.StaticActorResolver{Actor: "axops"},
		services.NewCacheBaselineProvider(coord, log), nil, cfg.Alerting, log)
	incidents := correlation.NewEngine(store, coord, cfg.Correlation, log)
	remediationEngine := remediation.NewEngine(store, coord, nil, cfg.Remediation, log)

	return &serverFixture{
		server:      NewServer(cfg, log, coord, alerts, incidents, remediationEngine),
		alerts:      alerts,
		remediation: remediationEngine,
	}
}

func (fx *serverFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateAlertEndpointOutcomes(t *testing.T) {
	fx := newServerFixture(t)
	payload := map[string]interface{}{
		"type":     "DeadlockDetected",
		"severity": "Critical",
		"message":  "Deadlock on AOS01",
		"metadata": map[string]string{"AosServer": "AOS01"},
	}

	rec := fx.do(t, http.MethodPost, "/api/v1/alerts", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "created", body["status"])
	alert := body["alert"].(map[string]interface{})
	assert.Equal(t, "Active", alert["status"])
	assert.Equal(t, "axops", alert["created_by"])

	// Identical request inside the dedup window returns the same alert.
	rec = fx.do(t, http.MethodPost, "/api/v1/alerts", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "deduplicated", body["status"])

	// Different message, same type: throttled.
	payload["message"] = "Deadlock on AOS02"
	rec = fx.do(t, http.MethodPost, "/api/v1/alerts", payload)
	require.Equal(t, http.StatusConflict, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "rejected", body["status"])
	assert.Equal(t, "throttled", body["reason"])

	fx.alerts.Wait()
}

func TestCreateAlertEndpointValidation(t *testing.T) {
	fx := newServerFixture(t)
	rec := fx.do(t, http.MethodPost, "/api/v1/alerts", map[string]interface{}{"type": "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertStatusEndpoints(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/alerts", map[string]interface{}{
		"type": "JobFailure", "severity": "Warning", "message": "batch job 42 failed",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	alert := decode(t, rec)["alert"].(map[string]interface{})
	id := alert["id"].(string)

	rec = fx.do(t, http.MethodPut, "/api/v1/alerts/"+id+"/status", map[string]string{"status": "Resolved"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/v1/alerts/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)["alert"].(map[string]interface{})
	assert.Equal(t, "Resolved", got["status"])
	assert.NotNil(t, got["resolved_at"])

	rec = fx.do(t, http.MethodPut, "/api/v1/alerts/missing/status", map[string]string{"status": "Closed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = fx.do(t, http.MethodDelete, "/api/v1/alerts/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodGet, "/api/v1/alerts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	fx.alerts.Wait()
}

func TestCorrelationEndpoints(t *testing.T) {
	fx := newServerFixture(t)

	// With no candidates a run reports nothing correlated.
	rec := fx.do(t, http.MethodPost, "/api/v1/correlation/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["correlated"])

	rec = fx.do(t, http.MethodGet, "/api/v1/incidents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["count"])

	rec = fx.do(t, http.MethodPut, "/api/v1/incidents/missing/resolve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemediationEndpoints(t *testing.T) {
	fx := newServerFixture(t)

	rulePayload := map[string]interface{}{
		"name":     "Backlog restart",
		"priority": 10,
		"enabled":  true,
		"trigger_conditions": []map[string]interface{}{
			{"metric": "batch_backlog", "comparator": "gt", "value": 100},
		},
		"actions": []map[string]interface{}{
			{"kind": "send_notification"},
		},
	}

	rec := fx.do(t, http.MethodPost, "/api/v1/remediation/rules", rulePayload)
	require.Equal(t, http.StatusCreated, rec.Code)
	rule := decode(t, rec)["rule"].(map[string]interface{})
	ruleID := rule["id"].(string)

	// Unknown action kinds are rejected up front.
	bad := map[string]interface{}{
		"name": "Bad",
		"trigger_conditions": []map[string]interface{}{
			{"metric": "x", "comparator": "eq", "value": 1},
		},
		"actions": []map[string]interface{}{{"kind": "format_disk"}},
	}
	rec = fx.do(t, http.MethodPost, "/api/v1/remediation/rules", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/v1/remediation/evaluate", map[string]interface{}{
		"metrics": map[string]interface{}{"batch_backlog": 150},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = fx.do(t, http.MethodPost, "/api/v1/remediation/rules/"+ruleID+"/execute", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	execID := decode(t, rec)["execution_id"].(string)
	fx.remediation.Wait()

	rec = fx.do(t, http.MethodGet, "/api/v1/remediation/executions/"+execID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	execution := decode(t, rec)["execution"].(map[string]interface{})
	assert.Equal(t, "Success", execution["status"])

	rec = fx.do(t, http.MethodGet, "/api/v1/remediation/executions?rule_id="+ruleID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = fx.do(t, http.MethodDelete, "/api/v1/remediation/rules/"+ruleID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodGet, "/api/v1/remediation/rules/"+ruleID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])

	rec = fx.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
