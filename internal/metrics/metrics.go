// ================================
// internal/metrics/metrics.go - Self-monitoring for AXOPS-CORE
// ================================

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Alert lifecycle metrics
	AlertsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axops_core_alerts_processed_total",
			Help: "CreateAlert calls by outcome",
		},
		[]string{"outcome"}, // created, deduplicated, maintenance_suppressed, throttled, suppressed_window
	)

	BaselineChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axops_core_baseline_checks_total",
			Help: "Baseline threshold checks by result",
		},
		[]string{"result"}, // breached, within, no_baseline
	)

	// Correlation metrics
	CorrelationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axops_core_correlation_runs_total",
			Help: "Correlation engine runs by result",
		},
		[]string{"result"}, // created, merged, none, skipped
	)

	IncidentAlertCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "axops_core_incident_alert_count",
			Help:    "Member alerts per created incident",
			Buckets: []float64{2, 3, 5, 8, 13, 21},
		},
	)

	// Remediation metrics
	RemediationExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axops_core_remediation_executions_total",
			Help: "Remediation executions by terminal status",
		},
		[]string{"status"}, // success, failed
	)

	RemediationActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axops_core_remediation_actions_total",
			Help: "Remediation action steps by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	RemediationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "axops_core_remediation_duration_seconds",
			Help:    "Wall time of remediation executions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// Notification metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axops_core_notifications_sent_total",
			Help: "Notification channel sends by channel and success",
		},
		[]string{"channel", "kind", "success"},
	)

	// Valkey coordination cache metrics
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axops_core_cache_requests_total",
			Help: "Coordination cache requests",
		},
		[]string{"operation", "result"}, // get/set/delete/claim/..., hit/miss/success/error
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axops_core_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "axops_core_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)
