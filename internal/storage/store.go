// Package storage defines the persistence contract consumed by the alerting,
// correlation and remediation engines. Implementations own durability; the
// engines only require keyed CRUD, a handful of window queries, and the
// conditional-update (claim) operations that close their read-then-act races.
package storage

import (
	"context"
	"time"

	"github.com/axops/axops-core/internal/models"
)

// AlertStore persists alerts and answers the window queries behind the
// lifecycle gates and the correlation scan.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	UpdateAlert(ctx context.Context, alert *models.Alert) error
	DeleteAlert(ctx context.Context, id string) error
	ListAlerts(ctx context.Context, q models.AlertQuery) ([]*models.Alert, error)

	// FindActiveDuplicate returns an Active alert with identical type,
	// severity and message created at or after since, or nil.
	FindActiveDuplicate(ctx context.Context, alertType string, severity models.Severity, message string, since time.Time) (*models.Alert, error)

	// CountByTypeSince counts alerts of the given type created at or after
	// since, regardless of severity, message or status.
	CountByTypeSince(ctx context.Context, alertType string, since time.Time) (int, error)

	// FindRecentByTypeSeverity returns the earliest alert with the given
	// type and severity created at or after since, or nil.
	FindRecentByTypeSeverity(ctx context.Context, alertType string, severity models.Severity, since time.Time) (*models.Alert, error)

	// ListUncorrelatedActive returns Active alerts created at or after since
	// that carry no correlation ID yet.
	ListUncorrelatedActive(ctx context.Context, since time.Time) ([]*models.Alert, error)

	// ClaimForIncident atomically sets the alert's correlation ID if and
	// only if it is currently unset. Returns false when the alert is gone or
	// already claimed by another incident.
	ClaimForIncident(ctx context.Context, alertID, incidentID string) (bool, error)

	// ListByIncident returns an incident's member alerts ordered by creation
	// time ascending.
	ListByIncident(ctx context.Context, incidentID string) ([]*models.Alert, error)
}

// IncidentStore persists incidents.
type IncidentStore interface {
	CreateIncident(ctx context.Context, incident *models.Incident) error
	GetIncident(ctx context.Context, id string) (*models.Incident, error)
	UpdateIncident(ctx context.Context, incident *models.Incident) error
	ListIncidents(ctx context.Context, status string) ([]*models.Incident, error)
}

// RuleStore persists remediation rules.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *models.RemediationRule) error
	GetRule(ctx context.Context, id string) (*models.RemediationRule, error)
	UpdateRule(ctx context.Context, rule *models.RemediationRule) error
	DeleteRule(ctx context.Context, id string) error
	ListRules(ctx context.Context, enabledOnly bool) ([]*models.RemediationRule, error)
}

// ExecutionStore persists remediation executions.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec *models.RemediationExecution) error
	GetExecution(ctx context.Context, id string) (*models.RemediationExecution, error)
	UpdateExecution(ctx context.Context, exec *models.RemediationExecution) error

	// LatestExecutionForRule returns the rule's most recent execution by
	// start time, any status, or nil.
	LatestExecutionForRule(ctx context.Context, ruleID string) (*models.RemediationExecution, error)

	// ListExecutions returns executions ordered by start time descending,
	// optionally filtered by rule, capped at limit.
	ListExecutions(ctx context.Context, ruleID string, limit int) ([]*models.RemediationExecution, error)

	// ListRunningBefore returns executions still in Running whose start time
	// is before the cutoff. Used by the startup reconciliation sweep.
	ListRunningBefore(ctx context.Context, cutoff time.Time) ([]*models.RemediationExecution, error)
}

// Store aggregates the four collections.
type Store interface {
	AlertStore
	IncidentStore
	RuleStore
	ExecutionStore
}
