// Package alerting implements the alert lifecycle: policy-gated creation,
// status transitions, acknowledgment and baseline-driven anomaly alerts.
package alerting

import (
	"context"
	"time"

	"github.com/axops/axops-core/internal/models"
)

// MaintenanceWindows is the maintenance-calendar collaborator. Evaluation of
// the calendar itself lives outside this core; the lifecycle only consumes
// the verdict.
type MaintenanceWindows interface {
	IsSuppressed(ctx context.Context, now time.Time) (bool, error)
	ActiveWindowNames(ctx context.Context, now time.Time) ([]string, error)
}

// ActorResolver resolves the current actor for audit fields when the caller
// does not supply one.
type ActorResolver interface {
	Resolve(ctx context.Context) string
}

// BaselineProvider answers percentile queries against historical metric
// statistics. A nil result means no baseline exists for the metric.
type BaselineProvider interface {
	GetPercentile95(ctx context.Context, metricName, metricType, metricClass, environment string) (*float64, error)
}

// Notifier is the outbound notification collaborator. Sends are best-effort;
// failures are the notifier's to log, never the lifecycle's to surface.
type Notifier interface {
	SendAlert(ctx context.Context, alert *models.Alert) error
}
