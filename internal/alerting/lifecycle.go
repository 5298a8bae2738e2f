package alerting

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/logging"
	"github.com/axops/axops-core/internal/metrics"
	"github.com/axops/axops-core/internal/models"
	"github.com/axops/axops-core/internal/storage"
	"github.com/axops/axops-core/pkg/cache"
	corelogger "github.com/axops/axops-core/pkg/logger"
)

const fallbackActor = "System"

// Manager decides whether an incoming alert request becomes a new alert, a
// return of an existing one, or a policy rejection, and owns the alert
// status transitions.
type Manager struct {
	store       storage.AlertStore
	cache       cache.Cache
	maintenance MaintenanceWindows
	actors      ActorResolver
	baseline    BaselineProvider
	notifier    Notifier
	cfg         config.AlertingConfig
	logger      logging.Logger

	now func() time.Time

	// notifyWG tracks in-flight notification fan-outs so tests and shutdown
	// can await them.
	notifyWG sync.WaitGroup
}

func NewManager(
	store storage.AlertStore,
	coord cache.Cache,
	maintenance MaintenanceWindows,
	actors ActorResolver,
	baseline BaselineProvider,
	notifier Notifier,
	cfg config.AlertingConfig,
	logger corelogger.Logger,
) *Manager {
	return &Manager{
		store:       store,
		cache:       coord,
		maintenance: maintenance,
		actors:      actors,
		baseline:    baseline,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logging.FromCoreLogger(logger),
		now:         time.Now,
	}
}

// CreateAlert runs the policy gates in order — maintenance, dedup, throttle,
// suppression — and persists a new Active alert only when every gate passes.
// The dedup gate returns the existing alert unchanged; the rejection gates
// return first-class outcomes, not errors. Only store failures surface as
// errors.
func (m *Manager) CreateAlert(ctx context.Context, alertType string, severity models.Severity, message, createdBy string) (*models.CreateResult, error) {
	return m.CreateAlertWithMetadata(ctx, alertType, severity, message, createdBy, nil)
}

// CreateAlertWithMetadata is CreateAlert with caller-supplied metadata, e.g.
// the AOS server the condition was observed on. Metadata never participates
// in the gates; identity is type, severity and message.
func (m *Manager) CreateAlertWithMetadata(ctx context.Context, alertType string, severity models.Severity, message, createdBy string, metadata map[string]string) (*models.CreateResult, error) {
	now := m.now()

	// Gate 1: maintenance window.
	suppressed, err := m.maintenance.IsSuppressed(ctx, now)
	if err != nil {
		m.logger.Warn("maintenance window check failed, treating as not suppressed", "error", err)
	} else if suppressed {
		names, nErr := m.maintenance.ActiveWindowNames(ctx, now)
		if nErr != nil {
			m.logger.Warn("could not resolve active maintenance window names", "error", nErr)
		}
		metrics.AlertsProcessedTotal.WithLabelValues(string(models.RejectMaintenanceSuppressed)).Inc()
		m.logger.Info("alert suppressed by maintenance window", "type", alertType, "windows", names)
		return &models.CreateResult{
			Outcome:   models.OutcomeRejected,
			Rejection: &models.Rejection{Reason: models.RejectMaintenanceSuppressed, WindowNames: names},
		}, nil
	}

	// The remaining gates are read-then-act over store queries; a
	// per-signature claim closes the race between concurrent identical
	// requests across processes. Best-effort: if the cache errors the gates
	// still run, and the store remains the final authority.
	lockKey := m.signatureLockKey(alertType, severity, message)
	if locked, lErr := m.cache.AcquireLock(ctx, lockKey, 5*time.Second); lErr == nil && locked {
		defer func() {
			if rErr := m.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey); rErr != nil {
				m.logger.Debug("failed to release create lock", "key", lockKey, "error", rErr)
			}
		}()
	}

	// Gate 2: deduplication — identical Active alert inside the window is
	// returned as-is, no write, no notification.
	dedupSince := now.Add(-time.Duration(m.cfg.DedupWindowMinutes) * time.Minute)
	existing, err := m.store.FindActiveDuplicate(ctx, alertType, severity, message, dedupSince)
	if err != nil {
		return nil, &models.PersistenceError{Op: "dedup lookup", Err: err}
	}
	if existing != nil {
		metrics.AlertsProcessedTotal.WithLabelValues(string(models.OutcomeDeduplicated)).Inc()
		m.logger.Debug("duplicate alert request, returning existing", "alert_key", existing.AlertKey)
		return &models.CreateResult{Outcome: models.OutcomeDeduplicated, Alert: existing}, nil
	}

	// Gate 3: throttle — at most one alert per type inside the window,
	// regardless of severity or message.
	throttleSince := now.Add(-time.Duration(m.cfg.ThrottleWindowMinutes) * time.Minute)
	count, err := m.store.CountByTypeSince(ctx, alertType, throttleSince)
	if err != nil {
		return nil, &models.PersistenceError{Op: "throttle count", Err: err}
	}
	if count >= m.cfg.ThrottleMaxPerType {
		metrics.AlertsProcessedTotal.WithLabelValues(string(models.RejectThrottled)).Inc()
		m.logger.Info("alert throttled", "type", alertType, "recent_count", count)
		return &models.CreateResult{
			Outcome:   models.OutcomeRejected,
			Rejection: &models.Rejection{Reason: models.RejectThrottled, AlertType: alertType},
		}, nil
	}

	// Gate 4: suppression window — same type and severity inside the longer
	// window rejects with the elapsed minutes.
	suppressionSince := now.Add(-time.Duration(m.cfg.SuppressionWindowMinutes) * time.Minute)
	recent, err := m.store.FindRecentByTypeSeverity(ctx, alertType, severity, suppressionSince)
	if err != nil {
		return nil, &models.PersistenceError{Op: "suppression lookup", Err: err}
	}
	if recent != nil {
		minutesSince := int(now.Sub(recent.Timestamp).Minutes())
		metrics.AlertsProcessedTotal.WithLabelValues(string(models.RejectSuppressedWindow)).Inc()
		m.logger.Info("alert suppressed by prior alert window",
			"type", alertType, "severity", severity, "minutes_since_first", minutesSince)
		return &models.CreateResult{
			Outcome:   models.OutcomeRejected,
			Rejection: &models.Rejection{Reason: models.RejectSuppressedWindow, MinutesSinceFirst: minutesSince},
		}, nil
	}

	actor := createdBy
	if actor == "" {
		if m.actors != nil {
			actor = m.actors.Resolve(ctx)
		}
		if actor == "" {
			actor = fallbackActor
		}
	}

	alert := &models.Alert{
		ID:        models.NewID(),
		AlertKey:  models.NewAlertKey(now),
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Status:    models.AlertStatusActive,
		Timestamp: now,
		CreatedBy: actor,
		Metadata:  metadata,
		UpdatedAt: now,
	}
	if err := m.store.CreateAlert(ctx, alert); err != nil {
		return nil, &models.PersistenceError{Op: "create alert", Err: err}
	}

	metrics.AlertsProcessedTotal.WithLabelValues(string(models.OutcomeCreated)).Inc()
	m.logger.Info("alert created",
		"alert_key", alert.AlertKey, "type", alertType, "severity", severity, "created_by", actor)

	m.notifyAsync(alert)

	return &models.CreateResult{Outcome: models.OutcomeCreated, Alert: alert}, nil
}

// notifyAsync fans the alert out to notification channels without blocking
// the caller. The maintenance gate is re-checked at send time since state may
// have changed; channel failures are logged and swallowed.
func (m *Manager) notifyAsync(alert *models.Alert) {
	if m.notifier == nil {
		return
	}
	m.notifyWG.Add(1)
	go func() {
		defer m.notifyWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		suppressed, err := m.maintenance.IsSuppressed(ctx, m.now())
		if err == nil && suppressed {
			m.logger.Debug("skipping notification, maintenance window now active", "alert_key", alert.AlertKey)
			return
		}
		if err := m.notifier.SendAlert(ctx, alert); err != nil {
			m.logger.Error("alert notification failed", "alert_key", alert.AlertKey, "error", err)
		}
	}()
}

// Wait blocks until all in-flight notification fan-outs have completed.
func (m *Manager) Wait() {
	m.notifyWG.Wait()
}

// UpdateAlertStatus sets the alert status verbatim. The transition to
// Resolved stamps ResolvedAt. Returns false for unknown IDs.
func (m *Manager) UpdateAlertStatus(ctx context.Context, id, status string) (bool, error) {
	alert, err := m.store.GetAlert(ctx, id)
	if err != nil {
		if err == models.ErrNotFound {
			return false, nil
		}
		return false, &models.PersistenceError{Op: "get alert", Err: err}
	}

	now := m.now()
	alert.Status = status
	alert.UpdatedAt = now
	if status == models.AlertStatusResolved && alert.ResolvedAt == nil {
		alert.ResolvedAt = &now
	}
	if err := m.store.UpdateAlert(ctx, alert); err != nil {
		return false, &models.PersistenceError{Op: "update alert", Err: err}
	}
	m.logger.Info("alert status updated", "alert_key", alert.AlertKey, "status", status)
	return true, nil
}

// AcknowledgeAlert records who acknowledged the alert and when. Status is
// deliberately untouched.
func (m *Manager) AcknowledgeAlert(ctx context.Context, id, actor string) (bool, error) {
	alert, err := m.store.GetAlert(ctx, id)
	if err != nil {
		if err == models.ErrNotFound {
			return false, nil
		}
		return false, &models.PersistenceError{Op: "get alert", Err: err}
	}

	now := m.now()
	alert.AcknowledgedBy = actor
	alert.AcknowledgedAt = &now
	alert.UpdatedAt = now
	if err := m.store.UpdateAlert(ctx, alert); err != nil {
		return false, &models.PersistenceError{Op: "acknowledge alert", Err: err}
	}
	m.logger.Info("alert acknowledged", "alert_key", alert.AlertKey, "by", actor)
	return true, nil
}

// DeleteAlert removes the alert permanently. Returns false for unknown IDs.
func (m *Manager) DeleteAlert(ctx context.Context, id string) (bool, error) {
	if err := m.store.DeleteAlert(ctx, id); err != nil {
		if err == models.ErrNotFound {
			return false, nil
		}
		return false, &models.PersistenceError{Op: "delete alert", Err: err}
	}
	return true, nil
}

// GetAlerts lists alerts, optionally filtered by status.
func (m *Manager) GetAlerts(ctx context.Context, status string) ([]*models.Alert, error) {
	alerts, err := m.store.ListAlerts(ctx, models.AlertQuery{Status: status})
	if err != nil {
		return nil, &models.PersistenceError{Op: "list alerts", Err: err}
	}
	return alerts, nil
}

// GetActiveAlerts lists alerts with Active status.
func (m *Manager) GetActiveAlerts(ctx context.Context) ([]*models.Alert, error) {
	return m.GetAlerts(ctx, models.AlertStatusActive)
}

// GetAlertByID fetches one alert. Returns models.ErrNotFound for unknown IDs.
func (m *Manager) GetAlertByID(ctx context.Context, id string) (*models.Alert, error) {
	return m.store.GetAlert(ctx, id)
}

func (m *Manager) signatureLockKey(alertType string, severity models.Severity, message string) string {
	h := fnv.New64a()
	h.Write([]byte(message))
	return fmt.Sprintf("alert-create:%s:%s:%x", alertType, severity, h.Sum64())
}
