package services

import (
	"context"
	"fmt"
	"time"

	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/logging"
	"github.com/axops/axops-core/internal/metrics"
	"github.com/axops/axops-core/internal/models"
	corelogger "github.com/axops/axops-core/pkg/logger"
)

// NotificationService fans a notification out to every enabled channel. It
// satisfies the alerting lifecycle's Notifier and carries remediation's
// send_notification action.
type NotificationService struct {
	integrations *IntegrationsService
	logger       logging.Logger
}

func NewNotificationService(cfg config.IntegrationsConfig, logger corelogger.Logger) *NotificationService {
	return &NotificationService{
		integrations: NewIntegrationsService(cfg, logger),
		logger:       logging.FromCoreLogger(logger),
	}
}

// Send dispatches the notification to all configured integrations. A partial
// delivery is reported as an error but never stops the remaining channels.
func (s *NotificationService) Send(ctx context.Context, notification *models.Notification) error {
	var failed int

	if err := s.integrations.SendSlackNotification(ctx, notification); err != nil {
		s.logger.Error("Slack notification failed", "error", err)
		failed++
		metrics.NotificationsSent.WithLabelValues("slack", notification.Kind, "false").Inc()
	} else {
		metrics.NotificationsSent.WithLabelValues("slack", notification.Kind, "true").Inc()
	}

	if err := s.integrations.SendMSTeamsNotification(ctx, notification); err != nil {
		s.logger.Error("MS Teams notification failed", "error", err)
		failed++
		metrics.NotificationsSent.WithLabelValues("teams", notification.Kind, "false").Inc()
	} else {
		metrics.NotificationsSent.WithLabelValues("teams", notification.Kind, "true").Inc()
	}

	if err := s.integrations.SendEmailNotification(ctx, notification); err != nil {
		s.logger.Error("Email notification failed", "error", err)
		failed++
		metrics.NotificationsSent.WithLabelValues("email", notification.Kind, "false").Inc()
	} else {
		metrics.NotificationsSent.WithLabelValues("email", notification.Kind, "true").Inc()
	}

	if failed > 0 {
		return fmt.Errorf("notification partially failed: %d/3 integrations failed", failed)
	}
	return nil
}

// SendAlert delivers an alert notification.
func (s *NotificationService) SendAlert(ctx context.Context, alert *models.Alert) error {
	return s.Send(ctx, &models.Notification{
		ID:        fmt.Sprintf("alert-%s", alert.ID),
		Kind:      models.NotificationKindAlert,
		Title:     fmt.Sprintf("%s: %s", alert.Severity, alert.Type),
		Message:   alert.Message,
		Component: alert.AosServer(),
		Severity:  alert.Severity,
		Timestamp: alert.Timestamp,
	})
}

// SendIncident delivers a correlation incident notification.
func (s *NotificationService) SendIncident(ctx context.Context, incident *models.Incident) error {
	return s.Send(ctx, &models.Notification{
		ID:    fmt.Sprintf("incident-%s", incident.ID),
		Kind:  models.NotificationKindIncident,
		Title: fmt.Sprintf("Incident: %s", incident.Title),
		Message: fmt.Sprintf("%s (%d alerts, confidence %d%%). %s",
			incident.CorrelationReason,
			incident.AlertCount,
			incident.ConfidenceScore,
			incident.Description),
		Component: "correlation-engine",
		Severity:  incident.Severity,
		Timestamp: incident.FirstDetectedAt,
	})
}

// SendNotification delivers a remediation action message.
func (s *NotificationService) SendNotification(ctx context.Context, subject, message string) error {
	return s.Send(ctx, &models.Notification{
		ID:        fmt.Sprintf("remediation-%d", time.Now().UnixNano()),
		Kind:      models.NotificationKindRemediation,
		Title:     subject,
		Message:   message,
		Component: "remediation-engine",
		Severity:  models.SeverityInfo,
		Timestamp: time.Now().UTC(),
	})
}
