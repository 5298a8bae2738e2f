package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/logging"
	"github.com/axops/axops-core/internal/remediation"
	corelogger "github.com/axops/axops-core/pkg/logger"
)

// AOSControlService talks to the management API of the AOS fleet. It backs
// the remediation actions that restart batch jobs and terminate user
// sessions.
type AOSControlService struct {
	cfg    config.IntegrationsConfig
	client *http.Client
	logger logging.Logger
}

func NewAOSControlService(cfg config.IntegrationsConfig, logger corelogger.Logger) *AOSControlService {
	timeout := time.Duration(cfg.AOS.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AOSControlService{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logging.FromCoreLogger(logger),
	}
}

// RestartBatchJob asks the management API to restart a batch job.
func (s *AOSControlService) RestartBatchJob(ctx context.Context, jobID string) error {
	if err := s.post(ctx, "/api/v1/batch-jobs/restart", map[string]string{"job_id": jobID}); err != nil {
		return fmt.Errorf("restart batch job %s: %w", jobID, err)
	}
	s.logger.Info("batch job restart requested", "job_id", jobID)
	return nil
}

// KillSession asks the management API to terminate a user session.
func (s *AOSControlService) KillSession(ctx context.Context, sessionID string) error {
	if err := s.post(ctx, "/api/v1/sessions/terminate", map[string]string{"session_id": sessionID}); err != nil {
		return fmt.Errorf("kill session %s: %w", sessionID, err)
	}
	s.logger.Info("session termination requested", "session_id", sessionID)
	return nil
}

func (s *AOSControlService) post(ctx context.Context, path string, payload map[string]string) error {
	if !s.cfg.AOS.Enabled || s.cfg.AOS.BaseURL == "" {
		return remediation.ErrActionUnavailable
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.AOS.BaseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.AOS.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.AOS.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("management API returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// RemediationActions bundles the AOS control surface and the notification
// fan-out into the capability set the remediation executor dispatches
// against.
type RemediationActions struct {
	aos           *AOSControlService
	notifications *NotificationService
}

func NewRemediationActions(aos *AOSControlService, notifications *NotificationService) *RemediationActions {
	return &RemediationActions{aos: aos, notifications: notifications}
}

func (r *RemediationActions) RestartBatchJob(ctx context.Context, jobID string) error {
	return r.aos.RestartBatchJob(ctx, jobID)
}

func (r *RemediationActions) KillSession(ctx context.Context, sessionID string) error {
	return r.aos.KillSession(ctx, sessionID)
}

func (r *RemediationActions) SendNotification(ctx context.Context, subject, message string) error {
	return r.notifications.SendNotification(ctx, subject, message)
}

var _ remediation.ActionCapabilities = (*RemediationActions)(nil)
