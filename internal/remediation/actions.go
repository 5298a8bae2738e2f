package remediation

import (
	"context"
	"errors"
	"fmt"

	"github.com/axops/axops-core/internal/models"
)

// ErrActionUnavailable marks an action whose backing capability is not
// configured. The step is recorded as skipped, not failed.
var ErrActionUnavailable = errors.New("action capability unavailable")

// ActionCapabilities is the set of side effects the executor can dispatch.
// Implementations talk to the AOS fleet and the notification channels; tests
// substitute fakes.
type ActionCapabilities interface {
	// RestartBatchJob restarts the identified batch job.
	RestartBatchJob(ctx context.Context, jobID string) error
	// KillSession terminates the identified user session.
	KillSession(ctx context.Context, sessionID string) error
	// SendNotification delivers an operator notification.
	SendNotification(ctx context.Context, subject, message string) error
}

// dispatch runs one action step. The error is nil on success,
// ErrActionUnavailable when the step should be recorded skipped, anything
// else when it failed.
func (e *Engine) dispatch(ctx context.Context, rule *models.RemediationRule, action models.ActionSpec, trigger map[string]interface{}) error {
	if e.caps == nil {
		return ErrActionUnavailable
	}

	switch action.Kind {
	case models.ActionRestartBatchJob:
		jobID := action.Params["job_id"]
		if jobID == "" {
			return fmt.Errorf("restart_batch_job: missing job_id param")
		}
		return e.caps.RestartBatchJob(ctx, jobID)

	case models.ActionKillSession:
		sessionID := action.Params["session_id"]
		if sessionID == "" {
			return fmt.Errorf("kill_session: missing session_id param")
		}
		return e.caps.KillSession(ctx, sessionID)

	case models.ActionSendNotification:
		subject := action.Params["subject"]
		if subject == "" {
			subject = fmt.Sprintf("Remediation triggered: %s", rule.Name)
		}
		message := action.Params["message"]
		if message == "" {
			message = fmt.Sprintf("Rule %s fired with trigger data %v", rule.Name, trigger)
		}
		return e.caps.SendNotification(ctx, subject, message)
	}

	// Unknown kinds are rejected at rule validation; reaching here means the
	// stored rule predates the current vocabulary.
	return fmt.Errorf("undispatchable action kind %q", action.Kind)
}
