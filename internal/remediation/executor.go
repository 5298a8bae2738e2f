package remediation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axops/axops-core/internal/metrics"
	"github.com/axops/axops-core/internal/models"
)

// ExecutionHandle is returned by ExecuteRemediation once the Pending record
// is durable. Done is closed when the execution reaches a terminal status.
type ExecutionHandle struct {
	id   string
	done chan struct{}
}

// ID is the EXEC_ business key of the started execution.
func (h *ExecutionHandle) ID() string { return h.id }

// Done unblocks when the execution is terminal. Callers poll the store for
// the final record; the handle itself carries no mutable state.
func (h *ExecutionHandle) Done() <-chan struct{} { return h.done }

// ExecuteRemediation starts a run of the rule's action sequence. The Pending
// execution record is persisted before return; the actions run on a detached
// goroutine. When the rule has a cooldown, an atomic claim with the cooldown
// as TTL closes the window against concurrent triggers.
func (e *Engine) ExecuteRemediation(ctx context.Context, ruleID string, triggerData map[string]interface{}) (*ExecutionHandle, error) {
	rule, err := e.store.GetRule(ctx, ruleID)
	if err != nil {
		if err == models.ErrNotFound {
			return nil, models.ErrNotFound
		}
		return nil, &models.PersistenceError{Op: "get rule", Err: err}
	}

	if rule.CooldownMinutes > 0 && e.cache != nil {
		ok, err := e.cache.Claim(ctx, "remediation-cooldown:"+rule.ID,
			time.Duration(rule.CooldownMinutes)*time.Minute)
		if err != nil {
			e.logger.Warn("cooldown claim errored, proceeding", "rule_id", rule.ID, "error", err)
		} else if !ok {
			return nil, ErrCooldownActive
		}
	}

	now := e.now()
	exec := &models.RemediationExecution{
		ID:          models.NewExecutionKey(now),
		RuleID:      rule.ID,
		TriggerData: triggerData,
		Status:      models.ExecutionPending,
		StartTime:   now,
	}
	if err := e.store.CreateExecution(ctx, exec); err != nil {
		return nil, &models.PersistenceError{Op: "create execution", Err: err}
	}

	handle := &ExecutionHandle{id: exec.ID, done: make(chan struct{})}
	e.wg.Add(1)
	go e.run(rule, exec, handle)

	e.logger.Info("remediation execution started",
		"execution_id", exec.ID, "rule_id", rule.ID, "actions", len(rule.Actions))
	return handle, nil
}

// run drives one execution to a terminal state. It never inherits the
// caller's context: an HTTP request ending must not abort a remediation in
// flight.
func (e *Engine) run(rule *models.RemediationRule, exec *models.RemediationExecution, handle *ExecutionHandle) {
	defer e.wg.Done()
	defer close(handle.done)

	timeout := time.Duration(rule.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(e.cfg.ActionTimeoutSeconds) * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			exec.Status = models.ExecutionFailed
			exec.ErrorMessage = fmt.Sprintf("execution panicked: %v", r)
			e.finish(ctx, exec)
		}
	}()

	exec.Status = models.ExecutionRunning
	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		e.logger.Error("failed to mark execution running", "execution_id", exec.ID, "error", err)
	}

	for _, action := range rule.Actions {
		result := models.ActionResult{
			Action:    action.DisplayName(),
			Timestamp: e.now(),
		}

		err := e.dispatch(ctx, rule, action, exec.TriggerData)
		switch {
		case err == nil:
			result.Status = models.ActionOutcomeSuccess
		case errors.Is(err, ErrActionUnavailable):
			result.Status = models.ActionOutcomeSkipped
			result.Message = err.Error()
		default:
			result.Status = models.ActionOutcomeFailed
			result.Message = err.Error()
		}
		exec.ActionsExecuted = append(exec.ActionsExecuted, result)
		metrics.RemediationActionsTotal.WithLabelValues(string(action.Kind), result.Status).Inc()

		if result.Status == models.ActionOutcomeFailed && !action.ContinueOnFailure {
			exec.Status = models.ExecutionFailed
			exec.ErrorMessage = fmt.Sprintf("action %q failed: %s", action.DisplayName(), result.Message)
			e.finish(ctx, exec)
			return
		}
	}

	exec.Status = models.ExecutionSuccess
	e.finish(ctx, exec)
}

// finish stamps the end time and persists the terminal record. The write runs
// outside the action-timeout context so a timed-out execution still lands
// Failed instead of stranding Running until the startup sweep.
func (e *Engine) finish(ctx context.Context, exec *models.RemediationExecution) {
	end := e.now()
	exec.EndTime = &end
	if err := e.store.UpdateExecution(context.WithoutCancel(ctx), exec); err != nil {
		e.logger.Error("failed to persist terminal execution",
			"execution_id", exec.ID, "status", exec.Status, "error", err)
	}

	status := "failed"
	if exec.Status == models.ExecutionSuccess {
		status = "success"
	}
	metrics.RemediationExecutionsTotal.WithLabelValues(status).Inc()
	metrics.RemediationDuration.WithLabelValues(status).Observe(end.Sub(exec.StartTime).Seconds())

	if exec.Status == models.ExecutionFailed {
		e.logger.Warn("remediation execution failed",
			"execution_id", exec.ID, "rule_id", exec.RuleID, "error", exec.ErrorMessage)
		return
	}
	e.logger.Info("remediation execution finished",
		"execution_id", exec.ID, "rule_id", exec.RuleID, "actions_executed", len(exec.ActionsExecuted))
}

// GetExecution fetches one execution record.
func (e *Engine) GetExecution(ctx context.Context, id string) (*models.RemediationExecution, error) {
	return e.store.GetExecution(ctx, id)
}

// RecoverStaleExecutions forces executions still marked Running after a
// restart into Failed. Run once at startup; anything Running and older than
// olderThan belongs to a dead process.
func (e *Engine) RecoverStaleExecutions(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := e.now().Add(-olderThan)
	stale, err := e.store.ListRunningBefore(ctx, cutoff)
	if err != nil {
		return 0, &models.PersistenceError{Op: "list running executions", Err: err}
	}

	recovered := 0
	for _, exec := range stale {
		exec.Status = models.ExecutionFailed
		exec.ErrorMessage = "execution interrupted by service restart"
		end := e.now()
		exec.EndTime = &end
		if err := e.store.UpdateExecution(ctx, exec); err != nil {
			e.logger.Error("failed to recover stale execution", "execution_id", exec.ID, "error", err)
			continue
		}
		metrics.RemediationExecutionsTotal.WithLabelValues("failed").Inc()
		recovered++
	}
	if recovered > 0 {
		e.logger.Warn("recovered stale remediation executions", "count", recovered)
	}
	return recovered, nil
}

// Wait blocks until all in-flight executions are terminal. For shutdown and
// tests.
func (e *Engine) Wait() {
	e.wg.Wait()
}
