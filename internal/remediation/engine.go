// Package remediation evaluates corrective-action rules against live metric
// snapshots and executes their action sequences as detached units of work
// with a full, immutable execution history.
package remediation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/logging"
	"github.com/axops/axops-core/internal/models"
	"github.com/axops/axops-core/internal/storage"
	"github.com/axops/axops-core/pkg/cache"
	corelogger "github.com/axops/axops-core/pkg/logger"
)

// ErrCooldownActive is returned by ExecuteRemediation when the rule's
// cooldown claim is held, i.e. another execution started inside the window.
var ErrCooldownActive = errors.New("rule cooldown active")

type ruleStore interface {
	storage.RuleStore
	storage.ExecutionStore
}

// Engine is the remediation rule engine.
type Engine struct {
	store  ruleStore
	cache  cache.Cache
	caps   ActionCapabilities
	cfg    config.RemediationConfig
	logger logging.Logger

	now func() time.Time
	wg  sync.WaitGroup
}

func NewEngine(store ruleStore, coord cache.Cache, caps ActionCapabilities, cfg config.RemediationConfig, logger corelogger.Logger) *Engine {
	return &Engine{
		store:  store,
		cache:  coord,
		caps:   caps,
		cfg:    cfg,
		logger: logging.FromCoreLogger(logger),
		now:    time.Now,
	}
}

/* ------------------------------ rule CRUD ------------------------------- */

// CreateRule validates and persists a new rule. An empty ID gets a RULE_
// business key; a key collision (two rules in the same second) gets a random
// suffix.
func (e *Engine) CreateRule(ctx context.Context, rule *models.RemediationRule) (*models.RemediationRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	now := e.now()
	if rule.ID == "" {
		rule.ID = models.NewRuleKey(now)
		if existing, err := e.store.GetRule(ctx, rule.ID); err == nil && existing != nil {
			rule.ID = rule.ID + "_" + models.NewID()[:8]
		}
	}
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := e.store.CreateRule(ctx, rule); err != nil {
		return nil, &models.PersistenceError{Op: "create rule", Err: err}
	}
	e.logger.Info("remediation rule created", "rule_id", rule.ID, "name", rule.Name, "priority", rule.Priority)
	return rule, nil
}

// UpdateRule applies a partial update and re-validates the result.
func (e *Engine) UpdateRule(ctx context.Context, id string, update models.RuleUpdate) (*models.RemediationRule, error) {
	rule, err := e.store.GetRule(ctx, id)
	if err != nil {
		if err == models.ErrNotFound {
			return nil, models.ErrNotFound
		}
		return nil, &models.PersistenceError{Op: "get rule", Err: err}
	}

	if update.Name != nil {
		rule.Name = *update.Name
	}
	if update.Description != nil {
		rule.Description = *update.Description
	}
	if update.TriggerConditions != nil {
		rule.TriggerConditions = *update.TriggerConditions
	}
	if update.Actions != nil {
		rule.Actions = *update.Actions
	}
	if update.Priority != nil {
		rule.Priority = *update.Priority
	}
	if update.Enabled != nil {
		rule.Enabled = *update.Enabled
	}
	if update.CooldownMinutes != nil {
		rule.CooldownMinutes = *update.CooldownMinutes
	}
	if update.MaxAttempts != nil {
		rule.MaxAttempts = *update.MaxAttempts
	}
	if update.TimeoutSeconds != nil {
		rule.TimeoutSeconds = *update.TimeoutSeconds
	}
	if update.RequiresConfirmation != nil {
		rule.RequiresConfirmation = *update.RequiresConfirmation
	}
	if update.BusinessImpact != nil {
		rule.BusinessImpact = *update.BusinessImpact
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	rule.UpdatedAt = e.now()

	if err := e.store.UpdateRule(ctx, rule); err != nil {
		return nil, &models.PersistenceError{Op: "update rule", Err: err}
	}
	e.logger.Info("remediation rule updated", "rule_id", rule.ID)
	return rule, nil
}

// DeleteRule removes a rule. Returns false for unknown IDs.
func (e *Engine) DeleteRule(ctx context.Context, id string) (bool, error) {
	if err := e.store.DeleteRule(ctx, id); err != nil {
		if err == models.ErrNotFound {
			return false, nil
		}
		return false, &models.PersistenceError{Op: "delete rule", Err: err}
	}
	e.logger.Info("remediation rule deleted", "rule_id", id)
	return true, nil
}

// GetRule fetches one rule.
func (e *Engine) GetRule(ctx context.Context, id string) (*models.RemediationRule, error) {
	return e.store.GetRule(ctx, id)
}

// ListRules lists rules, priority descending.
func (e *Engine) ListRules(ctx context.Context, enabledOnly bool) ([]*models.RemediationRule, error) {
	rules, err := e.store.ListRules(ctx, enabledOnly)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list rules", Err: err}
	}
	return rules, nil
}

/* ----------------------------- evaluation ------------------------------- */

// EvaluateConditions returns the enabled rules whose conditions all hold
// against the metrics snapshot, priority descending, minus rules inside
// their cooldown window. The cooldown check here is a read; the atomic claim
// happens in ExecuteRemediation.
func (e *Engine) EvaluateConditions(ctx context.Context, snapshot map[string]interface{}) ([]*models.RemediationRule, error) {
	rules, err := e.store.ListRules(ctx, true)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list rules", Err: err}
	}

	now := e.now()
	var triggered []*models.RemediationRule
	for _, rule := range rules {
		if !conditionsHold(rule.TriggerConditions, snapshot) {
			continue
		}
		if rule.CooldownMinutes > 0 {
			last, err := e.store.LatestExecutionForRule(ctx, rule.ID)
			if err != nil {
				return nil, &models.PersistenceError{Op: "latest execution lookup", Err: err}
			}
			if last != nil && now.Sub(last.StartTime) < time.Duration(rule.CooldownMinutes)*time.Minute {
				e.logger.Debug("rule in cooldown, skipping",
					"rule_id", rule.ID, "last_started", last.StartTime)
				continue
			}
		}
		triggered = append(triggered, rule)
	}
	return triggered, nil
}

// conditionsHold checks every condition against the snapshot. A missing
// metric fails its condition.
func conditionsHold(conditions []models.Condition, snapshot map[string]interface{}) bool {
	for _, c := range conditions {
		v, ok := snapshot[c.Metric]
		if !ok {
			return false
		}
		if !conditionHolds(c, v) {
			return false
		}
	}
	return true
}

func conditionHolds(c models.Condition, v interface{}) bool {
	switch c.Comparator {
	case models.ComparatorEq:
		if v == c.Value {
			return true
		}
		// Fall back to numeric comparison when the direct types differ,
		// e.g. an int condition against a float64 snapshot value.
		fv, ok1 := models.AsFloat(v)
		fc, ok2 := models.AsFloat(c.Value)
		return ok1 && ok2 && fv == fc
	case models.ComparatorGt:
		fv, ok1 := models.AsFloat(v)
		fc, ok2 := models.AsFloat(c.Value)
		return ok1 && ok2 && fv > fc
	case models.ComparatorLt:
		fv, ok1 := models.AsFloat(v)
		fc, ok2 := models.AsFloat(c.Value)
		return ok1 && ok2 && fv < fc
	}
	return false
}

/* ------------------------------- history -------------------------------- */

// GetExecutionHistory returns the most recent executions, newest first,
// optionally filtered by rule.
func (e *Engine) GetExecutionHistory(ctx context.Context, ruleID string) ([]*models.RemediationExecution, error) {
	limit := e.cfg.HistoryLimit
	if limit <= 0 {
		limit = 100
	}
	execs, err := e.store.ListExecutions(ctx, ruleID, limit)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list executions", Err: err}
	}
	return execs, nil
}
