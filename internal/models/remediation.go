package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Comparator is the operator of a trigger condition.
type Comparator string

const (
	ComparatorEq Comparator = "eq"
	ComparatorGt Comparator = "gt"
	ComparatorLt Comparator = "lt"
)

// Condition is one trigger condition of a remediation rule: the named
// metric must satisfy Comparator against Value. Conditions on a rule are
// ANDed in declared order.
type Condition struct {
	Metric     string      `json:"metric" yaml:"metric"`
	Comparator Comparator  `json:"comparator" yaml:"comparator"`
	Value      interface{} `json:"value" yaml:"value"`
}

// Validate checks a condition at rule-creation time so malformed rules are
// rejected before they ever reach evaluation.
func (c Condition) Validate() error {
	if strings.TrimSpace(c.Metric) == "" {
		return &ValidationError{Field: "metric", Detail: "metric name is required"}
	}
	switch c.Comparator {
	case ComparatorEq:
	case ComparatorGt, ComparatorLt:
		if _, ok := AsFloat(c.Value); !ok {
			return &ValidationError{
				Field:  "value",
				Detail: fmt.Sprintf("comparator %q requires a numeric value, got %T", c.Comparator, c.Value),
			}
		}
	default:
		return &ValidationError{Field: "comparator", Detail: fmt.Sprintf("unknown comparator %q", c.Comparator)}
	}
	return nil
}

// NormalizeConditionKey converts the legacy comparator-in-key encoding
// ("batch_backlog>" with an expected value) into a tagged condition. Keys
// without a trailing comparator become equality conditions.
func NormalizeConditionKey(key string, value interface{}) Condition {
	switch {
	case strings.HasSuffix(key, ">"):
		return Condition{Metric: strings.TrimSuffix(key, ">"), Comparator: ComparatorGt, Value: value}
	case strings.HasSuffix(key, "<"):
		return Condition{Metric: strings.TrimSuffix(key, "<"), Comparator: ComparatorLt, Value: value}
	default:
		return Condition{Metric: key, Comparator: ComparatorEq, Value: value}
	}
}

// ActionKind is the fixed vocabulary of remediation actions.
type ActionKind string

const (
	ActionRestartBatchJob  ActionKind = "restart_batch_job"
	ActionKillSession      ActionKind = "kill_session"
	ActionSendNotification ActionKind = "send_notification"
)

// KnownActionKind reports whether k is part of the dispatchable vocabulary.
func KnownActionKind(k ActionKind) bool {
	switch k {
	case ActionRestartBatchJob, ActionKillSession, ActionSendNotification:
		return true
	}
	return false
}

// ActionSpec is one step of a rule's remediation sequence.
type ActionSpec struct {
	Name              string            `json:"name" yaml:"name"`
	Kind              ActionKind        `json:"kind" yaml:"kind"`
	Params            map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	ContinueOnFailure bool              `json:"continue_on_failure" yaml:"continue_on_failure"`
}

// DisplayName returns the step label recorded in execution history.
func (a ActionSpec) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return string(a.Kind)
}

// Validate rejects unknown action kinds at rule-creation time.
func (a ActionSpec) Validate() error {
	if !KnownActionKind(a.Kind) {
		return &ValidationError{Field: "kind", Detail: fmt.Sprintf("unknown action kind %q", a.Kind)}
	}
	return nil
}

// RemediationRule maps trigger conditions onto an ordered action sequence.
// MaxAttempts is persisted for forward compatibility; the executor does not
// retry.
type RemediationRule struct {
	ID                   string       `json:"id"` // RULE_yyyyMMdd_HHmmss
	Name                 string       `json:"name"`
	Description          string       `json:"description,omitempty"`
	TriggerConditions    []Condition  `json:"trigger_conditions"`
	Actions              []ActionSpec `json:"actions"`
	Priority             int          `json:"priority"`
	Enabled              bool         `json:"enabled"`
	CooldownMinutes      int          `json:"cooldown_minutes"`
	MaxAttempts          int          `json:"max_attempts,omitempty"`
	TimeoutSeconds       int          `json:"timeout_seconds,omitempty"`
	RequiresConfirmation bool         `json:"requires_confirmation"`
	BusinessImpact       string       `json:"business_impact,omitempty"`
	CreatedBy            string       `json:"created_by,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// Validate checks the whole rule at write time.
func (r *RemediationRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Detail: "rule name is required"}
	}
	if len(r.TriggerConditions) == 0 {
		return &ValidationError{Field: "trigger_conditions", Detail: "at least one condition is required"}
	}
	for _, c := range r.TriggerConditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if len(r.Actions) == 0 {
		return &ValidationError{Field: "actions", Detail: "at least one action is required"}
	}
	for _, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	if r.CooldownMinutes < 0 {
		return &ValidationError{Field: "cooldown_minutes", Detail: "cooldown must not be negative"}
	}
	if r.MaxAttempts < 0 {
		return &ValidationError{Field: "max_attempts", Detail: "max attempts must not be negative"}
	}
	return nil
}

// RuleUpdate carries a partial rule update; nil fields are left unchanged.
type RuleUpdate struct {
	Name                 *string       `json:"name,omitempty"`
	Description          *string       `json:"description,omitempty"`
	TriggerConditions    *[]Condition  `json:"trigger_conditions,omitempty"`
	Actions              *[]ActionSpec `json:"actions,omitempty"`
	Priority             *int          `json:"priority,omitempty"`
	Enabled              *bool         `json:"enabled,omitempty"`
	CooldownMinutes      *int          `json:"cooldown_minutes,omitempty"`
	MaxAttempts          *int          `json:"max_attempts,omitempty"`
	TimeoutSeconds       *int          `json:"timeout_seconds,omitempty"`
	RequiresConfirmation *bool         `json:"requires_confirmation,omitempty"`
	BusinessImpact       *string       `json:"business_impact,omitempty"`
}

// ExecutionStatus is the remediation execution state machine. Transitions
// only move forward: Pending -> Running -> Success | Failed.
type ExecutionStatus string

const (
	ExecutionPending ExecutionStatus = "Pending"
	ExecutionRunning ExecutionStatus = "Running"
	ExecutionSuccess ExecutionStatus = "Success"
	ExecutionFailed  ExecutionStatus = "Failed"
)

// Terminal reports whether the status is final.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionSuccess || s == ExecutionFailed
}

// Action step outcomes recorded in execution history.
const (
	ActionOutcomeSuccess = "success"
	ActionOutcomeFailed  = "failed"
	ActionOutcomeSkipped = "skipped"
)

// ActionResult records one executed (or skipped) action step.
type ActionResult struct {
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RemediationExecution is one run of a rule's action sequence. Once the
// status is terminal the record is immutable history.
type RemediationExecution struct {
	ID              string                 `json:"id"` // EXEC_yyyyMMdd_HHmmss_uuid
	RuleID          string                 `json:"rule_id"`
	TriggerData     map[string]interface{} `json:"trigger_data,omitempty"`
	Status          ExecutionStatus        `json:"status"`
	ActionsExecuted []ActionResult         `json:"actions_executed"`
	StartTime       time.Time              `json:"start_time"`
	EndTime         *time.Time             `json:"end_time,omitempty"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
}

// AsFloat coerces the numeric types a JSON/YAML decode or a metrics snapshot
// can produce into a float64.
func AsFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
