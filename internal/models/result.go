package models

import (
	"fmt"
	"strings"
)

// CreateOutcome discriminates the result of a CreateAlert call.
type CreateOutcome string

const (
	OutcomeCreated      CreateOutcome = "created"
	OutcomeDeduplicated CreateOutcome = "deduplicated"
	OutcomeRejected     CreateOutcome = "rejected"
)

// RejectReason identifies which policy gate rejected an alert request.
type RejectReason string

const (
	RejectMaintenanceSuppressed RejectReason = "maintenance_suppressed"
	RejectThrottled             RejectReason = "throttled"
	RejectSuppressedWindow      RejectReason = "suppressed_window"
)

// Rejection carries the reason data a caller needs to build a user-facing
// message and to decide whether the request is worth retrying later.
type Rejection struct {
	Reason            RejectReason `json:"reason"`
	WindowNames       []string     `json:"window_names,omitempty"`        // maintenance_suppressed
	AlertType         string       `json:"alert_type,omitempty"`          // throttled
	MinutesSinceFirst int          `json:"minutes_since_first,omitempty"` // suppressed_window
}

// Message renders a human-readable rejection summary.
func (r *Rejection) Message() string {
	switch r.Reason {
	case RejectMaintenanceSuppressed:
		return fmt.Sprintf("alert suppressed by maintenance window(s): %s", strings.Join(r.WindowNames, ", "))
	case RejectThrottled:
		return fmt.Sprintf("alert throttled: an alert of type %q was already raised within the last 15 minutes", r.AlertType)
	case RejectSuppressedWindow:
		return fmt.Sprintf("alert suppressed: a matching alert was raised %d minute(s) ago, still inside its 30-minute window", r.MinutesSinceFirst)
	}
	return "alert rejected"
}

// Retryable reports whether the rejection is time-bounded, i.e. the same
// request may succeed once the window has elapsed.
func (r *Rejection) Retryable() bool {
	return r.Reason == RejectThrottled || r.Reason == RejectSuppressedWindow || r.Reason == RejectMaintenanceSuppressed
}

// CreateResult is the discriminated outcome of CreateAlert. Alert is set for
// Created and Deduplicated; Rejection is set for Rejected.
type CreateResult struct {
	Outcome   CreateOutcome `json:"outcome"`
	Alert     *Alert        `json:"alert,omitempty"`
	Rejection *Rejection    `json:"rejection,omitempty"`
}

// Created is a convenience predicate: a brand-new alert was persisted.
func (r *CreateResult) Created() bool { return r.Outcome == OutcomeCreated }
