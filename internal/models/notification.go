package models

import "time"

// Notification kinds, used as the metrics label and channel hint.
const (
	NotificationKindAlert       = "alert"
	NotificationKindIncident    = "incident"
	NotificationKindRemediation = "remediation"
)

// Notification is one outbound operator message, fanned out to whichever
// channels are enabled.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Component string    `json:"component,omitempty"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}
