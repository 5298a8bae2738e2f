package models

import "time"

// Incident statuses.
const (
	IncidentStatusOpen     = "Open"
	IncidentStatusResolved = "Resolved"
)

// Incident groups related alerts judged to share a root cause. AlertCount
// tracks the number of alerts whose CorrelationID points here; resolving an
// incident cascades Resolved to its still-Active members.
type Incident struct {
	ID                string     `json:"id"`
	IncidentKey       string     `json:"incident_key"` // CORR_yyyyMMdd_HHmmss_8hex
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Severity          Severity   `json:"severity"`
	Status            string     `json:"status"`
	FirstDetectedAt   time.Time  `json:"first_detected_at"`
	AlertCount        int        `json:"alert_count"`
	ConfidenceScore   int        `json:"confidence_score"` // 0-100
	CorrelationReason string     `json:"correlation_reason"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
}
