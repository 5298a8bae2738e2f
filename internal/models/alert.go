package models

import "time"

// Severity levels for alerts and incidents, ordered Info < Warning < Critical.
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityWarning  Severity = "Warning"
	SeverityCritical Severity = "Critical"
)

// Rank returns the ordering weight of a severity. Unknown severities rank
// below Info so they never dominate an incident.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// MaxSeverity returns the highest-ranked severity of the given set.
func MaxSeverity(severities ...Severity) Severity {
	max := SeverityInfo
	for _, s := range severities {
		if s.Rank() > max.Rank() {
			max = s
		}
	}
	return max
}

// Alert lifecycle statuses. UpdateAlertStatus accepts free-form values, so
// Status stays a plain string; these are the values the engines write.
const (
	AlertStatusActive   = "Active"
	AlertStatusResolved = "Resolved"
	AlertStatusClosed   = "Closed"
)

// MetadataKeyAosServer is the metadata key carrying the originating AOS
// server, used by the correlation engine's server-affinity pass.
const MetadataKeyAosServer = "AosServer"

// Alert is a single detected anomaly record. Acknowledgment is metadata
// orthogonal to Status; ResolvedAt is stamped on the first transition to
// Resolved and never cleared.
type Alert struct {
	ID             string            `json:"id"`
	AlertKey       string            `json:"alert_key"` // ALERT_yyyyMMdd_HHmmss
	Type           string            `json:"type"`
	Severity       Severity          `json:"severity"`
	Message        string            `json:"message"`
	Status         string            `json:"status"`
	Timestamp      time.Time         `json:"timestamp"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
	AcknowledgedBy string            `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	CreatedBy      string            `json:"created_by"`
	CorrelationID  string            `json:"correlation_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// AosServer returns the originating AOS server from metadata, or "".
func (a *Alert) AosServer() string {
	if a.Metadata == nil {
		return ""
	}
	return a.Metadata[MetadataKeyAosServer]
}

// AlertQuery filters alert listings.
type AlertQuery struct {
	Status       string     `json:"status,omitempty"`
	Type         string     `json:"type,omitempty"`
	Severity     Severity   `json:"severity,omitempty"`
	CreatedAfter *time.Time `json:"created_after,omitempty"`
	Limit        int        `json:"limit,omitempty"`
}
