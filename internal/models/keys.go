package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Business keys are the externally visible identifiers, distinct from the
// internal storage IDs: PREFIX_yyyyMMdd_HHmmss with an optional random
// suffix. Timestamps are always UTC.
const businessKeyTimeLayout = "20060102_150405"

// NewAlertKey returns an ALERT_ business key for the given creation time.
func NewAlertKey(t time.Time) string {
	return "ALERT_" + t.UTC().Format(businessKeyTimeLayout)
}

// NewIncidentKey returns a CORR_ business key with an 8-hex suffix.
func NewIncidentKey(t time.Time) string {
	return fmt.Sprintf("CORR_%s_%s", t.UTC().Format(businessKeyTimeLayout), shortHex())
}

// NewRuleKey returns a RULE_ business key.
func NewRuleKey(t time.Time) string {
	return "RULE_" + t.UTC().Format(businessKeyTimeLayout)
}

// NewExecutionKey returns an EXEC_ business key with a full UUID suffix.
func NewExecutionKey(t time.Time) string {
	return fmt.Sprintf("EXEC_%s_%s", t.UTC().Format(businessKeyTimeLayout), uuid.NewString())
}

// NewID returns an opaque internal identifier.
func NewID() string {
	return uuid.NewString()
}

func shortHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
