package alerting

import (
	"context"
	"fmt"

	"github.com/axops/axops-core/internal/metrics"
	"github.com/axops/axops-core/internal/models"
)

// AlertTypeBaselineDeviation categorizes alerts raised by baseline checks.
const AlertTypeBaselineDeviation = "BaselineDeviation"

// CheckBaselineAndCreateAlert compares the current value of a metric against
// its historical P95 and raises a Warning alert when the value exceeds
// P95 × (1 + thresholdPercent/100). A thresholdPercent of 0 uses the
// configured default. No baseline on record is a no-op, not an error.
// The returned alert is nil when nothing was created.
func (m *Manager) CheckBaselineAndCreateAlert(ctx context.Context, metricName, metricType string, currentValue float64, thresholdPercent int, metricClass, environment string) (*models.Alert, error) {
	if m.baseline == nil {
		return nil, nil
	}
	if thresholdPercent <= 0 {
		thresholdPercent = m.cfg.BaselineThresholdPercent
	}

	p95, err := m.baseline.GetPercentile95(ctx, metricName, metricType, metricClass, environment)
	if err != nil {
		return nil, fmt.Errorf("baseline lookup for %s: %w", metricName, err)
	}
	if p95 == nil {
		metrics.BaselineChecksTotal.WithLabelValues("no_baseline").Inc()
		m.logger.Debug("no baseline on record, skipping check", "metric", metricName, "type", metricType)
		return nil, nil
	}

	threshold := *p95 * (1 + float64(thresholdPercent)/100)
	if currentValue <= threshold {
		metrics.BaselineChecksTotal.WithLabelValues("within").Inc()
		return nil, nil
	}

	metrics.BaselineChecksTotal.WithLabelValues("breached").Inc()
	message := fmt.Sprintf("%s (%s) at %.2f exceeds threshold %.2f (P95 baseline %.2f, +%d%%) in %s",
		metricName, metricType, currentValue, threshold, *p95, thresholdPercent, environment)

	result, err := m.CreateAlert(ctx, AlertTypeBaselineDeviation, models.SeverityWarning, message, "")
	if err != nil {
		return nil, err
	}
	if result.Outcome == models.OutcomeRejected {
		m.logger.Debug("baseline alert rejected by policy gate",
			"metric", metricName, "reason", result.Rejection.Reason)
		return nil, nil
	}
	return result.Alert, nil
}
