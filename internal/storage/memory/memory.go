// Package memory provides the in-process reference implementation of
// storage.Store. All operations are guarded by a single RWMutex, which makes
// the claim operations genuinely atomic; values are deep-copied on the way
// in and out so detached workers never share memory with callers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/axops/axops-core/internal/models"
	"github.com/axops/axops-core/internal/storage"
)

type Store struct {
	mu         sync.RWMutex
	alerts     map[string]*models.Alert
	incidents  map[string]*models.Incident
	rules      map[string]*models.RemediationRule
	executions map[string]*models.RemediationExecution
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		alerts:     make(map[string]*models.Alert),
		incidents:  make(map[string]*models.Incident),
		rules:      make(map[string]*models.RemediationRule),
		executions: make(map[string]*models.RemediationExecution),
	}
}

/* ------------------------------- alerts -------------------------------- */

func (s *Store) CreateAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = cloneAlert(alert)
	return nil
}

func (s *Store) GetAlert(_ context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneAlert(a), nil
}

func (s *Store) UpdateAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; !ok {
		return models.ErrNotFound
	}
	s.alerts[alert.ID] = cloneAlert(alert)
	return nil
}

func (s *Store) DeleteAlert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.alerts, id)
	return nil
}

func (s *Store) ListAlerts(_ context.Context, q models.AlertQuery) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Alert
	for _, a := range s.alerts {
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if q.Type != "" && a.Type != q.Type {
			continue
		}
		if q.Severity != "" && a.Severity != q.Severity {
			continue
		}
		if q.CreatedAfter != nil && a.Timestamp.Before(*q.CreatedAfter) {
			continue
		}
		out = append(out, cloneAlert(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) FindActiveDuplicate(_ context.Context, alertType string, severity models.Severity, message string, since time.Time) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.alerts {
		if a.Status == models.AlertStatusActive &&
			a.Type == alertType &&
			a.Severity == severity &&
			a.Message == message &&
			!a.Timestamp.Before(since) {
			return cloneAlert(a), nil
		}
	}
	return nil, nil
}

func (s *Store) CountByTypeSince(_ context.Context, alertType string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.alerts {
		if a.Type == alertType && !a.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) FindRecentByTypeSeverity(_ context.Context, alertType string, severity models.Severity, since time.Time) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var earliest *models.Alert
	for _, a := range s.alerts {
		if a.Type != alertType || a.Severity != severity || a.Timestamp.Before(since) {
			continue
		}
		if earliest == nil || a.Timestamp.Before(earliest.Timestamp) {
			earliest = a
		}
	}
	if earliest == nil {
		return nil, nil
	}
	return cloneAlert(earliest), nil
}

func (s *Store) ListUncorrelatedActive(_ context.Context, since time.Time) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Alert
	for _, a := range s.alerts {
		if a.Status == models.AlertStatusActive && a.CorrelationID == "" && !a.Timestamp.Before(since) {
			out = append(out, cloneAlert(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) ClaimForIncident(_ context.Context, alertID, incidentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return false, nil
	}
	if a.CorrelationID != "" && a.CorrelationID != incidentID {
		return false, nil
	}
	if a.CorrelationID == incidentID {
		return false, nil
	}
	a.CorrelationID = incidentID
	a.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) ListByIncident(_ context.Context, incidentID string) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Alert
	for _, a := range s.alerts {
		if a.CorrelationID == incidentID {
			out = append(out, cloneAlert(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

/* ------------------------------ incidents ------------------------------- */

func (s *Store) CreateIncident(_ context.Context, incident *models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents[incident.ID] = cloneIncident(incident)
	return nil
}

func (s *Store) GetIncident(_ context.Context, id string) (*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneIncident(inc), nil
}

func (s *Store) UpdateIncident(_ context.Context, incident *models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[incident.ID]; !ok {
		return models.ErrNotFound
	}
	s.incidents[incident.ID] = cloneIncident(incident)
	return nil
}

func (s *Store) ListIncidents(_ context.Context, status string) ([]*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Incident
	for _, inc := range s.incidents {
		if status != "" && inc.Status != status {
			continue
		}
		out = append(out, cloneIncident(inc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

/* -------------------------------- rules --------------------------------- */

func (s *Store) CreateRule(_ context.Context, rule *models.RemediationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = cloneRule(rule)
	return nil
}

func (s *Store) GetRule(_ context.Context, id string) (*models.RemediationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneRule(r), nil
}

func (s *Store) UpdateRule(_ context.Context, rule *models.RemediationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return models.ErrNotFound
	}
	s.rules[rule.ID] = cloneRule(rule)
	return nil
}

func (s *Store) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *Store) ListRules(_ context.Context, enabledOnly bool) ([]*models.RemediationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RemediationRule
	for _, r := range s.rules {
		if enabledOnly && !r.Enabled {
			continue
		}
		out = append(out, cloneRule(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

/* ------------------------------ executions ------------------------------ */

func (s *Store) CreateExecution(_ context.Context, exec *models.RemediationExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[exec.ID] = cloneExecution(exec)
	return nil
}

func (s *Store) GetExecution(_ context.Context, id string) (*models.RemediationExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.executions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneExecution(e), nil
}

func (s *Store) UpdateExecution(_ context.Context, exec *models.RemediationExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.executions[exec.ID]; !ok {
		return models.ErrNotFound
	}
	s.executions[exec.ID] = cloneExecution(exec)
	return nil
}

func (s *Store) LatestExecutionForRule(_ context.Context, ruleID string) (*models.RemediationExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.RemediationExecution
	for _, e := range s.executions {
		if e.RuleID != ruleID {
			continue
		}
		if latest == nil || e.StartTime.After(latest.StartTime) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneExecution(latest), nil
}

func (s *Store) ListExecutions(_ context.Context, ruleID string, limit int) ([]*models.RemediationExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RemediationExecution
	for _, e := range s.executions {
		if ruleID != "" && e.RuleID != ruleID {
			continue
		}
		out = append(out, cloneExecution(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListRunningBefore(_ context.Context, cutoff time.Time) ([]*models.RemediationExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RemediationExecution
	for _, e := range s.executions {
		if e.Status == models.ExecutionRunning && e.StartTime.Before(cutoff) {
			out = append(out, cloneExecution(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

/* -------------------------------- clones -------------------------------- */

func cloneAlert(a *models.Alert) *models.Alert {
	c := *a
	if a.Metadata != nil {
		c.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	c.ResolvedAt = cloneTime(a.ResolvedAt)
	c.AcknowledgedAt = cloneTime(a.AcknowledgedAt)
	return &c
}

func cloneIncident(i *models.Incident) *models.Incident {
	c := *i
	c.ResolvedAt = cloneTime(i.ResolvedAt)
	return &c
}

func cloneRule(r *models.RemediationRule) *models.RemediationRule {
	c := *r
	c.TriggerConditions = append([]models.Condition(nil), r.TriggerConditions...)
	c.Actions = make([]models.ActionSpec, len(r.Actions))
	for i, a := range r.Actions {
		c.Actions[i] = a
		if a.Params != nil {
			c.Actions[i].Params = make(map[string]string, len(a.Params))
			for k, v := range a.Params {
				c.Actions[i].Params[k] = v
			}
		}
	}
	return &c
}

func cloneExecution(e *models.RemediationExecution) *models.RemediationExecution {
	c := *e
	if e.TriggerData != nil {
		c.TriggerData = make(map[string]interface{}, len(e.TriggerData))
		for k, v := range e.TriggerData {
			c.TriggerData[k] = v
		}
	}
	c.ActionsExecuted = append([]models.ActionResult(nil), e.ActionsExecuted...)
	c.EndTime = cloneTime(e.EndTime)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
