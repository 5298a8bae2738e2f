// Package correlation groups related active alerts into incidents. A run
// computes two independent grouping passes over the candidate set, keeps the
// largest group, and either merges it into an existing incident or opens a
// new one. Membership is written through conditional claims so concurrent
// runs cannot double-assign an alert.
package correlation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/logging"
	"github.com/axops/axops-core/internal/metrics"
	"github.com/axops/axops-core/internal/models"
	"github.com/axops/axops-core/internal/storage"
	"github.com/axops/axops-core/pkg/cache"
	corelogger "github.com/axops/axops-core/pkg/logger"
)

const runLockKey = "correlation-run"

type groupPass string

const (
	passTypeChain      groupPass = "type_chain"
	passServerAffinity groupPass = "server_affinity"
)

// group is one candidate incident produced by a grouping pass.
type group struct {
	pass    groupPass
	key     string // alert type or "severity|server"
	members []*models.Alert
}

func (g *group) span() time.Duration {
	if len(g.members) == 0 {
		return 0
	}
	return g.members[len(g.members)-1].Timestamp.Sub(g.members[0].Timestamp)
}

type incidentStore interface {
	storage.AlertStore
	storage.IncidentStore
}

// Engine is the alert correlation engine.
type Engine struct {
	store  incidentStore
	cache  cache.Cache
	cfg    config.CorrelationConfig
	logger logging.Logger

	now func() time.Time
}

func NewEngine(store incidentStore, coord cache.Cache, cfg config.CorrelationConfig, logger corelogger.Logger) *Engine {
	return &Engine{
		store:  store,
		cache:  coord,
		cfg:    cfg,
		logger: logging.FromCoreLogger(logger),
		now:    time.Now,
	}
}

// CorrelateAlerts scans Active alerts from the lookback window that carry no
// incident yet and groups the best candidate set into an incident. Returns
// nil when no group of at least two alerts emerges. Overlapping runs are
// serialized by a distributed run lock; a run that cannot take the lock is a
// no-op.
func (e *Engine) CorrelateAlerts(ctx context.Context) (*models.Incident, error) {
	lockTTL := time.Duration(e.cfg.RunLockSeconds) * time.Second
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	locked, err := e.cache.AcquireLock(ctx, runLockKey, lockTTL)
	if err != nil {
		e.logger.Warn("correlation run lock unavailable, proceeding unguarded", "error", err)
	} else if !locked {
		metrics.CorrelationRunsTotal.WithLabelValues("skipped").Inc()
		e.logger.Debug("correlation run already in progress, skipping")
		return nil, nil
	} else {
		defer func() {
			if rErr := e.cache.ReleaseLock(context.WithoutCancel(ctx), runLockKey); rErr != nil {
				e.logger.Debug("failed to release correlation run lock", "error", rErr)
			}
		}()
	}

	now := e.now()
	since := now.Add(-time.Duration(e.cfg.LookbackMinutes) * time.Minute)
	candidates, err := e.store.ListUncorrelatedActive(ctx, since)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list uncorrelated alerts", Err: err}
	}
	if len(candidates) < 2 {
		metrics.CorrelationRunsTotal.WithLabelValues("none").Inc()
		return nil, nil
	}

	groups := e.typeChainGroups(candidates)
	groups = append(groups, e.serverAffinityGroups(candidates)...)

	selected := largestGroup(groups)
	if selected == nil || len(selected.members) < 2 {
		metrics.CorrelationRunsTotal.WithLabelValues("none").Inc()
		return nil, nil
	}

	// A concurrent run may have claimed members since the scan; when any
	// member already belongs to an incident, fold the rest into it.
	if existing, err := e.findExistingIncident(ctx, selected); err != nil {
		return nil, err
	} else if existing != nil {
		return e.mergeIntoIncident(ctx, existing, selected, now)
	}

	return e.createIncident(ctx, selected, now)
}

// typeChainGroups chains same-type alerts whose timestamps fall within the
// window of the chain's first member. An alert outside the window closes the
// chain (kept only with two or more members) and anchors a new one.
func (e *Engine) typeChainGroups(candidates []*models.Alert) []*group {
	window := time.Duration(e.cfg.TypeChainWindowMinutes) * time.Minute

	byType := make(map[string][]*models.Alert)
	for _, a := range candidates {
		byType[a.Type] = append(byType[a.Type], a)
	}

	types := make([]string, 0, len(byType))
	for t, as := range byType {
		if len(as) >= 2 {
			types = append(types, t)
		}
	}
	sort.Strings(types)

	var groups []*group
	for _, t := range types {
		alerts := byType[t]
		sort.Slice(alerts, func(i, j int) bool { return alerts[i].Timestamp.Before(alerts[j].Timestamp) })

		chain := []*models.Alert{alerts[0]}
		for _, a := range alerts[1:] {
			if a.Timestamp.Sub(chain[0].Timestamp) <= window {
				chain = append(chain, a)
				continue
			}
			if len(chain) >= 2 {
				groups = append(groups, &group{pass: passTypeChain, key: t, members: chain})
			}
			chain = []*models.Alert{a}
		}
		if len(chain) >= 2 {
			groups = append(groups, &group{pass: passTypeChain, key: t, members: chain})
		}
	}
	return groups
}

// serverAffinityGroups groups alerts that carry an AOS server by (severity,
// server) and keeps the members within the window of each group's earliest
// alert. Single pass, no chain splitting.
func (e *Engine) serverAffinityGroups(candidates []*models.Alert) []*group {
	window := time.Duration(e.cfg.ServerAffinityWindowMinutes) * time.Minute

	byAffinity := make(map[string][]*models.Alert)
	for _, a := range candidates {
		server := a.AosServer()
		if server == "" {
			continue
		}
		key := string(a.Severity) + "|" + server
		byAffinity[key] = append(byAffinity[key], a)
	}

	keys := make([]string, 0, len(byAffinity))
	for k := range byAffinity {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var groups []*group
	for _, k := range keys {
		alerts := byAffinity[k]
		sort.Slice(alerts, func(i, j int) bool { return alerts[i].Timestamp.Before(alerts[j].Timestamp) })

		head := alerts[0]
		var members []*models.Alert
		for _, a := range alerts {
			if a.Timestamp.Sub(head.Timestamp) <= window {
				members = append(members, a)
			}
		}
		if len(members) >= 2 {
			groups = append(groups, &group{pass: passServerAffinity, key: k, members: members})
		}
	}
	return groups
}

// largestGroup picks the group with the most members; ties go to the first
// found.
func largestGroup(groups []*group) *group {
	var best *group
	for _, g := range groups {
		if best == nil || len(g.members) > len(best.members) {
			best = g
		}
	}
	return best
}

func (e *Engine) findExistingIncident(ctx context.Context, g *group) (*models.Incident, error) {
	for _, member := range g.members {
		current, err := e.store.GetAlert(ctx, member.ID)
		if err != nil {
			if err == models.ErrNotFound {
				continue
			}
			return nil, &models.PersistenceError{Op: "refresh member alert", Err: err}
		}
		if current.CorrelationID != "" {
			incident, err := e.store.GetIncident(ctx, current.CorrelationID)
			if err != nil {
				if err == models.ErrNotFound {
					continue
				}
				return nil, &models.PersistenceError{Op: "load existing incident", Err: err}
			}
			return incident, nil
		}
	}
	return nil, nil
}

func (e *Engine) mergeIntoIncident(ctx context.Context, incident *models.Incident, g *group, now time.Time) (*models.Incident, error) {
	claimed := 0
	for _, member := range g.members {
		ok, err := e.store.ClaimForIncident(ctx, member.ID, incident.ID)
		if err != nil {
			return nil, &models.PersistenceError{Op: "claim alert for incident", Err: err}
		}
		if ok {
			claimed++
		}
	}
	if claimed == 0 {
		metrics.CorrelationRunsTotal.WithLabelValues("none").Inc()
		return nil, nil
	}

	incident.AlertCount += claimed
	incident.UpdatedAt = now
	if err := e.store.UpdateIncident(ctx, incident); err != nil {
		return nil, &models.PersistenceError{Op: "update incident", Err: err}
	}

	metrics.CorrelationRunsTotal.WithLabelValues("merged").Inc()
	e.logger.Info("merged alerts into existing incident",
		"incident_key", incident.IncidentKey, "claimed", claimed, "alert_count", incident.AlertCount)
	return incident, nil
}

func (e *Engine) createIncident(ctx context.Context, g *group, now time.Time) (*models.Incident, error) {
	severity := models.SeverityInfo
	firstDetected := g.members[0].Timestamp
	for _, m := range g.members {
		severity = models.MaxSeverity(severity, m.Severity)
		if m.Timestamp.Before(firstDetected) {
			firstDetected = m.Timestamp
		}
	}

	reason := e.correlationReason(g)
	incident := &models.Incident{
		ID:                models.NewID(),
		IncidentKey:       models.NewIncidentKey(now),
		Title:             fmt.Sprintf("%s (%d alerts)", reason, len(g.members)),
		Description:       describeMembers(g.members),
		Severity:          severity,
		Status:            models.IncidentStatusOpen,
		FirstDetectedAt:   firstDetected,
		ConfidenceScore:   confidenceScore(g),
		CorrelationReason: reason,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := e.store.CreateIncident(ctx, incident); err != nil {
		return nil, &models.PersistenceError{Op: "create incident", Err: err}
	}

	claimed := 0
	for _, member := range g.members {
		ok, err := e.store.ClaimForIncident(ctx, member.ID, incident.ID)
		if err != nil {
			return nil, &models.PersistenceError{Op: "claim alert for incident", Err: err}
		}
		if ok {
			claimed++
		}
	}
	incident.AlertCount = claimed
	if err := e.store.UpdateIncident(ctx, incident); err != nil {
		return nil, &models.PersistenceError{Op: "finalize incident", Err: err}
	}

	metrics.CorrelationRunsTotal.WithLabelValues("created").Inc()
	metrics.IncidentAlertCount.Observe(float64(claimed))
	e.logger.Info("incident created",
		"incident_key", incident.IncidentKey,
		"alert_count", claimed,
		"severity", severity,
		"confidence", incident.ConfidenceScore,
		"reason", reason)
	return incident, nil
}

// confidenceScore rates how likely the group is a true incident: 50 base,
// +20 uniform type, +20 span within 5 minutes (else +10 within 15), +10
// uniform severity, capped at 100.
func confidenceScore(g *group) int {
	score := 50
	if uniformType(g.members) {
		score += 20
	}
	span := g.span()
	if span <= 5*time.Minute {
		score += 20
	} else if span <= 15*time.Minute {
		score += 10
	}
	if uniformSeverity(g.members) {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (e *Engine) correlationReason(g *group) string {
	if g.pass == passTypeChain || uniformType(g.members) {
		t := g.members[0].Type
		if g.span() <= 5*time.Minute {
			return fmt.Sprintf("Same Type (%s) within 5 minutes", t)
		}
		return fmt.Sprintf("Same Type (%s) within time window", t)
	}

	servers := make(map[string]struct{})
	for _, m := range g.members {
		if s := m.AosServer(); s != "" {
			servers[s] = struct{}{}
		}
	}
	if len(servers) == 1 {
		for s := range servers {
			return fmt.Sprintf("Same AOS Server (%s)", s)
		}
	}
	return "Related alerts within time window"
}

func uniformType(alerts []*models.Alert) bool {
	for _, a := range alerts[1:] {
		if a.Type != alerts[0].Type {
			return false
		}
	}
	return true
}

func uniformSeverity(alerts []*models.Alert) bool {
	for _, a := range alerts[1:] {
		if a.Severity != alerts[0].Severity {
			return false
		}
	}
	return true
}

func describeMembers(alerts []*models.Alert) string {
	keys := make([]string, len(alerts))
	for i, a := range alerts {
		keys[i] = a.AlertKey
	}
	return fmt.Sprintf("Correlated alerts: %v", keys)
}

// ResolveCorrelation marks the incident Resolved and cascades Resolved onto
// every still-Active member alert. Returns false for unknown IDs.
func (e *Engine) ResolveCorrelation(ctx context.Context, id string) (bool, error) {
	incident, err := e.store.GetIncident(ctx, id)
	if err != nil {
		if err == models.ErrNotFound {
			return false, nil
		}
		return false, &models.PersistenceError{Op: "get incident", Err: err}
	}

	now := e.now()
	members, err := e.store.ListByIncident(ctx, id)
	if err != nil {
		return false, &models.PersistenceError{Op: "list incident members", Err: err}
	}
	resolved := 0
	for _, m := range members {
		if m.Status != models.AlertStatusActive {
			continue
		}
		m.Status = models.AlertStatusResolved
		ts := now
		m.ResolvedAt = &ts
		m.UpdatedAt = now
		if err := e.store.UpdateAlert(ctx, m); err != nil {
			return false, &models.PersistenceError{Op: "resolve member alert", Err: err}
		}
		resolved++
	}

	incident.Status = models.IncidentStatusResolved
	incident.ResolvedAt = &now
	incident.UpdatedAt = now
	if err := e.store.UpdateIncident(ctx, incident); err != nil {
		return false, &models.PersistenceError{Op: "resolve incident", Err: err}
	}

	e.logger.Info("incident resolved",
		"incident_key", incident.IncidentKey, "members_resolved", resolved)
	return true, nil
}

// GetAlertsForCorrelation returns the incident's member alerts ordered by
// creation time ascending.
func (e *Engine) GetAlertsForCorrelation(ctx context.Context, id string) ([]*models.Alert, error) {
	alerts, err := e.store.ListByIncident(ctx, id)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list incident members", Err: err}
	}
	return alerts, nil
}

// GetIncidents lists incidents, optionally by status.
func (e *Engine) GetIncidents(ctx context.Context, status string) ([]*models.Incident, error) {
	incidents, err := e.store.ListIncidents(ctx, status)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list incidents", Err: err}
	}
	return incidents, nil
}

// Run drives CorrelateAlerts on the configured interval until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("correlation runner started", "interval", interval)
	for {
		select {
		case <-ticker.C:
			if _, err := e.CorrelateAlerts(ctx); err != nil {
				e.logger.Error("correlation run failed", "error", err)
			}
		case <-ctx.Done():
			e.logger.Info("correlation runner stopped")
			return
		}
	}
}
