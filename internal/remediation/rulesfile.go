package remediation

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/axops/axops-core/internal/models"
)

// rulesFile is the on-disk rules document.
type rulesFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

// ruleSpec is one rule as written in YAML. Conditions can be tagged entries
// or the legacy comparator-in-key map ("batch_backlog>": 100); both forms
// may appear on the same rule.
type ruleSpec struct {
	Name                 string                 `yaml:"name"`
	Description          string                 `yaml:"description"`
	Conditions           []models.Condition     `yaml:"conditions"`
	LegacyConditions     map[string]interface{} `yaml:"legacy_conditions"`
	Actions              []models.ActionSpec    `yaml:"actions"`
	Priority             int                    `yaml:"priority"`
	Enabled              *bool                  `yaml:"enabled"`
	CooldownMinutes      int                    `yaml:"cooldown_minutes"`
	MaxAttempts          int                    `yaml:"max_attempts"`
	TimeoutSeconds       int                    `yaml:"timeout_seconds"`
	RequiresConfirmation bool                   `yaml:"requires_confirmation"`
	BusinessImpact       string                 `yaml:"business_impact"`
}

func (s ruleSpec) toRule() *models.RemediationRule {
	conditions := append([]models.Condition(nil), s.Conditions...)

	legacyKeys := make([]string, 0, len(s.LegacyConditions))
	for k := range s.LegacyConditions {
		legacyKeys = append(legacyKeys, k)
	}
	sort.Strings(legacyKeys)
	for _, k := range legacyKeys {
		conditions = append(conditions, models.NormalizeConditionKey(k, s.LegacyConditions[k]))
	}

	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}

	return &models.RemediationRule{
		Name:                 s.Name,
		Description:          s.Description,
		TriggerConditions:    conditions,
		Actions:              append([]models.ActionSpec(nil), s.Actions...),
		Priority:             s.Priority,
		Enabled:              enabled,
		CooldownMinutes:      s.CooldownMinutes,
		MaxAttempts:          s.MaxAttempts,
		TimeoutSeconds:       s.TimeoutSeconds,
		RequiresConfirmation: s.RequiresConfirmation,
		BusinessImpact:       s.BusinessImpact,
		CreatedBy:            "rules-file",
	}
}

// LoadRulesFile parses and validates a rules document without touching the
// store.
func LoadRulesFile(path string) ([]*models.RemediationRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var doc rulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	rules := make([]*models.RemediationRule, 0, len(doc.Rules))
	for i, spec := range doc.Rules {
		rule := spec.toRule()
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rules file %s, rule %d (%q): %w", path, i, spec.Name, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// SyncRulesFromFile loads the rules document and upserts it into the store,
// matching existing rules by name. Returns how many rules were created and
// how many updated.
func (e *Engine) SyncRulesFromFile(ctx context.Context, path string) (created, updated int, err error) {
	rules, err := LoadRulesFile(path)
	if err != nil {
		return 0, 0, err
	}

	existing, err := e.store.ListRules(ctx, false)
	if err != nil {
		return 0, 0, &models.PersistenceError{Op: "list rules", Err: err}
	}
	byName := make(map[string]*models.RemediationRule, len(existing))
	for _, r := range existing {
		byName[r.Name] = r
	}

	for _, rule := range rules {
		if have, ok := byName[rule.Name]; ok {
			rule.ID = have.ID
			rule.CreatedAt = have.CreatedAt
			rule.CreatedBy = have.CreatedBy
			rule.UpdatedAt = e.now()
			if err := e.store.UpdateRule(ctx, rule); err != nil {
				return created, updated, &models.PersistenceError{Op: "update rule from file", Err: err}
			}
			updated++
			continue
		}
		if _, err := e.CreateRule(ctx, rule); err != nil {
			return created, updated, err
		}
		created++
	}

	e.logger.Info("rules file synced", "path", path, "created", created, "updated", updated)
	return created, updated, nil
}
