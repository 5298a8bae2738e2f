package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 15, cfg.Alerting.DedupWindowMinutes)
	assert.Equal(t, 1, cfg.Alerting.ThrottleMaxPerType)
	assert.Equal(t, 30, cfg.Alerting.SuppressionWindowMinutes)
	assert.Equal(t, 60, cfg.Correlation.LookbackMinutes)
	assert.Equal(t, 5, cfg.Correlation.TypeChainWindowMinutes)
	assert.Equal(t, 10, cfg.Correlation.ServerAffinityWindowMinutes)
	assert.Equal(t, 100, cfg.Remediation.HistoryLimit)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	yaml := `
environment: production
port: 9090
log_level: warn
alerting:
  suppression_window_minutes: 45
remediation:
  rules_path: /etc/axops/rules.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 45, cfg.Alerting.SuppressionWindowMinutes)
	// Untouched values keep their defaults.
	assert.Equal(t, 15, cfg.Alerting.DedupWindowMinutes)
	assert.Equal(t, "/etc/axops/rules.yaml", cfg.Remediation.RulesPath)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &Config{Port: 8080}
	cfg.Alerting.DedupWindowMinutes = 15
	cfg.Alerting.ThrottleWindowMinutes = 15
	cfg.Alerting.SuppressionWindowMinutes = 30
	cfg.Correlation.LookbackMinutes = 60
	cfg.Remediation.HistoryLimit = 100
	require.NoError(t, validate(cfg))

	bad := *cfg
	bad.Port = 0
	assert.Error(t, validate(&bad))

	bad = *cfg
	bad.Alerting.SuppressionWindowMinutes = 0
	assert.Error(t, validate(&bad))

	bad = *cfg
	bad.Cache.Enabled = true
	bad.Cache.Addr = ""
	assert.Error(t, validate(&bad))
}
