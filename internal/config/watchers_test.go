package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axops/axops-core/pkg/logger"
)

const watcherYAML = `
environment: development
port: 8080
alerting:
  dedup_window_minutes: 15
  throttle_window_minutes: 15
  suppression_window_minutes: 30
correlation:
  lookback_minutes: 60
remediation:
  history_limit: 100
`

func writeWatcherConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestWatcherReloadNotifiesCallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, path, watcherYAML)

	initial := &Config{Port: 8080}
	initial.Alerting.DedupWindowMinutes = 15
	initial.Alerting.ThrottleWindowMinutes = 15
	initial.Alerting.SuppressionWindowMinutes = 30
	initial.Correlation.LookbackMinutes = 60
	initial.Remediation.HistoryLimit = 100

	w := NewWatcher(path, initial, logger.NewNop())

	var (
		mu   sync.Mutex
		seen []*Config
	)
	w.OnChange(func(cfg *Config) {
		mu.Lock()
		seen = append(seen, cfg)
		mu.Unlock()
	})
	w.OnChange(func(cfg *Config) {
		mu.Lock()
		seen = append(seen, cfg)
		mu.Unlock()
	})

	writeWatcherConfig(t, path, watcherYAML+"\nlog_level: warn\n")
	require.NoError(t, w.reload())
	w.notify()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, "warn", seen[0].LogLevel)
	assert.Same(t, seen[0], seen[1])
	assert.Equal(t, "warn", w.Current().LogLevel)
}

func TestWatcherKeepsConfigOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, path, watcherYAML)

	cfg := &Config{Port: 8080}
	cfg.Alerting.DedupWindowMinutes = 15
	cfg.Alerting.ThrottleWindowMinutes = 15
	cfg.Alerting.SuppressionWindowMinutes = 30
	cfg.Correlation.LookbackMinutes = 60
	cfg.Remediation.HistoryLimit = 100

	w := NewWatcher(path, cfg, logger.NewNop())

	writeWatcherConfig(t, path, "port: -1\n")
	assert.Error(t, w.reload())
	assert.Same(t, cfg, w.Current())

	writeWatcherConfig(t, path, "{not yaml")
	assert.Error(t, w.reload())
	assert.Same(t, cfg, w.Current())
}

func TestWatcherStartDeliversFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, path, watcherYAML)

	cfg := &Config{Port: 8080}
	cfg.Alerting.DedupWindowMinutes = 15
	cfg.Alerting.ThrottleWindowMinutes = 15
	cfg.Alerting.SuppressionWindowMinutes = 30
	cfg.Correlation.LookbackMinutes = 60
	cfg.Remediation.HistoryLimit = 100

	w := NewWatcher(path, cfg, logger.NewNop())

	reloaded := make(chan *Config, 1)
	w.OnChange(func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeWatcherConfig(t, path, watcherYAML+"\nlog_level: error\n")

	select {
	case c := <-reloaded:
		assert.Equal(t, "error", c.LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not deliver reloaded configuration")
	}
}
