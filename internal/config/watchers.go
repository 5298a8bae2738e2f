package config

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/axops/axops-core/pkg/logger"
)

// Watcher reloads the configuration file on change and notifies registered
// callbacks. Reload failures keep the previous configuration.
type Watcher struct {
	configPath string
	logger     logger.Logger

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

func NewWatcher(configPath string, initial *Config, logger logger.Logger) *Watcher {
	return &Watcher{
		configPath: configPath,
		config:     initial,
		logger:     logger,
	}
}

// OnChange registers a callback invoked after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Start watches the config file until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.configPath); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	w.logger.Info("configuration watcher started", "path", w.configPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				w.logger.Info("configuration file changed, reloading", "file", event.Name)
				if err := w.reload(); err != nil {
					w.logger.Error("failed to reload configuration", "error", err)
					continue
				}
				w.notify()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watcher error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return err
	}

	w.mu.Lock()
	w.config = &cfg
	w.mu.Unlock()
	return nil
}

func (w *Watcher) notify() {
	w.mu.RLock()
	cfg := w.config
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.RUnlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}
