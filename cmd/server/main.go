package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axops/axops-core/internal/alerting"
	"github.com/axops/axops-core/internal/api"
	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/correlation"
	"github.com/axops/axops-core/internal/remediation"
	"github.com/axops/axops-core/internal/services"
	"github.com/axops/axops-core/internal/storage/memory"
	"github.com/axops/axops-core/pkg/cache"
	"github.com/axops/axops-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)
	logger.Info("Starting AXOPS-CORE", "environment", cfg.Environment)

	// Coordination cache: Valkey when configured, in-process otherwise.
	var coord cache.Cache
	if cfg.Cache.Enabled {
		coord, err = cache.NewValkey(cfg.Cache.Addr, cfg.Cache.DB, cfg.Cache.Password,
			time.Duration(cfg.Cache.TTL)*time.Second)
		if err != nil {
			logger.Fatal("Failed to connect to Valkey", "error", err)
		}
		logger.Info("Valkey coordination cache initialized", "addr", cfg.Cache.Addr)
	} else {
		coord = cache.NewNoop()
		logger.Warn("Coordination cache disabled; using in-process locks only")
	}

	store := memory.New()

	maintenance, err := services.NewMaintenanceWindowService(cfg.Maintenance, logger)
	if err != nil {
		logger.Fatal("Invalid maintenance window configuration", "error", err)
	}

	notifications := services.NewNotificationService(cfg.Integrations, logger)
	baseline := services.NewCacheBaselineProvider(coord, logger)
	actors := &services.StaticActorResolver{Actor: "System"}

	alerts := alerting.NewManager(store, coord, maintenance, actors, baseline, notifications, cfg.Alerting, logger)
	incidents := correlation.NewEngine(store, coord, cfg.Correlation, logger)

	aosControl := services.NewAOSControlService(cfg.Integrations, logger)
	actions := services.NewRemediationActions(aosControl, notifications)
	remediationEngine := remediation.NewEngine(store, coord, actions, cfg.Remediation, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Anything still marked Running belongs to a previous process.
	staleAfter := time.Duration(cfg.Remediation.StaleRunningMinutes) * time.Minute
	if recovered, err := remediationEngine.RecoverStaleExecutions(ctx, staleAfter); err != nil {
		logger.Error("Stale execution recovery failed", "error", err)
	} else if recovered > 0 {
		logger.Info("Recovered stale executions from previous run", "count", recovered)
	}

	if cfg.Remediation.RulesPath != "" {
		created, updated, err := remediationEngine.SyncRulesFromFile(ctx, cfg.Remediation.RulesPath)
		if err != nil {
			logger.Fatal("Failed to load remediation rules file", "path", cfg.Remediation.RulesPath, "error", err)
		}
		logger.Info("Remediation rules loaded", "created", created, "updated", updated)
	}

	// Live-reload: rules file is resynced when the config file changes.
	if path := os.Getenv("AXOPS_CONFIG_FILE"); path != "" {
		watcher := config.NewWatcher(path, cfg, logger)
		watcher.OnChange(func(next *config.Config) {
			if next.Remediation.RulesPath == "" {
				return
			}
			if _, _, err := remediationEngine.SyncRulesFromFile(ctx, next.Remediation.RulesPath); err != nil {
				logger.Error("Rules resync after config change failed", "error", err)
			}
		})
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.Error("Config watcher stopped", "error", err)
			}
		}()
	}

	// Background correlation sweep.
	go incidents.Run(ctx)

	apiServer := api.NewServer(cfg, logger, coord, alerts, incidents, remediationEngine)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		logger.Fatal("Server failed to start", "error", err)
	}

	// Let in-flight notification fan-outs and remediations finish.
	alerts.Wait()
	remediationEngine.Wait()

	logger.Info("AXOPS-CORE shutdown complete")
}
