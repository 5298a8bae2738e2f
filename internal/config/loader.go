package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration with priority order:
// 1. Environment variables (AXOPS_ prefix)
// 2. Configuration file (config.yaml)
// 3. Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/axops/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AXOPS")

	setDefaults(v)

	// Config file is optional; env vars and defaults carry a bare deployment.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 300)

	// Lifecycle gate windows.
	v.SetDefault("alerting.dedup_window_minutes", 15)
	v.SetDefault("alerting.throttle_window_minutes", 15)
	v.SetDefault("alerting.throttle_max_per_type", 1)
	v.SetDefault("alerting.suppression_window_minutes", 30)
	v.SetDefault("alerting.baseline_threshold_percent", 30)

	v.SetDefault("correlation.lookback_minutes", 60)
	v.SetDefault("correlation.type_chain_window_minutes", 5)
	v.SetDefault("correlation.server_affinity_window_minutes", 10)
	v.SetDefault("correlation.interval_seconds", 300)
	v.SetDefault("correlation.run_lock_seconds", 60)

	v.SetDefault("remediation.history_limit", 100)
	v.SetDefault("remediation.stale_running_minutes", 30)
	v.SetDefault("remediation.action_timeout_seconds", 30)
	v.SetDefault("remediation.rules_path", "")

	v.SetDefault("monitoring.metrics_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
}

func validate(c *Config) error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Alerting.DedupWindowMinutes <= 0 {
		return fmt.Errorf("alerting.dedup_window_minutes must be positive")
	}
	if c.Alerting.ThrottleWindowMinutes <= 0 {
		return fmt.Errorf("alerting.throttle_window_minutes must be positive")
	}
	if c.Alerting.SuppressionWindowMinutes <= 0 {
		return fmt.Errorf("alerting.suppression_window_minutes must be positive")
	}
	if c.Correlation.LookbackMinutes <= 0 {
		return fmt.Errorf("correlation.lookback_minutes must be positive")
	}
	if c.Remediation.HistoryLimit <= 0 {
		return fmt.Errorf("remediation.history_limit must be positive")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when the cache is enabled")
	}
	return nil
}
