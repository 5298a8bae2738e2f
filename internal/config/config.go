package config

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Cache        CacheConfig               `mapstructure:"cache" yaml:"cache"`
	Maintenance  []MaintenanceWindowConfig `mapstructure:"maintenance_windows" yaml:"maintenance_windows"`
	Alerting     AlertingConfig            `mapstructure:"alerting" yaml:"alerting"`
	Correlation  CorrelationConfig         `mapstructure:"correlation" yaml:"correlation"`
	Remediation  RemediationConfig         `mapstructure:"remediation" yaml:"remediation"`
	Integrations IntegrationsConfig        `mapstructure:"integrations" yaml:"integrations"`
	Monitoring   MonitoringConfig          `mapstructure:"monitoring" yaml:"monitoring"`
}

// CacheConfig configures the Valkey coordination cache. When disabled the
// engines fall back to the in-process implementation.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr     string `mapstructure:"addr" yaml:"addr"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Password string `mapstructure:"password" yaml:"password"`
	TTL      int    `mapstructure:"ttl" yaml:"ttl"` // seconds
}

// MaintenanceWindowConfig is one recurring suppression window in the
// maintenance calendar. Start and End are HH:MM wall-clock times in UTC; a
// window may wrap past midnight. Empty Days means every day.
type MaintenanceWindowConfig struct {
	Name    string   `mapstructure:"name" yaml:"name"`
	Start   string   `mapstructure:"start" yaml:"start"`
	End     string   `mapstructure:"end" yaml:"end"`
	Days    []string `mapstructure:"days" yaml:"days"`
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
}

// AlertingConfig carries the lifecycle gate windows. The defaults are the
// operational contract; overriding them is a deployment decision.
type AlertingConfig struct {
	DedupWindowMinutes       int `mapstructure:"dedup_window_minutes" yaml:"dedup_window_minutes"`
	ThrottleWindowMinutes    int `mapstructure:"throttle_window_minutes" yaml:"throttle_window_minutes"`
	ThrottleMaxPerType       int `mapstructure:"throttle_max_per_type" yaml:"throttle_max_per_type"`
	SuppressionWindowMinutes int `mapstructure:"suppression_window_minutes" yaml:"suppression_window_minutes"`
	BaselineThresholdPercent int `mapstructure:"baseline_threshold_percent" yaml:"baseline_threshold_percent"`
}

type CorrelationConfig struct {
	LookbackMinutes             int `mapstructure:"lookback_minutes" yaml:"lookback_minutes"`
	TypeChainWindowMinutes      int `mapstructure:"type_chain_window_minutes" yaml:"type_chain_window_minutes"`
	ServerAffinityWindowMinutes int `mapstructure:"server_affinity_window_minutes" yaml:"server_affinity_window_minutes"`
	IntervalSeconds             int `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	RunLockSeconds              int `mapstructure:"run_lock_seconds" yaml:"run_lock_seconds"`
}

type RemediationConfig struct {
	HistoryLimit         int    `mapstructure:"history_limit" yaml:"history_limit"`
	StaleRunningMinutes  int    `mapstructure:"stale_running_minutes" yaml:"stale_running_minutes"`
	ActionTimeoutSeconds int    `mapstructure:"action_timeout_seconds" yaml:"action_timeout_seconds"`
	RulesPath            string `mapstructure:"rules_path" yaml:"rules_path"`
}

// IntegrationsConfig wires the outbound notification channels.
type IntegrationsConfig struct {
	Slack struct {
		WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
		Channel    string `mapstructure:"channel" yaml:"channel"`
		Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"slack" yaml:"slack"`

	MSTeams struct {
		WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
		Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"ms_teams" yaml:"ms_teams"`

	Email struct {
		SMTPHost    string   `mapstructure:"smtp_host" yaml:"smtp_host"`
		SMTPPort    int      `mapstructure:"smtp_port" yaml:"smtp_port"`
		Username    string   `mapstructure:"username" yaml:"username"`
		Password    string   `mapstructure:"password" yaml:"password"`
		FromAddress string   `mapstructure:"from_address" yaml:"from_address"`
		ToAddresses []string `mapstructure:"to_addresses" yaml:"to_addresses"`
		Enabled     bool     `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"email" yaml:"email"`

	// AOS is the management API of the AOS fleet, used by remediation
	// actions to restart batch jobs and terminate sessions.
	AOS struct {
		BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
		APIKey         string `mapstructure:"api_key" yaml:"api_key"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"aos" yaml:"aos"`
}

type MonitoringConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsPath    string `mapstructure:"metrics_path" yaml:"metrics_path"`
}
