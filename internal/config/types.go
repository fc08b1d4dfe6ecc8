package config

import "time"

// Config is the complete fieldwatch service configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Listen    string          `yaml:"listen"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	State     StateConfig     `yaml:"state"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Manager   ManagerConfig   `yaml:"manager"`
	Connector ConnectorConfig `yaml:"connector"`
}

// DatabaseConfig locates the sqlite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// NATSConfig configures notification delivery. An empty URL falls back to
// the log-only notifier.
type NATSConfig struct {
	URL           string `yaml:"url,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
}

// StateConfig designates the state-indicator metric and its threshold.
// Readings of this metric with value >= threshold mean RUNNING.
type StateConfig struct {
	Metric    string  `yaml:"metric"`
	Threshold float64 `yaml:"threshold"`
}

// SchedulerConfig sets the maintenance evaluation cadence.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ManagerConfig sets how often active data sources are re-read and
// reconciled against running connectors.
type ManagerConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// ConnectorConfig holds session defaults shared by all connectors.
type ConnectorConfig struct {
	DialTimeout         time.Duration `yaml:"dial_timeout"`
	DefaultPollInterval time.Duration `yaml:"default_poll_interval"`
	BackoffMin          time.Duration `yaml:"backoff_min"`
	BackoffMax          time.Duration `yaml:"backoff_max"`
}
