package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the service configuration from a YAML file, applies
// defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Listen == "" {
		cfg.Listen = ":9190"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "fieldwatch.db"
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "fieldwatch.notify"
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = time.Hour
	}
	if cfg.Manager.ReconcileInterval == 0 {
		cfg.Manager.ReconcileInterval = 30 * time.Second
	}
	if cfg.Connector.DialTimeout == 0 {
		cfg.Connector.DialTimeout = 10 * time.Second
	}
	if cfg.Connector.DefaultPollInterval == 0 {
		cfg.Connector.DefaultPollInterval = 10 * time.Second
	}
	if cfg.Connector.BackoffMin == 0 {
		cfg.Connector.BackoffMin = 2 * time.Second
	}
	if cfg.Connector.BackoffMax == 0 {
		cfg.Connector.BackoffMax = 2 * time.Minute
	}
}

// applyEnvOverrides lets deployment-specific values come from the
// environment so the config file can stay secret-free.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FIELDWATCH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FIELDWATCH_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
}

// ValidateConfig validates the configuration.
func ValidateConfig(cfg *Config) error {
	if cfg.State.Metric == "" {
		return fmt.Errorf("state.metric is required")
	}
	if cfg.Scheduler.Interval < time.Minute {
		return fmt.Errorf("scheduler.interval must be at least 1m, got %s", cfg.Scheduler.Interval)
	}
	if cfg.Connector.BackoffMin > cfg.Connector.BackoffMax {
		return fmt.Errorf("connector.backoff_min %s exceeds backoff_max %s",
			cfg.Connector.BackoffMin, cfg.Connector.BackoffMax)
	}
	return nil
}
