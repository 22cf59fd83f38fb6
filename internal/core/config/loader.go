package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in zero-valued settings with the stock policy.
func (cfg *AppConfig) ApplyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Supervision.HeartbeatStaleness == 0 {
		cfg.Supervision.HeartbeatStaleness = 60 * time.Second
	}
	if cfg.Supervision.HealthCheckInterval == 0 {
		cfg.Supervision.HealthCheckInterval = 30 * time.Second
	}
	if cfg.Supervision.RecoveryCooldown == 0 {
		cfg.Supervision.RecoveryCooldown = 300 * time.Second
	}
	if cfg.Supervision.Thresholds.Critical == 0 {
		cfg.Supervision.Thresholds.Critical = 1
	}
	if cfg.Supervision.Thresholds.Error == 0 {
		cfg.Supervision.Thresholds.Error = 5
	}
	if cfg.Supervision.Thresholds.Warning == 0 {
		cfg.Supervision.Thresholds.Warning = 10
	}

	// Resource checks run between every 15s and every 60s.
	if cfg.Resources.CheckInterval == 0 {
		cfg.Resources.CheckInterval = 60 * time.Second
	}
	if cfg.Resources.CheckInterval < 15*time.Second {
		cfg.Resources.CheckInterval = 15 * time.Second
	}
	if cfg.Resources.CheckInterval > 60*time.Second {
		cfg.Resources.CheckInterval = 60 * time.Second
	}
	if cfg.Resources.MaxCPUPercent == 0 {
		cfg.Resources.MaxCPUPercent = 80
	}
	if cfg.Resources.MaxMemoryMB == 0 {
		cfg.Resources.MaxMemoryMB = 4096
	}
	if cfg.Resources.MaxDiskPercent == 0 {
		cfg.Resources.MaxDiskPercent = 90
	}

	if cfg.Publisher.BufferSize == 0 {
		cfg.Publisher.BufferSize = 100
	}
	if cfg.Publisher.FlushInterval == 0 {
		cfg.Publisher.FlushInterval = 60 * time.Second
	}
	if cfg.Publisher.LogDir == "" {
		cfg.Publisher.LogDir = "logs"
	}
	if cfg.Publisher.MaxLogSize == 0 {
		cfg.Publisher.MaxLogSize = 10 * 1024 * 1024
	}
	if cfg.Publisher.BackupCount == 0 {
		cfg.Publisher.BackupCount = 5
	}
	if cfg.Publisher.IndexRetention == 0 {
		cfg.Publisher.IndexRetention = 30
	}
	if cfg.Publisher.RotationInterval == 0 {
		cfg.Publisher.RotationInterval = 5 * time.Minute
	}
	if cfg.Publisher.RetentionInterval == 0 {
		cfg.Publisher.RetentionInterval = 24 * time.Hour
	}

	if cfg.Metrics.PushInterval == 0 {
		cfg.Metrics.PushInterval = 60 * time.Second
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "overseer"
	}
	if cfg.Metrics.PipelineCheckInterval == 0 {
		cfg.Metrics.PipelineCheckInterval = 5 * time.Minute
	}

	if cfg.Alerting.WebhookTimeout == 0 {
		cfg.Alerting.WebhookTimeout = 10 * time.Second
	}

	if cfg.Host == "" {
		if h, err := os.Hostname(); err == nil {
			cfg.Host = h
		} else {
			cfg.Host = "unknown"
		}
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
}
