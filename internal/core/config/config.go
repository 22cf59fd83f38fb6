package config

import (
	"time"

	redisclient "github.com/vietddude/overseer/internal/infra/redis"
	"github.com/vietddude/overseer/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Agents      []string           `yaml:"agents"`
	Supervision SupervisionConfig  `yaml:"supervision"`
	Resources   ResourceConfig     `yaml:"resources"`
	Publisher   PublisherConfig    `yaml:"publisher"`
	Metrics     MetricsConfig      `yaml:"metrics"`
	Alerting    AlertingConfig     `yaml:"alerting"`
	Redis       redisclient.Config `yaml:"redis"`
	Database    postgres.Config    `yaml:"database"`
	Host        string             `yaml:"host"`
	Environment string             `yaml:"environment"`
}

// ServerConfig holds the health/metrics server settings.
type ServerConfig struct {
	Port     int `yaml:"port"`
	GRPCPort int `yaml:"grpc_port"` // 0 disables the gRPC health service
}

// LoggingConfig holds process logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SupervisionConfig holds error-handling and liveness policy.
type SupervisionConfig struct {
	HeartbeatStaleness  time.Duration    `yaml:"heartbeat_staleness"`
	HealthCheckInterval time.Duration    `yaml:"health_check_interval"`
	RecoveryCooldown    time.Duration    `yaml:"recovery_cooldown"`
	Thresholds          ThresholdsConfig `yaml:"thresholds"`
}

// ThresholdsConfig maps severity classes to escalation trigger counts.
type ThresholdsConfig struct {
	Critical uint64 `yaml:"critical"`
	Error    uint64 `yaml:"error"`
	Warning  uint64 `yaml:"warning"`
}

// ResourceConfig holds host resource monitoring settings.
type ResourceConfig struct {
	CheckInterval  time.Duration `yaml:"check_interval"` // clamped to 15-60s
	MaxCPUPercent  float64       `yaml:"max_cpu_percent"`
	MaxMemoryMB    float64       `yaml:"max_memory_mb"`
	MaxDiskPercent float64       `yaml:"max_disk_percent"`
}

// PublisherConfig holds log/metric buffering and rotation settings.
type PublisherConfig struct {
	BufferSize        int           `yaml:"buffer_size"`
	FlushInterval     time.Duration `yaml:"flush_interval"`
	LogDir            string        `yaml:"log_dir"`
	MaxLogSize        int64         `yaml:"max_log_size"` // bytes
	BackupCount       int           `yaml:"backup_count"`
	IndexRetention    int           `yaml:"index_retention"`
	RotationInterval  time.Duration `yaml:"rotation_interval"`
	RetentionInterval time.Duration `yaml:"retention_interval"`
}

// MetricsConfig holds Prometheus push and collaborator check settings.
type MetricsConfig struct {
	PushgatewayURL        string        `yaml:"pushgateway_url"` // empty disables push
	PushInterval          time.Duration `yaml:"push_interval"`
	Job                   string        `yaml:"job"`
	PipelineCheckInterval time.Duration `yaml:"pipeline_check_interval"`
}

// AlertingConfig holds escalation sink settings.
type AlertingConfig struct {
	WebhookURL     string        `yaml:"webhook_url"` // empty disables the webhook sink
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	ArchiveToDB    bool          `yaml:"archive_to_db"`
}
