package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrorsReported tracks reported errors per kind and severity
	ErrorsReported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overseer_errors_reported_total",
			Help: "Total number of errors reported to the supervisor",
		},
		[]string{"kind", "severity"},
	)

	// RecoveryAttempts tracks recovery attempts per kind and outcome
	RecoveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overseer_recovery_attempts_total",
			Help: "Total number of recovery attempts",
		},
		[]string{"kind", "outcome"},
	)

	// Escalations tracks escalations forwarded to alerting sinks
	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overseer_escalations_total",
			Help: "Total number of escalated errors",
		},
		[]string{"severity"},
	)

	// AgentHealth is 1 when an agent is active, 0 otherwise
	AgentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "overseer_agent_health",
			Help: "Agent liveness (1 = active, 0 = inactive or failed)",
		},
		[]string{"agent"},
	)

	// AgentErrors tracks errors recorded against agents
	AgentErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overseer_agent_errors_total",
			Help: "Total number of errors recorded per agent",
		},
		[]string{"agent"},
	)

	// AgentFailures tracks staleness-detected agent failures
	AgentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overseer_agent_failures_total",
			Help: "Total number of agent heartbeat failures detected",
		},
		[]string{"agent"},
	)

	// CPUUsage tracks host CPU usage percentage
	CPUUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "overseer_system_cpu_usage",
			Help: "CPU usage percentage",
		},
	)

	// MemoryUsage tracks host memory usage in MB
	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "overseer_system_memory_usage",
			Help: "Memory usage in MB",
		},
	)

	// DiskUsage tracks host disk usage percentage
	DiskUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "overseer_system_disk_usage",
			Help: "Disk usage percentage",
		},
	)

	// ResourceWarnings tracks configured-limit breaches
	ResourceWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overseer_resource_warnings_total",
			Help: "Total number of resource limit breaches",
		},
		[]string{"resource"},
	)

	// BufferedRecords tracks the current publisher buffer size
	BufferedRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "overseer_publisher_buffered_records",
			Help: "Records currently held in the publisher buffer",
		},
	)

	// FlushesTotal tracks publisher flushes by destination and status
	FlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overseer_publisher_flushes_total",
			Help: "Total number of publisher flushes",
		},
		[]string{"destination", "status"},
	)

	// FlushedRecords tracks records delivered per destination
	FlushedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overseer_publisher_flushed_records_total",
			Help: "Total number of records flushed",
		},
		[]string{"destination"},
	)

	// StoreConnection is 1 when a collaborator store is reachable
	StoreConnection = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "overseer_store_connection",
			Help: "Collaborator store reachability (1 = up, 0 = down)",
		},
		[]string{"store"},
	)

	// DBConnectionPoolUsage tracks postgres pool utilization percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "overseer_db_connection_pool_usage",
			Help: "Database connection pool usage percentage",
		},
	)
)
