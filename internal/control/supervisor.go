// Package control wires the supervision components together and owns their
// lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/overseer/internal/core/config"
	"github.com/vietddude/overseer/internal/core/domain"
	redisclient "github.com/vietddude/overseer/internal/infra/redis"
	"github.com/vietddude/overseer/internal/infra/storage/postgres"
	"github.com/vietddude/overseer/internal/supervise/agents"
	"github.com/vietddude/overseer/internal/supervise/escalation"
	"github.com/vietddude/overseer/internal/supervise/health"
	"github.com/vietddude/overseer/internal/supervise/metrics"
	"github.com/vietddude/overseer/internal/supervise/publish"
	"github.com/vietddude/overseer/internal/supervise/recovery"
	"github.com/vietddude/overseer/internal/supervise/resource"
)

// Supervisor is the main application struct that manages the supervision
// components and their lifecycle. Agents interact with it through
// ReportError, Heartbeat, RecordMetric, and RegisterRecovery.
type Supervisor struct {
	cfg config.AppConfig

	registry    *agents.Registry
	coordinator *recovery.Coordinator
	agentMon    *agents.Monitor
	resourceMon *resource.Monitor
	publisher   *publish.Publisher
	rotator     *publish.Rotator
	retention   *publish.Retention
	pusher      *metrics.Pusher

	healthMon    *health.Monitor
	healthServer *health.Server
	grpcServer   *health.GRPCServer

	db          *postgres.DB
	redisClient *redisclient.Client

	cancel context.CancelFunc
	log    *slog.Logger
}

// NewSupervisor creates a Supervisor with all dependencies initialized.
func NewSupervisor(cfg config.AppConfig) (*Supervisor, error) {
	s := &Supervisor{
		cfg: cfg,
		log: slog.Default(),
	}

	// 1. Initialize Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		s.db = db
		slog.Info("Using PostgreSQL alert archive")
	}

	if cfg.Redis.URL != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, records fall back to local backup", "error", err)
		} else {
			s.redisClient = redisClient
			slog.Info("Using Redis record sink")
		}
	}

	// 2. Initialize Publisher and log maintenance
	var sink publish.RemoteSink
	if s.redisClient != nil {
		sink = s.redisClient
	}
	s.publisher = publish.NewPublisher(publish.Config{
		BufferSize:    cfg.Publisher.BufferSize,
		FlushInterval: cfg.Publisher.FlushInterval,
		LogDir:        cfg.Publisher.LogDir,
		Host:          cfg.Host,
		Environment:   cfg.Environment,
	}, sink)

	s.rotator = publish.NewRotator(
		cfg.Publisher.LogDir,
		cfg.Publisher.MaxLogSize,
		cfg.Publisher.BackupCount,
		cfg.Publisher.RotationInterval,
	)
	if s.redisClient != nil {
		s.retention = publish.NewRetention(
			s.redisClient,
			cfg.Publisher.IndexRetention,
			cfg.Publisher.RetentionInterval,
		)
	}

	// 3. Initialize Escalation
	alerters := []escalation.Alerter{escalation.NewSlogAlerter(slog.Default())}
	if cfg.Alerting.WebhookURL != "" {
		alerters = append(alerters, escalation.NewWebhookAlerter(cfg.Alerting.WebhookURL, cfg.Alerting.WebhookTimeout))
	}
	if cfg.Alerting.ArchiveToDB && s.db != nil {
		alerters = append(alerters, escalation.NewArchiveAlerter(postgres.NewAlertRepo(s.db)))
	}
	alerter := escalation.NewMultiAlerter(alerters...)

	policy := escalation.NewPolicy(domain.Thresholds{
		Critical: cfg.Supervision.Thresholds.Critical,
		Error:    cfg.Supervision.Thresholds.Error,
		Warning:  cfg.Supervision.Thresholds.Warning,
	})

	// 4. Initialize Coordinator and Agent Monitor
	s.coordinator = recovery.NewCoordinator(
		recovery.Config{Cooldown: cfg.Supervision.RecoveryCooldown},
		policy,
		alerter,
		s.publisher,
	)

	s.registry = agents.NewRegistry()
	s.registry.Seed(cfg.Agents)

	// Agent failures report through the coordinator, so a registered
	// agent_failure procedure covers them and escalation happens in one
	// place.
	hook := func(ctx context.Context, name string) error {
		s.coordinator.ReportError(ctx, domain.ErrorRecord{
			Kind:     "agent_failure",
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("agent %s missed its heartbeat window", name),
			Context:  map[string]any{"agent": name},
		})
		return nil
	}
	s.agentMon = agents.NewMonitor(
		s.registry,
		agents.MonitorConfig{
			CheckInterval: cfg.Supervision.HealthCheckInterval,
			Staleness:     cfg.Supervision.HeartbeatStaleness,
		},
		hook,
		alerter,
		s.publisher,
	)

	// 5. Initialize Resource Monitor
	s.resourceMon = resource.NewMonitor(
		resource.NewHostSampler("/"),
		resource.Limits{
			MaxCPUPercent:  cfg.Resources.MaxCPUPercent,
			MaxMemoryMB:    cfg.Resources.MaxMemoryMB,
			MaxDiskPercent: cfg.Resources.MaxDiskPercent,
		},
		cfg.Resources.CheckInterval,
		s.publisher,
	)

	// 6. Initialize Health Servers
	s.healthMon = health.NewMonitor(s.registry)
	if s.db != nil {
		s.healthMon.AddCheck("postgres", s.db.Health)
	}
	if s.redisClient != nil {
		s.healthMon.AddCheck("redis", s.redisClient.Ping)
	}
	s.healthServer = health.NewServer(s.healthMon, cfg.Server.Port)
	if cfg.Server.GRPCPort != 0 {
		s.grpcServer = health.NewGRPCServer(s.healthMon, cfg.Server.GRPCPort)
	}

	// 7. Initialize Pushgateway
	if cfg.Metrics.PushgatewayURL != "" {
		s.pusher = metrics.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, cfg.Metrics.PushInterval)
	}

	return s, nil
}

// Start launches the monitoring loops and servers.
func (s *Supervisor) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("Health server failed", "error", err)
		}
	}()
	if s.grpcServer != nil {
		go func() {
			if err := s.grpcServer.Start(); err != nil {
				s.log.Error("gRPC health server failed", "error", err)
			}
		}()
		go s.grpcServer.Run(ctx, s.cfg.Supervision.HealthCheckInterval)
	}

	if s.db != nil {
		s.db.StartMetricsCollector(ctx)
	}

	go s.agentMon.Run(ctx)
	go s.resourceMon.Run(ctx)
	go s.publisher.Run(ctx)
	go s.rotator.Run(ctx)
	if s.retention != nil {
		go s.retention.Run(ctx)
	}
	if s.pusher != nil {
		go s.pusher.Run(ctx)
	}
	go s.runStoreChecker(ctx)

	s.publisher.Publish(domain.LogEntry{
		Level:   domain.LogLevelInfo,
		Message: "supervisor started",
		Context: map[string]any{"agents": len(s.cfg.Agents)},
	})
	s.log.Info("Supervisor started", "agents", len(s.cfg.Agents))
	return nil
}

// ReportError records a failure, attempts recovery, and escalates per policy.
func (s *Supervisor) ReportError(ctx context.Context, record domain.ErrorRecord) domain.Handled {
	if agent, ok := record.Context["agent"].(string); ok && agent != "" {
		s.registry.RecordError(agent)
	}
	return s.coordinator.ReportError(ctx, record)
}

// Heartbeat marks the named agent alive.
func (s *Supervisor) Heartbeat(name string) {
	s.registry.Heartbeat(name)
}

// RecordMetric buffers a metric sample for the remote sink.
func (s *Supervisor) RecordMetric(sample domain.MetricSample) {
	s.publisher.PublishMetric(sample)
}

// Log buffers a structured event for the remote sink.
func (s *Supervisor) Log(entry domain.LogEntry) {
	s.publisher.Publish(entry)
}

// RegisterRecovery registers a recovery procedure for an error kind.
func (s *Supervisor) RegisterRecovery(kind string, proc recovery.Procedure) {
	s.coordinator.RegisterProcedure(kind, proc)
}

// Health returns the current system health report.
func (s *Supervisor) Health(ctx context.Context) health.Report {
	return s.healthMon.CheckHealth(ctx)
}

// Shutdown stops the loops, flushes the buffer, and closes connections.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping Supervisor...")

	if s.cancel != nil {
		s.cancel()
	}

	s.publisher.Publish(domain.LogEntry{
		Level:   domain.LogLevelInfo,
		Message: "supervisor stopping",
	})
	s.publisher.Flush(ctx)

	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}

	return s.healthServer.Stop(ctx)
}

// runStoreChecker pings the attached stores on an interval and records
// their reachability.
func (s *Supervisor) runStoreChecker(ctx context.Context) {
	if s.db == nil && s.redisClient == nil {
		return
	}

	ticker := time.NewTicker(s.cfg.Metrics.PipelineCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkStores(ctx)
		}
	}
}

func (s *Supervisor) checkStores(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.Health(checkCtx); err != nil {
			metrics.StoreConnection.WithLabelValues("postgres").Set(0)
			s.log.Warn("Database unreachable", "error", err)
		} else {
			metrics.StoreConnection.WithLabelValues("postgres").Set(1)
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(checkCtx); err != nil {
			metrics.StoreConnection.WithLabelValues("redis").Set(0)
			s.log.Warn("Redis unreachable", "error", err)
		} else {
			metrics.StoreConnection.WithLabelValues("redis").Set(1)
		}
	}
}
