package agents

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/vietddude/overseer/internal/core/domain"
	"github.com/vietddude/overseer/internal/supervise/escalation"
	"github.com/vietddude/overseer/internal/supervise/metrics"
)

// RecoveryHook attempts to restart or otherwise remediate a failed agent.
type RecoveryHook func(ctx context.Context, name string) error

// EventSink receives structured event records for the log pipeline.
type EventSink interface {
	Publish(entry domain.LogEntry)
	PublishMetric(sample domain.MetricSample)
}

// MonitorConfig holds staleness detection settings.
type MonitorConfig struct {
	CheckInterval time.Duration // how often agents are swept
	Staleness     time.Duration // max heartbeat age before an agent fails
}

// Monitor sweeps the registry for stale heartbeats. An agent whose last
// heartbeat is older than the staleness threshold transitions to failed and
// is handled exactly once per detection: the failure is logged, the recovery
// hook runs if set, and the failure escalates when the hook is absent or
// fails. Agents that never heartbeated are left inactive.
type Monitor struct {
	registry *Registry
	cfg      MonitorConfig
	hook     RecoveryHook
	alerter  escalation.Alerter
	events   EventSink
	log      *slog.Logger
}

// NewMonitor creates a staleness monitor.
func NewMonitor(
	registry *Registry,
	cfg MonitorConfig,
	hook RecoveryHook,
	alerter escalation.Alerter,
	events EventSink,
) *Monitor {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.Staleness == 0 {
		cfg.Staleness = 60 * time.Second
	}
	return &Monitor{
		registry: registry,
		cfg:      cfg,
		hook:     hook,
		alerter:  alerter,
		events:   events,
		log:      slog.Default(),
	}
}

// Run sweeps until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce performs a single sweep over all known agents.
func (m *Monitor) CheckOnce(ctx context.Context) {
	now := time.Now().UTC()

	for name, agent := range m.registry.Snapshot() {
		if agent.LastHeartbeat != nil &&
			agent.Status != domain.AgentStatusFailed &&
			now.Sub(*agent.LastHeartbeat) > m.cfg.Staleness {
			if m.registry.markFailed(name) {
				m.handleFailure(ctx, name, agent)
			}
		}

		m.publishHealth(name)
	}
}

func (m *Monitor) publishHealth(name string) {
	agent, ok := m.registry.Get(name)
	if !ok {
		return
	}

	value := 0.0
	if agent.Status == domain.AgentStatusActive {
		value = 1.0
	}
	metrics.AgentHealth.WithLabelValues(name).Set(value)

	if m.events != nil {
		m.events.PublishMetric(domain.MetricSample{
			Name:  name + "_health",
			Value: value,
			Tags:  map[string]string{"error_count": strconv.FormatUint(agent.ErrorCount, 10)},
		})
	}
}

func (m *Monitor) handleFailure(ctx context.Context, name string, agent domain.AgentHealth) {
	metrics.AgentFailures.WithLabelValues(name).Inc()
	m.log.Warn("Agent heartbeat stale, marking failed",
		"agent", name,
		"last_heartbeat", agent.LastHeartbeat,
	)
	if m.events != nil {
		m.events.Publish(domain.LogEntry{
			Level:   domain.LogLevelError,
			Message: "agent_failure",
			Context: map[string]any{
				"agent":       name,
				"error_count": agent.ErrorCount,
			},
		})
	}

	if m.hook != nil {
		if err := m.hook(ctx, name); err == nil {
			if m.events != nil {
				m.events.Publish(domain.LogEntry{
					Level:   domain.LogLevelInfo,
					Message: "agent_recovery_attempt",
					Context: map[string]any{"agent": name},
				})
			}
			return
		}
	}

	// No hook, or the hook failed: escalate.
	m.escalate(ctx, name, agent)
}

func (m *Monitor) escalate(ctx context.Context, name string, agent domain.AgentHealth) {
	if m.alerter == nil {
		return
	}

	metrics.Escalations.WithLabelValues(string(domain.SeverityCritical)).Inc()
	esc := escalation.NewEscalation(domain.ErrorRecord{
		Kind:       "agent_failure",
		Severity:   domain.SeverityCritical,
		Message:    "agent heartbeat stale beyond threshold",
		Context:    map[string]any{"agent": name, "last_heartbeat": agent.LastHeartbeat},
		OccurredAt: time.Now().UTC(),
	}, agent.ErrorCount)

	alertCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.alerter.Alert(alertCtx, esc); err != nil {
		m.log.Warn("Agent failure escalation failed", "agent", name, "error", err)
	}
}
