package control

import (
	"context"
	"testing"

	"github.com/vietddude/overseer/internal/core/config"
	"github.com/vietddude/overseer/internal/core/domain"
	"github.com/vietddude/overseer/internal/supervise/health"
	"github.com/vietddude/overseer/internal/supervise/recovery"
)

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	cfg := config.AppConfig{
		Agents: []string{"ingest", "train"},
	}
	cfg.ApplyDefaults()
	cfg.Publisher.LogDir = t.TempDir()

	sup, err := NewSupervisor(cfg)
	if err != nil {
		t.Fatalf("failed to build supervisor: %v", err)
	}
	return sup
}

func TestSupervisor_ReportErrorInvokesRegisteredProcedure(t *testing.T) {
	sup := newTestSupervisor(t)

	invoked := 0
	sup.RegisterRecovery("connection_error", recovery.ProcedureFunc(
		func(ctx context.Context, record *domain.ErrorRecord) bool {
			invoked++
			return true
		},
	))

	handled := sup.ReportError(context.Background(), domain.ErrorRecord{
		Kind:    "connection_error",
		Message: "upstream refused",
	})

	if invoked != 1 {
		t.Fatalf("expected 1 procedure invocation, got %d", invoked)
	}
	if handled.Outcome != domain.RecoveryOutcomeRecovered {
		t.Errorf("expected recovered outcome, got %s", handled.Outcome)
	}
}

func TestSupervisor_ReportErrorCountsAgentErrors(t *testing.T) {
	sup := newTestSupervisor(t)
	sup.Heartbeat("ingest")

	sup.ReportError(context.Background(), domain.ErrorRecord{
		Kind:    "timeout_warning",
		Message: "slow batch",
		Context: map[string]any{"agent": "ingest"},
	})

	report := sup.Health(context.Background())
	if got := report.Agents["ingest"].ErrorCount; got != 1 {
		t.Errorf("expected 1 agent error, got %d", got)
	}
}

func TestSupervisor_HeartbeatActivatesSeededAgent(t *testing.T) {
	sup := newTestSupervisor(t)

	report := sup.Health(context.Background())
	if report.Agents["train"].Status != domain.AgentStatusInactive {
		t.Fatalf("seeded agent must start inactive, got %s", report.Agents["train"].Status)
	}

	sup.Heartbeat("train")
	report = sup.Health(context.Background())
	if report.Agents["train"].Status != domain.AgentStatusActive {
		t.Errorf("expected active after heartbeat, got %s", report.Agents["train"].Status)
	}
	if report.SystemStatus != health.StatusHealthy {
		t.Errorf("expected healthy system, got %s", report.SystemStatus)
	}
}

func TestSupervisor_RecordMetricBuffersSample(t *testing.T) {
	sup := newTestSupervisor(t)

	sup.RecordMetric(domain.MetricSample{Name: "rows_ingested", Value: 1200})
	if got := sup.publisher.Buffered(); got != 1 {
		t.Errorf("expected 1 buffered record, got %d", got)
	}
}

func TestSupervisor_ShutdownFlushesBuffer(t *testing.T) {
	sup := newTestSupervisor(t)

	sup.Log(domain.LogEntry{Level: domain.LogLevelInfo, Message: "final event"})
	if err := sup.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if got := sup.publisher.Buffered(); got != 0 {
		t.Errorf("expected empty buffer after shutdown, got %d", got)
	}
}
