package agents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/overseer/internal/core/domain"
)

// =============================================================================
// Mocks
// =============================================================================

type mockAlerter struct {
	mu    sync.Mutex
	calls []*domain.Escalation
}

func (m *mockAlerter) Alert(ctx context.Context, esc *domain.Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, esc)
	return nil
}

func (m *mockAlerter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockEvents struct {
	mu      sync.Mutex
	entries []domain.LogEntry
	samples []domain.MetricSample
}

func (m *mockEvents) Publish(entry domain.LogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *mockEvents) PublishMetric(sample domain.MetricSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, sample)
}

func (m *mockEvents) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Message)
	}
	return out
}

// staleHeartbeat backdates an agent's heartbeat past the staleness window.
func staleHeartbeat(reg *Registry, name string, age time.Duration) {
	reg.Heartbeat(name)
	reg.mu.Lock()
	past := time.Now().UTC().Add(-age)
	reg.agents[name].LastHeartbeat = &past
	reg.mu.Unlock()
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_StaleAgentFails(t *testing.T) {
	reg := NewRegistry()
	alerter := &mockAlerter{}
	events := &mockEvents{}
	mon := NewMonitor(reg, MonitorConfig{Staleness: time.Minute}, nil, alerter, events)

	staleHeartbeat(reg, "validation", 2*time.Minute)
	mon.CheckOnce(context.Background())

	agent, _ := reg.Get("validation")
	if agent.Status != domain.AgentStatusFailed {
		t.Errorf("expected failed, got %s", agent.Status)
	}
	// No hook configured: the failure escalates
	if alerter.count() != 1 {
		t.Errorf("expected 1 escalation, got %d", alerter.count())
	}
}

func TestMonitor_FailureHandledOncePerDetection(t *testing.T) {
	reg := NewRegistry()
	alerter := &mockAlerter{}
	mon := NewMonitor(reg, MonitorConfig{Staleness: time.Minute}, nil, alerter, &mockEvents{})

	staleHeartbeat(reg, "validation", 2*time.Minute)
	mon.CheckOnce(context.Background())
	mon.CheckOnce(context.Background())
	mon.CheckOnce(context.Background())

	if alerter.count() != 1 {
		t.Errorf("expected exactly 1 failure handling, got %d", alerter.count())
	}
}

func TestMonitor_NeverHeartbeatedStaysInactive(t *testing.T) {
	reg := NewRegistry()
	alerter := &mockAlerter{}
	mon := NewMonitor(reg, MonitorConfig{Staleness: time.Minute}, nil, alerter, &mockEvents{})

	reg.Seed([]string{"not_started"})
	mon.CheckOnce(context.Background())

	agent, _ := reg.Get("not_started")
	if agent.Status != domain.AgentStatusInactive {
		t.Errorf("agent without heartbeats must stay inactive, got %s", agent.Status)
	}
	if alerter.count() != 0 {
		t.Errorf("expected no escalations, got %d", alerter.count())
	}
}

func TestMonitor_FreshAgentStaysActive(t *testing.T) {
	reg := NewRegistry()
	mon := NewMonitor(reg, MonitorConfig{Staleness: time.Minute}, nil, &mockAlerter{}, &mockEvents{})

	reg.Heartbeat("validation")
	mon.CheckOnce(context.Background())

	agent, _ := reg.Get("validation")
	if agent.Status != domain.AgentStatusActive {
		t.Errorf("expected active, got %s", agent.Status)
	}
}

func TestMonitor_HookSuccessSkipsEscalation(t *testing.T) {
	reg := NewRegistry()
	alerter := &mockAlerter{}
	events := &mockEvents{}
	hookCalls := 0
	hook := func(ctx context.Context, name string) error {
		hookCalls++
		return nil
	}
	mon := NewMonitor(reg, MonitorConfig{Staleness: time.Minute}, hook, alerter, events)

	staleHeartbeat(reg, "validation", 2*time.Minute)
	mon.CheckOnce(context.Background())

	if hookCalls != 1 {
		t.Errorf("expected hook to run once, got %d", hookCalls)
	}
	if alerter.count() != 0 {
		t.Errorf("successful hook must not escalate, got %d escalations", alerter.count())
	}

	found := false
	for _, msg := range events.messages() {
		if msg == "agent_recovery_attempt" {
			found = true
		}
	}
	if !found {
		t.Error("expected agent_recovery_attempt event")
	}
}

func TestMonitor_HookFailureEscalates(t *testing.T) {
	reg := NewRegistry()
	alerter := &mockAlerter{}
	hook := func(ctx context.Context, name string) error {
		return errors.New("restart failed")
	}
	mon := NewMonitor(reg, MonitorConfig{Staleness: time.Minute}, hook, alerter, &mockEvents{})

	staleHeartbeat(reg, "validation", 2*time.Minute)
	mon.CheckOnce(context.Background())

	if alerter.count() != 1 {
		t.Errorf("failed hook must escalate, got %d escalations", alerter.count())
	}
	if alerter.calls[0].Record.Kind != "agent_failure" {
		t.Errorf("unexpected escalation kind %s", alerter.calls[0].Record.Kind)
	}
}

func TestMonitor_PublishesHealthMetricEveryCycle(t *testing.T) {
	reg := NewRegistry()
	events := &mockEvents{}
	mon := NewMonitor(reg, MonitorConfig{Staleness: time.Minute}, nil, &mockAlerter{}, events)

	reg.Seed([]string{"a", "b"})
	mon.CheckOnce(context.Background())

	events.mu.Lock()
	n := len(events.samples)
	events.mu.Unlock()
	if n != 2 {
		t.Errorf("expected one health sample per agent, got %d", n)
	}
}
