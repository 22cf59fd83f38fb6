package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/overseer/internal/core/domain"
	"github.com/vietddude/overseer/internal/supervise/agents"
)

// =============================================================================
// Tests
// =============================================================================

func TestCheckHealth_AllHealthy(t *testing.T) {
	reg := agents.NewRegistry()
	reg.Heartbeat("ingest")

	mon := NewMonitor(reg)
	mon.AddCheck("redis", func(context.Context) error { return nil })

	report := mon.CheckHealth(context.Background())
	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.SystemStatus)
	}
	if report.Components["redis"].Status != StatusHealthy {
		t.Errorf("expected healthy redis component, got %+v", report.Components["redis"])
	}
	if len(report.Agents) != 1 {
		t.Errorf("expected 1 agent in report, got %d", len(report.Agents))
	}
}

func TestCheckHealth_StoreFailureIsCritical(t *testing.T) {
	mon := NewMonitor(agents.NewRegistry())
	mon.AddCheck("postgres", func(context.Context) error { return errors.New("connection refused") })

	report := mon.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
	if report.Components["postgres"].Error == "" {
		t.Error("expected component error to be reported")
	}
}

func TestCheckHealth_SeededAgentsAreNotDegraded(t *testing.T) {
	reg := agents.NewRegistry()
	reg.Seed([]string{"ingest", "train"})

	report := NewMonitor(reg).CheckHealth(context.Background())
	if report.SystemStatus != StatusHealthy {
		t.Errorf("inactive agents must not degrade the system, got %s", report.SystemStatus)
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	reg := agents.NewRegistry()
	mon := NewMonitor(reg)
	srv := NewServer(mon, 0)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body["status"] != string(StatusHealthy) {
		t.Errorf("expected healthy status, got %q", body["status"])
	}
}

func TestServer_HealthEndpointCriticalReturns503(t *testing.T) {
	mon := NewMonitor(agents.NewRegistry())
	mon.AddCheck("redis", func(context.Context) error { return errors.New("down") })
	srv := NewServer(mon, 0)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 503 {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestServer_AgentsEndpoint(t *testing.T) {
	reg := agents.NewRegistry()
	reg.Heartbeat("ingest")
	srv := NewServer(NewMonitor(reg), 0)

	rec := httptest.NewRecorder()
	srv.handleAgents(rec, httptest.NewRequest("GET", "/health/agents", nil))

	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	agent, ok := report.Agents["ingest"]
	if !ok {
		t.Fatal("expected ingest agent in report")
	}
	if agent.Status != domain.AgentStatusActive {
		t.Errorf("expected active agent, got %s", agent.Status)
	}
}
