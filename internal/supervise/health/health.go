// Package health provides system health reporting over HTTP and gRPC.
package health

import (
	"context"
	"sync"

	"github.com/vietddude/overseer/internal/core/domain"
	"github.com/vietddude/overseer/internal/supervise/agents"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ComponentHealth is the check result for an attached backing store.
type ComponentHealth struct {
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// Report contains the full system health report.
type Report struct {
	SystemStatus SystemStatus                  `json:"system_status"`
	Components   map[string]ComponentHealth    `json:"components,omitempty"`
	Agents       map[string]domain.AgentHealth `json:"agents"`
}

// Check pings a single backing store.
type Check func(ctx context.Context) error

// Monitor aggregates agent liveness and backing store checks into a report.
type Monitor struct {
	mu       sync.RWMutex
	registry *agents.Registry
	checks   map[string]Check
}

// NewMonitor creates a health monitor over the agent registry.
func NewMonitor(registry *agents.Registry) *Monitor {
	return &Monitor{
		registry: registry,
		checks:   make(map[string]Check),
	}
}

// AddCheck registers a named backing store check.
func (m *Monitor) AddCheck(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// CheckHealth runs every registered check and sweeps the agent registry.
// An unreachable store is critical; a failed agent degrades the system.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.RLock()
	checks := make(map[string]Check, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	m.mu.RUnlock()

	report := Report{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(checks)),
		Agents:       m.registry.Snapshot(),
	}

	for name, check := range checks {
		if err := check(ctx); err != nil {
			report.Components[name] = ComponentHealth{Status: StatusCritical, Error: err.Error()}
			report.SystemStatus = StatusCritical
		} else {
			report.Components[name] = ComponentHealth{Status: StatusHealthy}
		}
	}

	if report.SystemStatus == StatusCritical {
		return report
	}
	for _, agent := range report.Agents {
		if agent.Status == domain.AgentStatusFailed {
			report.SystemStatus = StatusDegraded
			break
		}
	}
	return report
}
