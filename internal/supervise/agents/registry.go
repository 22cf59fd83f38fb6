// Package agents tracks the liveness of cooperating workers via heartbeats.
package agents

import (
	"sync"
	"time"

	"github.com/vietddude/overseer/internal/core/domain"
	"github.com/vietddude/overseer/internal/supervise/metrics"
)

// Registry holds per-agent health state. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*domain.AgentHealth
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*domain.AgentHealth)}
}

// Seed initializes entries for the configured agent names. Seeded agents
// start inactive and stay that way until their first heartbeat.
func (r *Registry) Seed(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if _, ok := r.agents[name]; !ok {
			r.agents[name] = &domain.AgentHealth{
				Name:   name,
				Status: domain.AgentStatusInactive,
			}
		}
	}
}

// Heartbeat records a liveness signal. Unknown agents are registered on
// first contact; a failed agent that heartbeats again becomes active.
func (r *Registry) Heartbeat(name string) {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[name]
	if !ok {
		agent = &domain.AgentHealth{Name: name}
		r.agents[name] = agent
	}
	agent.Status = domain.AgentStatusActive
	agent.LastHeartbeat = &now
}

// RecordError increments an agent's error counter.
func (r *Registry) RecordError(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[name]
	if !ok {
		agent = &domain.AgentHealth{Name: name, Status: domain.AgentStatusInactive}
		r.agents[name] = agent
	}
	agent.ErrorCount++
	metrics.AgentErrors.WithLabelValues(name).Inc()
}

// Get returns a copy of one agent's health.
func (r *Registry) Get(name string) (domain.AgentHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[name]
	if !ok {
		return domain.AgentHealth{}, false
	}
	return *agent, true
}

// Snapshot returns a copy of the whole health table.
func (r *Registry) Snapshot() map[string]domain.AgentHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.AgentHealth, len(r.agents))
	for name, agent := range r.agents {
		out[name] = *agent
	}
	return out
}

// markFailed transitions an agent to failed. Returns false when the agent is
// unknown or already failed, so the monitor handles each failure only once
// per detection.
func (r *Registry) markFailed(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[name]
	if !ok || agent.Status == domain.AgentStatusFailed {
		return false
	}
	agent.Status = domain.AgentStatusFailed
	return true
}
