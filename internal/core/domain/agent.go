package domain

import "time"

// AgentStatus is the liveness state of a tracked agent.
type AgentStatus string

const (
	AgentStatusInactive AgentStatus = "inactive"
	AgentStatusActive   AgentStatus = "active"
	AgentStatusFailed   AgentStatus = "failed"
)

// AgentHealth tracks the liveness of a single named agent. An agent that has
// never sent a heartbeat stays inactive and is never considered failed.
type AgentHealth struct {
	Name          string      `json:"name"`
	Status        AgentStatus `json:"status"`
	LastHeartbeat *time.Time  `json:"last_heartbeat,omitempty"`
	ErrorCount    uint64      `json:"error_count"`
}
