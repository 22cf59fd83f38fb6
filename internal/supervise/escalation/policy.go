// Package escalation decides when an error must reach a human and forwards
// it to the configured alerting sinks.
package escalation

import (
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/overseer/internal/core/domain"
)

// Policy maps accumulated occurrence counts to escalation decisions.
type Policy struct {
	thresholds domain.Thresholds
}

// NewPolicy creates a policy from the configured thresholds.
func NewPolicy(thresholds domain.Thresholds) *Policy {
	return &Policy{thresholds: thresholds}
}

// ShouldEscalate reports whether an error with the given severity and
// occurrence count has crossed its threshold. Escalation never resets the
// count, so every occurrence past the threshold escalates again.
func (p *Policy) ShouldEscalate(sev domain.Severity, count uint64) bool {
	return count >= p.thresholds.For(sev)
}

// Threshold returns the configured trigger count for a severity.
func (p *Policy) Threshold(sev domain.Severity) uint64 {
	return p.thresholds.For(sev)
}

// NewEscalation builds the payload forwarded to alerting sinks.
func NewEscalation(record domain.ErrorRecord, count uint64) *domain.Escalation {
	return &domain.Escalation{
		ID:          uuid.New().String(),
		Record:      record,
		Count:       count,
		EscalatedAt: time.Now().UTC(),
	}
}
