// Package recovery classifies reported errors and rate-limits automated
// recovery attempts per error kind.
package recovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/overseer/internal/core/domain"
	"github.com/vietddude/overseer/internal/supervise/escalation"
	"github.com/vietddude/overseer/internal/supervise/metrics"
)

// Procedure attempts to remediate one class of error. Implementations are
// registered per error kind; the coordinator holds only a reference.
type Procedure interface {
	AttemptRecovery(ctx context.Context, record *domain.ErrorRecord) bool
}

// ProcedureFunc adapts a plain function to the Procedure interface.
type ProcedureFunc func(ctx context.Context, record *domain.ErrorRecord) bool

// AttemptRecovery calls f.
func (f ProcedureFunc) AttemptRecovery(ctx context.Context, record *domain.ErrorRecord) bool {
	return f(ctx, record)
}

// EventSink receives structured event records for the log pipeline.
type EventSink interface {
	Publish(entry domain.LogEntry)
}

// Config holds coordinator settings.
type Config struct {
	// Cooldown is the minimum time between recovery attempts for one kind.
	Cooldown time.Duration
}

// Coordinator tracks per-kind error state, invokes registered recovery
// procedures under a cooldown window, and escalates errors that cross their
// severity threshold. Safe for concurrent use.
type Coordinator struct {
	mu         sync.Mutex
	states     map[string]*domain.ErrorKindState
	procedures map[string]Procedure

	cooldown time.Duration
	policy   *escalation.Policy
	alerter  escalation.Alerter
	events   EventSink
	log      *slog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(
	cfg Config,
	policy *escalation.Policy,
	alerter escalation.Alerter,
	events EventSink,
) *Coordinator {
	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = 300 * time.Second
	}
	return &Coordinator{
		states:     make(map[string]*domain.ErrorKindState),
		procedures: make(map[string]Procedure),
		cooldown:   cooldown,
		policy:     policy,
		alerter:    alerter,
		events:     events,
		log:        slog.Default(),
	}
}

// RegisterProcedure registers a recovery procedure for an error kind,
// overwriting any prior registration. Safe to call while errors for the
// kind are in flight; the next report sees the new procedure.
func (c *Coordinator) RegisterProcedure(kind string, proc Procedure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.procedures[kind] = proc
	c.log.Info("Registered recovery procedure", "kind", kind)
}

// ReportError processes a reported failure. It always succeeds from the
// caller's point of view: internal faults are logged, never propagated.
func (c *Coordinator) ReportError(ctx context.Context, record domain.ErrorRecord) domain.Handled {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now().UTC()
	}
	record.Severity = Classify(&record)

	metrics.ErrorsReported.WithLabelValues(record.Kind, string(record.Severity)).Inc()
	c.publishEvent(domain.LogLevelError, "error_reported", map[string]any{
		"kind":     record.Kind,
		"severity": string(record.Severity),
		"message":  record.Message,
	})

	// Count the occurrence and decide on recovery while holding the lock.
	// Setting LastRecoveryAttempt before the procedure runs is what keeps
	// concurrent reports of the same kind from re-entering recovery.
	c.mu.Lock()
	state, ok := c.states[record.Kind]
	if !ok {
		state = &domain.ErrorKindState{Kind: record.Kind}
		c.states[record.Kind] = state
	}
	state.Count++
	count := state.Count

	proc, registered := c.procedures[record.Kind]
	eligible := registered &&
		(state.LastRecoveryAttempt == nil ||
			time.Since(*state.LastRecoveryAttempt) >= c.cooldown)
	if eligible {
		now := time.Now().UTC()
		state.LastRecoveryAttempt = &now
	}
	c.mu.Unlock()

	handled := domain.Handled{
		Severity: record.Severity,
		Outcome:  domain.RecoveryOutcomeNotAttempted,
		Count:    count,
	}

	if eligible {
		handled.Outcome = c.attemptRecovery(ctx, proc, &record)
		if handled.Outcome == domain.RecoveryOutcomeRecovered {
			c.mu.Lock()
			c.states[record.Kind].Count = 0
			c.mu.Unlock()
			handled.Count = 0
		}
		return handled
	}

	// No recovery was eligible; evaluate escalation against the count.
	if c.policy != nil && c.policy.ShouldEscalate(record.Severity, count) {
		c.escalate(ctx, record, count)
		handled.Escalated = true
	}
	return handled
}

// State returns a snapshot of the tracked state for one kind.
func (c *Coordinator) State(kind string) (domain.ErrorKindState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[kind]
	if !ok {
		return domain.ErrorKindState{}, false
	}
	return *state, true
}

// attemptRecovery invokes the procedure, treating a panic as a failure.
func (c *Coordinator) attemptRecovery(
	ctx context.Context,
	proc Procedure,
	record *domain.ErrorRecord,
) (outcome domain.RecoveryOutcome) {
	outcome = domain.RecoveryOutcomeFailed

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Recovery procedure panicked", "kind", record.Kind, "panic", r)
			outcome = domain.RecoveryOutcomeFailed
		}
		metrics.RecoveryAttempts.WithLabelValues(record.Kind, string(outcome)).Inc()
		event := "error_recovery_failed"
		if outcome == domain.RecoveryOutcomeRecovered {
			event = "error_recovery_success"
		}
		c.publishEvent(domain.LogLevelInfo, event, map[string]any{
			"kind": record.Kind,
			"id":   record.ID,
		})
	}()

	if proc.AttemptRecovery(ctx, record) {
		outcome = domain.RecoveryOutcomeRecovered
	}
	return outcome
}

func (c *Coordinator) escalate(ctx context.Context, record domain.ErrorRecord, count uint64) {
	metrics.Escalations.WithLabelValues(string(record.Severity)).Inc()
	c.publishEvent(domain.LogLevelError, "error_escalation", map[string]any{
		"kind":     record.Kind,
		"severity": string(record.Severity),
		"count":    count,
	})

	if c.alerter == nil {
		return
	}
	alertCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.alerter.Alert(alertCtx, escalation.NewEscalation(record, count)); err != nil {
		c.log.Warn("Escalation delivery failed", "kind", record.Kind, "error", err)
	}
}

func (c *Coordinator) publishEvent(level domain.LogLevel, event string, ctx map[string]any) {
	if c.events == nil {
		return
	}
	c.events.Publish(domain.LogEntry{
		Level:   level,
		Message: event,
		Context: ctx,
	})
}
