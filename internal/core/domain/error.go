package domain

import "time"

// ErrorRecord represents a single reported failure. It is immutable once
// created; the coordinator and alerting sinks only read it.
type ErrorRecord struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Severity   Severity       `json:"severity,omitempty"`
	Message    string         `json:"message"`
	Context    map[string]any `json:"context,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Severity classifies an error for threshold-based escalation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
)

// RecoveryOutcome is the result of a single ReportError call.
type RecoveryOutcome string

const (
	RecoveryOutcomeRecovered    RecoveryOutcome = "recovered"
	RecoveryOutcomeFailed       RecoveryOutcome = "failed"
	RecoveryOutcomeNotAttempted RecoveryOutcome = "not_attempted"
)

// Handled summarizes how a reported error was processed. It is always
// returned to the caller; reporting never fails from the caller's view.
type Handled struct {
	Severity  Severity        `json:"severity"`
	Outcome   RecoveryOutcome `json:"outcome"`
	Escalated bool            `json:"escalated"`
	Count     uint64          `json:"count"`
}

// ErrorKindState tracks occurrences of one error kind for the process
// lifetime. Count resets to zero on successful recovery.
type ErrorKindState struct {
	Kind                string     `json:"kind"`
	Count               uint64     `json:"count"`
	LastRecoveryAttempt *time.Time `json:"last_recovery_attempt,omitempty"`
}

// Escalation is the payload forwarded to alerting sinks once an error kind
// crosses its severity threshold.
type Escalation struct {
	ID          string      `json:"id"`
	Record      ErrorRecord `json:"record"`
	Count       uint64      `json:"count"`
	EscalatedAt time.Time   `json:"escalated_at"`
}
