package domain

import "time"

// LogLevel is the level attached to a published log entry.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// LogEntry is a structured event record handed to the log sink. Entries are
// ephemeral: buffered, flushed, and only written to the local backup file
// when the remote sink is unreachable.
type LogEntry struct {
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Context     map[string]any `json:"context,omitempty"`
	Host        string         `json:"host"`
	Environment string         `json:"environment"`
	Timestamp   time.Time      `json:"timestamp"`
}

// MetricSample is a single observed metric value handed to the metrics
// backend. Same buffering lifecycle as LogEntry.
type MetricSample struct {
	Name       string            `json:"name"`
	Value      float64           `json:"value"`
	Tags       map[string]string `json:"tags,omitempty"`
	Unit       string            `json:"unit,omitempty"`
	ObservedAt time.Time         `json:"observed_at"`
}

// Thresholds maps a severity class to the occurrence count that triggers
// escalation. Read-only after startup.
type Thresholds struct {
	Critical uint64 `json:"critical"`
	Error    uint64 `json:"error"`
	Warning  uint64 `json:"warning"`
}

// DefaultThresholds returns the stock escalation thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 1, Error: 5, Warning: 10}
}

// For returns the threshold for the given severity.
func (t Thresholds) For(sev Severity) uint64 {
	switch sev {
	case SeverityCritical:
		return t.Critical
	case SeverityError:
		return t.Error
	default:
		return t.Warning
	}
}
