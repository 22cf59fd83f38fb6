package recovery

import (
	"strings"

	"github.com/vietddude/overseer/internal/core/domain"
)

// Classify determines the severity of a reported error. An explicit severity
// on the record is authoritative; otherwise the kind name is sniffed for
// "critical" / "error" substrings, which matches how legacy reporters name
// their kinds.
func Classify(record *domain.ErrorRecord) domain.Severity {
	switch record.Severity {
	case domain.SeverityCritical, domain.SeverityError, domain.SeverityWarning:
		return record.Severity
	}

	kind := strings.ToLower(record.Kind)
	switch {
	case strings.Contains(kind, "critical"):
		return domain.SeverityCritical
	case strings.Contains(kind, "error"):
		return domain.SeverityError
	default:
		return domain.SeverityWarning
	}
}
