package escalation

import (
	"context"
	"log/slog"

	"github.com/vietddude/overseer/internal/core/domain"
)

// Alerter forwards an escalation to an external alerting channel. A failing
// alerter must never take the supervision core down with it.
type Alerter interface {
	Alert(ctx context.Context, esc *domain.Escalation) error
}

// SlogAlerter writes escalations to the process log. It is always wired so
// escalations remain visible when no external channel is configured.
type SlogAlerter struct {
	log *slog.Logger
}

// NewSlogAlerter creates a log-backed alerter.
func NewSlogAlerter(log *slog.Logger) *SlogAlerter {
	if log == nil {
		log = slog.Default()
	}
	return &SlogAlerter{log: log}
}

// Alert logs the escalation.
func (a *SlogAlerter) Alert(ctx context.Context, esc *domain.Escalation) error {
	a.log.Error("Error escalated",
		"escalation_id", esc.ID,
		"kind", esc.Record.Kind,
		"severity", esc.Record.Severity,
		"message", esc.Record.Message,
		"count", esc.Count,
	)
	return nil
}

// AlertStore archives escalations durably.
type AlertStore interface {
	Save(ctx context.Context, esc *domain.Escalation) error
}

// ArchiveAlerter persists escalations through an AlertStore.
type ArchiveAlerter struct {
	store AlertStore
}

// NewArchiveAlerter creates a store-backed alerter.
func NewArchiveAlerter(store AlertStore) *ArchiveAlerter {
	return &ArchiveAlerter{store: store}
}

// Alert archives the escalation.
func (a *ArchiveAlerter) Alert(ctx context.Context, esc *domain.Escalation) error {
	return a.store.Save(ctx, esc)
}

// MultiAlerter fans an escalation out to several sinks. Individual sink
// failures are logged and absorbed; the escalation is considered delivered
// if any sink accepted it.
type MultiAlerter struct {
	alerters []Alerter
}

// NewMultiAlerter composes alerters.
func NewMultiAlerter(alerters ...Alerter) *MultiAlerter {
	return &MultiAlerter{alerters: alerters}
}

// Alert forwards to every sink.
func (m *MultiAlerter) Alert(ctx context.Context, esc *domain.Escalation) error {
	var lastErr error
	delivered := false
	for _, a := range m.alerters {
		if err := a.Alert(ctx, esc); err != nil {
			slog.Warn("Alert sink failed", "escalation_id", esc.ID, "error", err)
			lastErr = err
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return lastErr
}
