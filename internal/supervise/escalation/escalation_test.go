package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/overseer/internal/core/domain"
)

// =============================================================================
// Policy
// =============================================================================

func TestPolicy_ShouldEscalate(t *testing.T) {
	p := NewPolicy(domain.DefaultThresholds())

	cases := []struct {
		sev   domain.Severity
		count uint64
		want  bool
	}{
		{domain.SeverityCritical, 1, true},
		{domain.SeverityError, 4, false},
		{domain.SeverityError, 5, true},
		{domain.SeverityWarning, 9, false},
		{domain.SeverityWarning, 10, true},
		{domain.SeverityWarning, 11, true},
	}
	for _, tc := range cases {
		if got := p.ShouldEscalate(tc.sev, tc.count); got != tc.want {
			t.Errorf("ShouldEscalate(%s, %d) = %v, want %v", tc.sev, tc.count, got, tc.want)
		}
	}
}

func TestNewEscalation_AssignsID(t *testing.T) {
	esc := NewEscalation(domain.ErrorRecord{Kind: "db_error"}, 5)
	if esc.ID == "" {
		t.Error("expected escalation ID to be set")
	}
	if esc.EscalatedAt.IsZero() {
		t.Error("expected escalation timestamp to be set")
	}
}

// =============================================================================
// Alerters
// =============================================================================

func TestWebhookAlerter_PostsEscalation(t *testing.T) {
	var received domain.Escalation
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
	}))
	defer srv.Close()

	alerter := NewWebhookAlerter(srv.URL, 0)
	esc := NewEscalation(domain.ErrorRecord{Kind: "db_error", Severity: domain.SeverityError}, 5)
	if err := alerter.Alert(context.Background(), esc); err != nil {
		t.Fatalf("alert failed: %v", err)
	}
	if received.Record.Kind != "db_error" {
		t.Errorf("expected db_error kind in payload, got %q", received.Record.Kind)
	}
}

func TestWebhookAlerter_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	alerter := NewWebhookAlerter(srv.URL, 0)
	if err := alerter.Alert(context.Background(), NewEscalation(domain.ErrorRecord{Kind: "x"}, 1)); err == nil {
		t.Fatal("expected error on 502 response")
	}
}

type countingAlerter struct {
	calls int
	err   error
}

func (c *countingAlerter) Alert(context.Context, *domain.Escalation) error {
	c.calls++
	return c.err
}

func TestMultiAlerter_DeliversToAllDespiteFailure(t *testing.T) {
	failing := &countingAlerter{err: errors.New("channel down")}
	working := &countingAlerter{}
	multi := NewMultiAlerter(failing, working)

	err := multi.Alert(context.Background(), NewEscalation(domain.ErrorRecord{Kind: "x"}, 1))
	if err != nil {
		t.Fatalf("expected delivery to succeed when one channel works, got %v", err)
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Errorf("expected both alerters called once, got %d and %d", failing.calls, working.calls)
	}
}
