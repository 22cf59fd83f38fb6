package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/overseer/internal/core/domain"
)

// WebhookAlerter POSTs escalations to an HTTP endpoint. Requests are
// time-bounded by the client timeout so a stalled alerting channel cannot
// block a monitoring loop.
type WebhookAlerter struct {
	url    string
	client *http.Client
}

// NewWebhookAlerter creates a webhook alerter for the given endpoint.
func NewWebhookAlerter(url string, timeout time.Duration) *WebhookAlerter {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookAlerter{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Alert delivers the escalation as a JSON payload.
func (a *WebhookAlerter) Alert(ctx context.Context, esc *domain.Escalation) error {
	payload, err := json.Marshal(esc)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
