package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Pusher periodically pushes the default registry to a Prometheus
// Pushgateway. A failed push is logged and retried after a short backoff;
// it never stops the loop.
type Pusher struct {
	pusher   *push.Pusher
	interval time.Duration
	backoff  time.Duration
}

// NewPusher creates a pusher for the given gateway URL and job name.
func NewPusher(gatewayURL, job string, interval time.Duration) *Pusher {
	return &Pusher{
		pusher:   push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer),
		interval: interval,
		backoff:  5 * time.Second,
	}
}

// Run pushes metrics until the context is cancelled.
func (p *Pusher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.push(ctx); err != nil {
				slog.Warn("Metrics push failed", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.backoff):
				}
			}
		}
	}
}

func (p *Pusher) push(ctx context.Context) error {
	pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return p.pusher.PushContext(pushCtx)
}
