package resource

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/overseer/internal/core/domain"
	"github.com/vietddude/overseer/internal/supervise/metrics"
)

// Limits are the configured resource ceilings. Every breach emits a
// resource_warning event; no automatic remediation happens.
type Limits struct {
	MaxCPUPercent  float64
	MaxMemoryMB    float64
	MaxDiskPercent float64
}

// EventSink receives resource samples and warning events.
type EventSink interface {
	Publish(entry domain.LogEntry)
	PublishMetric(sample domain.MetricSample)
}

// Monitor samples host resources on an interval and compares them to the
// configured limits. Read-only with respect to process state other than
// metric emission.
type Monitor struct {
	sampler  Sampler
	limits   Limits
	interval time.Duration
	events   EventSink
	log      *slog.Logger
}

// NewMonitor creates a resource monitor.
func NewMonitor(sampler Sampler, limits Limits, interval time.Duration, events EventSink) *Monitor {
	if interval == 0 {
		interval = 60 * time.Second
	}
	return &Monitor{
		sampler:  sampler,
		limits:   limits,
		interval: interval,
		events:   events,
		log:      slog.Default(),
	}
}

// Run samples until the context is cancelled. A failed sample is logged and
// retried after a short backoff.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.CheckOnce(ctx); err != nil {
				m.log.Warn("Resource sampling failed", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Second):
				}
			}
		}
	}
}

// CheckOnce samples, publishes and evaluates limits a single time.
func (m *Monitor) CheckOnce(ctx context.Context) error {
	usage, err := m.sampler.Sample(ctx)
	if err != nil {
		return err
	}

	metrics.CPUUsage.Set(usage.CPUPercent)
	metrics.MemoryUsage.Set(usage.MemoryMB)
	metrics.DiskUsage.Set(usage.DiskPercent)

	m.publishSample("cpu_usage", usage.CPUPercent, "percent")
	m.publishSample("memory_usage", usage.MemoryMB, "MB")
	m.publishSample("disk_usage", usage.DiskPercent, "percent")

	m.checkLimit("cpu", usage.CPUPercent, m.limits.MaxCPUPercent)
	m.checkLimit("memory", usage.MemoryMB, m.limits.MaxMemoryMB)
	m.checkLimit("disk", usage.DiskPercent, m.limits.MaxDiskPercent)

	return nil
}

func (m *Monitor) publishSample(name string, value float64, unit string) {
	if m.events == nil {
		return
	}
	m.events.PublishMetric(domain.MetricSample{
		Name:  "system_" + name,
		Value: value,
		Unit:  unit,
	})
}

// checkLimit emits a resource_warning on every breach. Warnings are
// intentionally rate-unlimited.
func (m *Monitor) checkLimit(resourceName string, value, limit float64) {
	if limit <= 0 || value <= limit {
		return
	}

	metrics.ResourceWarnings.WithLabelValues(resourceName).Inc()
	m.log.Warn("Resource limit breached",
		"resource", resourceName,
		"value", value,
		"limit", limit,
	)
	if m.events != nil {
		m.events.Publish(domain.LogEntry{
			Level:   domain.LogLevelWarning,
			Message: "resource_warning",
			Context: map[string]any{
				"resource":      resourceName,
				"current_value": value,
				"limit":         limit,
			},
		})
	}
}
