// Package publish batches log and metric records for delivery to the remote
// sink, with a durable local fallback when the sink is unreachable.
package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vietddude/overseer/internal/core/domain"
	"github.com/vietddude/overseer/internal/supervise/metrics"
)

// RemoteSink is the destination for flushed batches.
type RemoteSink interface {
	WriteLogBatch(ctx context.Context, entries []domain.LogEntry) error
	WriteMetricBatch(ctx context.Context, samples []domain.MetricSample) error
}

// Config holds buffering settings.
type Config struct {
	BufferSize    int           // flush when the combined buffer reaches this
	FlushInterval time.Duration // flush on this timer regardless of size
	LogDir        string        // backup file directory
	Host          string        // stamped onto entries missing a host
	Environment   string        // stamped onto entries missing an environment
}

// Publisher buffers records and flushes them on size or time threshold.
// Delivery is at-most-once to the remote sink and at-least-once overall:
// a failed batch lands in the local backup file exactly once, and the
// in-memory buffer is cleared either way.
type Publisher struct {
	mu      sync.Mutex
	logs    []domain.LogEntry
	samples []domain.MetricSample

	cfg  Config
	sink RemoteSink
	log  *slog.Logger
}

// NewPublisher creates a publisher. A nil sink sends every flush straight
// to the local backup file.
func NewPublisher(cfg Config, sink RemoteSink) *Publisher {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 60 * time.Second
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	return &Publisher{
		cfg:  cfg,
		sink: sink,
		log:  slog.Default(),
	}
}

// Publish appends a log entry to the buffer, flushing if the size threshold
// is reached.
func (p *Publisher) Publish(entry domain.LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Host == "" {
		entry.Host = p.cfg.Host
	}
	if entry.Environment == "" {
		entry.Environment = p.cfg.Environment
	}

	p.mu.Lock()
	p.logs = append(p.logs, entry)
	full := len(p.logs)+len(p.samples) >= p.cfg.BufferSize
	metrics.BufferedRecords.Set(float64(len(p.logs) + len(p.samples)))
	p.mu.Unlock()

	if full {
		p.Flush(context.Background())
	}
}

// PublishMetric appends a metric sample to the buffer, flushing if the size
// threshold is reached.
func (p *Publisher) PublishMetric(sample domain.MetricSample) {
	if sample.ObservedAt.IsZero() {
		sample.ObservedAt = time.Now().UTC()
	}

	p.mu.Lock()
	p.samples = append(p.samples, sample)
	full := len(p.logs)+len(p.samples) >= p.cfg.BufferSize
	metrics.BufferedRecords.Set(float64(len(p.logs) + len(p.samples)))
	p.mu.Unlock()

	if full {
		p.Flush(context.Background())
	}
}

// Buffered returns the current combined buffer size.
func (p *Publisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.logs) + len(p.samples)
}

// Run flushes on the configured interval until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush delivers the buffered records. The buffer is always emptied: records
// the sink rejects are appended to the backup file instead.
func (p *Publisher) Flush(ctx context.Context) {
	p.mu.Lock()
	logs := p.logs
	samples := p.samples
	p.logs = nil
	p.samples = nil
	metrics.BufferedRecords.Set(0)
	p.mu.Unlock()

	if len(logs) == 0 && len(samples) == 0 {
		return
	}

	if p.sink == nil {
		if len(logs) > 0 {
			metrics.FlushesTotal.WithLabelValues("logs", "fallback").Inc()
			p.writeBackup(logRecords(logs))
		}
		if len(samples) > 0 {
			metrics.FlushesTotal.WithLabelValues("metrics", "fallback").Inc()
			p.writeBackup(metricRecords(samples))
		}
		return
	}

	flushCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if len(logs) > 0 {
		if err := p.sink.WriteLogBatch(flushCtx, logs); err != nil {
			p.log.Warn("Remote log flush failed, writing backup", "count", len(logs), "error", err)
			metrics.FlushesTotal.WithLabelValues("logs", "fallback").Inc()
			p.writeBackup(logRecords(logs))
		} else {
			metrics.FlushesTotal.WithLabelValues("logs", "ok").Inc()
			metrics.FlushedRecords.WithLabelValues("logs").Add(float64(len(logs)))
		}
	}

	if len(samples) > 0 {
		if err := p.sink.WriteMetricBatch(flushCtx, samples); err != nil {
			p.log.Warn("Remote metric flush failed, writing backup", "count", len(samples), "error", err)
			metrics.FlushesTotal.WithLabelValues("metrics", "fallback").Inc()
			p.writeBackup(metricRecords(samples))
		} else {
			metrics.FlushesTotal.WithLabelValues("metrics", "ok").Inc()
			metrics.FlushedRecords.WithLabelValues("metrics").Add(float64(len(samples)))
		}
	}
}

// backupRecord is one newline-delimited JSON line in the backup file. The
// type tag lets an out-of-band replayer route records back to their index.
type backupRecord struct {
	Type   string `json:"type"`
	Record any    `json:"record"`
}

func logRecords(entries []domain.LogEntry) []backupRecord {
	out := make([]backupRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, backupRecord{Type: "log", Record: e})
	}
	return out
}

func metricRecords(samples []domain.MetricSample) []backupRecord {
	out := make([]backupRecord, 0, len(samples))
	for _, s := range samples {
		out = append(out, backupRecord{Type: "metric", Record: s})
	}
	return out
}

// BackupPath returns the local fallback file path.
func (p *Publisher) BackupPath() string {
	return filepath.Join(p.cfg.LogDir, "remote_backup.log")
}

func (p *Publisher) writeBackup(records []backupRecord) {
	if err := os.MkdirAll(p.cfg.LogDir, 0o755); err != nil {
		p.log.Error("Failed to create log dir", "dir", p.cfg.LogDir, "error", err)
		return
	}

	f, err := os.OpenFile(p.BackupPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		p.log.Error("Failed to open backup file", "path", p.BackupPath(), "error", err)
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			p.log.Error("Failed to write backup record", "error", err)
			return
		}
	}
}
