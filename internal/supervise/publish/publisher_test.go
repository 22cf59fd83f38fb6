package publish

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/overseer/internal/core/domain"
)

// ============================================================
// Stubs
// ============================================================

type mockSink struct {
	mu      sync.Mutex
	fail    bool
	logs    []domain.LogEntry
	samples []domain.MetricSample
	calls   int
}

func (m *mockSink) WriteLogBatch(_ context.Context, entries []domain.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return errors.New("sink unavailable")
	}
	m.logs = append(m.logs, entries...)
	return nil
}

func (m *mockSink) WriteMetricBatch(_ context.Context, samples []domain.MetricSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return errors.New("sink unavailable")
	}
	m.samples = append(m.samples, samples...)
	return nil
}

func (m *mockSink) delivered() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs), len(m.samples)
}

func newTestPublisher(t *testing.T, sink RemoteSink, bufferSize int) *Publisher {
	t.Helper()
	return NewPublisher(Config{
		BufferSize:    bufferSize,
		FlushInterval: time.Hour,
		LogDir:        t.TempDir(),
		Host:          "test-host",
		Environment:   "test",
	}, sink)
}

// ============================================================
// Tests
// ============================================================

func TestPublisher_FlushAtBufferSize(t *testing.T) {
	sink := &mockSink{}
	pub := newTestPublisher(t, sink, 5)

	for i := 0; i < 4; i++ {
		pub.Publish(domain.LogEntry{Level: domain.LogLevelInfo, Message: fmt.Sprintf("event %d", i)})
	}
	if logs, _ := sink.delivered(); logs != 0 {
		t.Fatalf("expected no delivery below buffer size, got %d entries", logs)
	}
	if got := pub.Buffered(); got != 4 {
		t.Fatalf("expected 4 buffered records, got %d", got)
	}

	pub.Publish(domain.LogEntry{Level: domain.LogLevelInfo, Message: "event 4"})

	if logs, _ := sink.delivered(); logs != 5 {
		t.Fatalf("expected 5 delivered entries after buffer fill, got %d", logs)
	}
	if got := pub.Buffered(); got != 0 {
		t.Fatalf("expected empty buffer after flush, got %d", got)
	}
}

func TestPublisher_MixedRecordsCountTowardBuffer(t *testing.T) {
	sink := &mockSink{}
	pub := newTestPublisher(t, sink, 4)

	pub.Publish(domain.LogEntry{Message: "a"})
	pub.PublishMetric(domain.MetricSample{Name: "cpu", Value: 1})
	pub.Publish(domain.LogEntry{Message: "b"})
	pub.PublishMetric(domain.MetricSample{Name: "mem", Value: 2})

	logs, samples := sink.delivered()
	if logs != 2 || samples != 2 {
		t.Fatalf("expected 2 logs and 2 samples delivered, got %d and %d", logs, samples)
	}
}

func TestPublisher_StampsDefaults(t *testing.T) {
	sink := &mockSink{}
	pub := newTestPublisher(t, sink, 100)

	pub.Publish(domain.LogEntry{Message: "bare"})
	pub.Flush(context.Background())

	sink.mu.Lock()
	entry := sink.logs[0]
	sink.mu.Unlock()

	if entry.Host != "test-host" {
		t.Errorf("expected default host, got %q", entry.Host)
	}
	if entry.Environment != "test" {
		t.Errorf("expected default environment, got %q", entry.Environment)
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected timestamp to be stamped")
	}
}

func TestPublisher_TimerFlush(t *testing.T) {
	sink := &mockSink{}
	pub := NewPublisher(Config{
		BufferSize:    100,
		FlushInterval: 20 * time.Millisecond,
		LogDir:        t.TempDir(),
	}, sink)

	pub.Publish(domain.LogEntry{Message: "early"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Run(ctx)

	deadline := time.After(2 * time.Second)
	for {
		if logs, _ := sink.delivered(); logs == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timer flush never delivered the buffered entry")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPublisher_SinkFailureWritesBackup(t *testing.T) {
	sink := &mockSink{fail: true}
	pub := newTestPublisher(t, sink, 100)

	pub.Publish(domain.LogEntry{Level: domain.LogLevelError, Message: "lost to outage"})
	pub.PublishMetric(domain.MetricSample{Name: "cpu", Value: 42})
	pub.Flush(context.Background())

	if got := pub.Buffered(); got != 0 {
		t.Fatalf("expected buffer cleared after fallback, got %d", got)
	}

	records := readBackup(t, pub.BackupPath())
	if len(records) != 2 {
		t.Fatalf("expected 2 backup records, got %d", len(records))
	}
	if records[0].Type != "log" || records[1].Type != "metric" {
		t.Fatalf("unexpected backup record types: %s, %s", records[0].Type, records[1].Type)
	}

	// A later flush appends, never rewrites.
	pub.Publish(domain.LogEntry{Message: "still down"})
	pub.Flush(context.Background())
	if records := readBackup(t, pub.BackupPath()); len(records) != 3 {
		t.Fatalf("expected 3 backup records after second outage flush, got %d", len(records))
	}
}

func TestPublisher_EmptyFlushSkipsSink(t *testing.T) {
	sink := &mockSink{}
	pub := newTestPublisher(t, sink, 100)

	pub.Flush(context.Background())

	sink.mu.Lock()
	calls := sink.calls
	sink.mu.Unlock()
	if calls != 0 {
		t.Fatalf("expected no sink calls on empty flush, got %d", calls)
	}
}

func readBackup(t *testing.T, path string) []backupRecord {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("backup file missing: %v", err)
	}
	defer f.Close()

	var records []backupRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec backupRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("backup line is not valid JSON: %v", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("failed reading backup file: %v", err)
	}
	return records
}
