// Package redis implements the remote log/metric document sink. Records are
// appended as JSON documents into day-keyed list indices so an out-of-band
// consumer can replay or archive them, and the retention task can drop whole
// indices by age.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/overseer/internal/core/domain"
)

// Config holds Redis connection configuration.
type Config struct {
	URL         string `yaml:"url"`
	Password    string `yaml:"password"`
	IndexPrefix string `yaml:"index_prefix"`
}

// Client wraps Redis operations for the log/metric sink.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// NewClient creates a new Redis sink client and verifies the connection.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.IndexPrefix
	if prefix == "" {
		prefix = "overseer"
	}

	return &Client{rdb: rdb, prefix: prefix}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks sink reachability.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func (c *Client) logIndexKey(t time.Time) string {
	return fmt.Sprintf("%s:logs:%s", c.prefix, t.UTC().Format("2006-01-02"))
}

func (c *Client) metricIndexKey(t time.Time) string {
	return fmt.Sprintf("%s:metrics:%s", c.prefix, t.UTC().Format("2006-01-02"))
}

// WriteLogBatch appends the entries to their day indices in one round trip.
func (c *Client) WriteLogBatch(ctx context.Context, entries []domain.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for _, entry := range entries {
		doc, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal log entry: %w", err)
		}
		pipe.RPush(ctx, c.logIndexKey(entry.Timestamp), doc)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("bulk log write failed: %w", err)
	}
	return nil
}

// WriteMetricBatch appends the samples to their day indices in one round trip.
func (c *Client) WriteMetricBatch(ctx context.Context, samples []domain.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for _, sample := range samples {
		doc, err := json.Marshal(sample)
		if err != nil {
			return fmt.Errorf("failed to marshal metric sample: %w", err)
		}
		pipe.RPush(ctx, c.metricIndexKey(sample.ObservedAt), doc)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("bulk metric write failed: %w", err)
	}
	return nil
}

// ListLogIndices returns all log index keys, oldest first. Day-stamped key
// names sort chronologically as plain strings.
func (c *Client) ListLogIndices(ctx context.Context) ([]string, error) {
	return c.listIndices(ctx, fmt.Sprintf("%s:logs:*", c.prefix))
}

// ListMetricIndices returns all metric index keys, oldest first.
func (c *Client) ListMetricIndices(ctx context.Context) ([]string, error) {
	return c.listIndices(ctx, fmt.Sprintf("%s:metrics:*", c.prefix))
}

func (c *Client) listIndices(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("index scan failed: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// DropIndex deletes an index wholesale.
func (c *Client) DropIndex(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to drop index %s: %w", key, err)
	}
	return nil
}
