package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// IndexStore manages remote record indices for the retention task.
type IndexStore interface {
	ListLogIndices(ctx context.Context) ([]string, error)
	ListMetricIndices(ctx context.Context) ([]string, error)
	DropIndex(ctx context.Context, key string) error
}

// Retention drops remote indices beyond the configured retention count,
// oldest first. Runs daily.
type Retention struct {
	store    IndexStore
	keep     int
	interval time.Duration
	log      *slog.Logger
}

// NewRetention creates a retention task keeping the newest keep indices.
func NewRetention(store IndexStore, keep int, interval time.Duration) *Retention {
	if keep == 0 {
		keep = 30
	}
	if interval == 0 {
		interval = 24 * time.Hour
	}
	return &Retention{
		store:    store,
		keep:     keep,
		interval: interval,
		log:      slog.Default(),
	}
}

// Run cleans up until the context is cancelled. A failed cleanup is logged
// and retried on the next interval.
func (r *Retention) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.CleanupOnce(ctx); err != nil {
				r.log.Warn("Index retention cleanup failed", "error", err)
			}
		}
	}
}

// CleanupOnce drops every index beyond the retention count, for both the
// log and metric index families.
func (r *Retention) CleanupOnce(ctx context.Context) error {
	logIndices, err := r.store.ListLogIndices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list log indices: %w", err)
	}
	if err := r.dropOldest(ctx, logIndices); err != nil {
		return err
	}

	metricIndices, err := r.store.ListMetricIndices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list metric indices: %w", err)
	}
	return r.dropOldest(ctx, metricIndices)
}

// dropOldest expects indices sorted oldest first.
func (r *Retention) dropOldest(ctx context.Context, indices []string) error {
	if len(indices) <= r.keep {
		return nil
	}
	for _, key := range indices[:len(indices)-r.keep] {
		if err := r.store.DropIndex(ctx, key); err != nil {
			return fmt.Errorf("failed to drop index %s: %w", key, err)
		}
		r.log.Info("Dropped expired index", "index", key)
	}
	return nil
}
