package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Rotator rotates local log files once they exceed the size limit. Numbered
// backups shift up (`.log.N` to `.log.N+1`), the backup past the retention
// count is deleted, and a fresh empty file takes the original's place.
type Rotator struct {
	dir         string
	maxSize     int64
	backupCount int
	interval    time.Duration
	log         *slog.Logger
}

// NewRotator creates a rotator for all *.log files in dir.
func NewRotator(dir string, maxSize int64, backupCount int, interval time.Duration) *Rotator {
	if maxSize == 0 {
		maxSize = 10 * 1024 * 1024
	}
	if backupCount == 0 {
		backupCount = 5
	}
	if interval == 0 {
		interval = 5 * time.Minute
	}
	return &Rotator{
		dir:         dir,
		maxSize:     maxSize,
		backupCount: backupCount,
		interval:    interval,
		log:         slog.Default(),
	}
}

// Run checks for oversized files until the context is cancelled.
func (r *Rotator) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.CheckOnce(); err != nil {
				r.log.Warn("Log rotation check failed", "error", err)
			}
		}
	}
}

// CheckOnce rotates every *.log file over the size limit.
func (r *Rotator) CheckOnce() error {
	files, err := filepath.Glob(filepath.Join(r.dir, "*.log"))
	if err != nil {
		return fmt.Errorf("log dir glob failed: %w", err)
	}

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.Size() >= r.maxSize {
			if err := Rotate(file, r.backupCount); err != nil {
				r.log.Error("Failed to rotate log file", "file", file, "error", err)
				continue
			}
			r.log.Info("Rotated log file", "file", file)
		}
	}
	return nil
}

// Rotate performs one rotation of path with the given backup count.
func Rotate(path string, backupCount int) error {
	// The oldest backup would shift past the retention count; drop it.
	oldest := fmt.Sprintf("%s.%d", path, backupCount)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.Remove(oldest); err != nil {
			return fmt.Errorf("failed to remove oldest backup: %w", err)
		}
	}

	// Shift remaining backups up by one.
	for i := backupCount - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", path, i)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := fmt.Sprintf("%s.%d", path, i+1)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("failed to shift backup %s: %w", src, err)
		}
	}

	// Current file becomes backup one; a fresh empty file replaces it.
	if err := os.Rename(path, path+".1"); err != nil {
		return fmt.Errorf("failed to rotate current file: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create fresh log file: %w", err)
	}
	return f.Close()
}
