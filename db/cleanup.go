package db

import (
	"context"
	"fmt"
	"time"
)

// DefaultRetentionDays is how long predictions are kept when no retention is configured.
const DefaultRetentionDays = 30

// CleanupResult contains statistics about a cleanup run.
type CleanupResult struct {
	// PredictionsDeleted is the number of rows removed from predictions
	PredictionsDeleted int64
	// Duration is how long the cleanup took
	Duration time.Duration
}

// Cleanup deletes predictions older than retentionDays and reclaims space.
func (d *Database) Cleanup(ctx context.Context, retentionDays int) (CleanupResult, error) {
	if retentionDays < 0 {
		return CleanupResult{}, fmt.Errorf("retentionDays must be non-negative, got %d", retentionDays)
	}
	return d.PruneBefore(ctx, time.Now().AddDate(0, 0, -retentionDays))
}

// PruneBefore deletes predictions created before cutoff. VACUUM runs only
// when rows were removed.
func (d *Database) PruneBefore(ctx context.Context, cutoff time.Time) (CleanupResult, error) {
	start := time.Now()
	result := CleanupResult{}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return result, ErrClosed
	}

	res, err := d.db.ExecContext(ctx, "DELETE FROM predictions WHERE created_at < ?", formatTime(cutoff))
	if err != nil {
		return result, fmt.Errorf("failed to delete from predictions: %w", err)
	}
	if result.PredictionsDeleted, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if result.PredictionsDeleted > 0 {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		if _, err := d.db.ExecContext(ctx, "VACUUM"); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("cleanup succeeded but VACUUM failed: %w", err)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// CleanupSchedulerConfig holds configuration for the cleanup scheduler.
type CleanupSchedulerConfig struct {
	// RetentionDays is the number of days to retain predictions
	RetentionDays int
	// Interval is how often to run cleanup
	Interval time.Duration
	// OnCleanup is called after each run (optional)
	OnCleanup func(result CleanupResult, err error)
}

// DefaultCleanupSchedulerConfig keeps 30 days and cleans up daily.
func DefaultCleanupSchedulerConfig() CleanupSchedulerConfig {
	return CleanupSchedulerConfig{
		RetentionDays: DefaultRetentionDays,
		Interval:      24 * time.Hour,
	}
}

// StartCleanupScheduler runs Cleanup immediately and then every interval
// until ctx is cancelled. The returned channel is closed when the
// scheduler goroutine exits.
func (d *Database) StartCleanupScheduler(ctx context.Context, config CleanupSchedulerConfig) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		run := func() {
			result, err := d.Cleanup(ctx, config.RetentionDays)
			if config.OnCleanup != nil {
				config.OnCleanup(result, err)
			}
		}
		run()

		interval := config.Interval
		if interval <= 0 {
			interval = 24 * time.Hour
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
	return done
}
