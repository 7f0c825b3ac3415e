package retention

import (
	"context"
	"time"

	"musefeed/internal/logging"
	"musefeed/internal/metrics"
	"musefeed/internal/store/tweetstore"
)

// Sweep deletes stored tweets older than daysToKeep days, across all
// creators, and returns how many were removed. Idempotent; zero matches is
// not an error. Safe to run concurrently with ingestion: it filters purely
// by timestamp, so the worst case is deleting an old-dated tweet in the same
// window it was inserted.
func Sweep(ctx context.Context, db *tweetstore.DB, daysToKeep int) (int, error) {
	start := time.Now()
	cutoff := start.UTC().AddDate(0, 0, -daysToKeep)
	n, err := db.DeleteTweetsOlderThan(ctx, cutoff)
	if err != nil {
		metrics.SweepErrors.Inc()
		return 0, err
	}
	metrics.SweepDeleted.Add(float64(n))
	metrics.ObserveSweepDuration(start)
	logging.Info("retention_sweep", map[string]any{"daysToKeep": daysToKeep, "deleted": n})
	return n, nil
}
