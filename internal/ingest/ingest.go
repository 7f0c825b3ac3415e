package ingest

import (
	"context"
	"time"

	"musefeed/internal/budget"
	"musefeed/internal/config"
	"musefeed/internal/logging"
	"musefeed/internal/metrics"
	"musefeed/internal/model"
	"musefeed/internal/source"
	"musefeed/internal/store/tweetstore"
	"musefeed/internal/util"
)

// RunOnce performs one full ingestion pass for a user: allocate the daily
// budget across active creators, scrape each creator up to its quota over
// the trailing 24 hours, and upsert into the store. A creator that fails to
// scrape or persist is logged and skipped; the pass keeps going. Returns the
// number of tweets upserted.
func RunOnce(ctx context.Context, db *tweetstore.DB, src source.Source, cfg config.Config, userID string) (int, error) {
	start := time.Now()
	metrics.IngestRuns.Inc()
	creators, err := db.ListActiveCreators(ctx, userID)
	if err != nil {
		metrics.IngestErrors.Inc()
		return 0, err
	}
	if len(creators) == 0 {
		logging.Info("ingest_no_creators", map[string]any{"userId": userID})
		return 0, nil
	}
	limit, ok, err := db.DailyLimit(ctx, userID)
	if err != nil {
		metrics.IngestErrors.Inc()
		return 0, err
	}
	if !ok {
		limit = cfg.Ingestion.DefaultDailyLimit
	}
	reqs := make([]budget.Request, 0, len(creators))
	byID := make(map[string]model.Creator, len(creators))
	for _, c := range creators {
		reqs = append(reqs, budget.Request{CreatorID: c.ID, RequestedCount: c.RequestedDailyCount})
		byID[c.ID] = c
	}
	quotas := budget.Allocate(reqs, limit)
	ingested := 0
	for _, q := range quotas {
		if q.ActualCount <= 0 {
			continue
		}
		c := byID[q.CreatorID]
		tweets := src.ScrapeTweets(ctx, source.ScrapeOptions{Handle: c.Handle, MaxItems: q.ActualCount})
		for i := range tweets {
			tweets[i].CreatorID = c.ID
			tweets[i].Content = util.NormalizeWhitespace(tweets[i].Content)
			if tweets[i].AuthorHandle == "" {
				tweets[i].AuthorHandle = c.Handle
			}
		}
		if err := db.UpsertTweets(ctx, c.ID, tweets); err != nil {
			metrics.IngestErrors.Inc()
			logging.Error("ingest_upsert_error", map[string]any{"creatorId": c.ID, "handle": c.Handle, "error": err.Error()})
			continue
		}
		ingested += len(tweets)
		metrics.TweetsIngested.Add(float64(len(tweets)))
	}
	logging.Info("ingest_once", map[string]any{
		"userId": userID, "creators": len(creators), "dailyLimit": limit, "ingested": ingested,
	})
	metrics.ObserveIngestDuration(start)
	return ingested, nil
}

// RunLoop runs RunOnce on a ticker until ctx is cancelled.
func RunLoop(ctx context.Context, db *tweetstore.DB, src source.Source, cfg config.Config, userID string, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	// run immediately
	if _, err := RunOnce(ctx, db, src, cfg, userID); err != nil {
		logging.Error("ingest_once_error", map[string]any{"error": err.Error()})
	}
	for {
		select {
		case <-ctx.Done():
			logging.Info("ingest_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			if _, err := RunOnce(ctx, db, src, cfg, userID); err != nil {
				logging.Error("ingest_once_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
