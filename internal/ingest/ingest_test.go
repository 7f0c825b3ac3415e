package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"musefeed/internal/config"
	"musefeed/internal/model"
	"musefeed/internal/source"
	"musefeed/internal/store/tweetstore"
)

// fakeSource records scrape requests and serves as many tweets as asked for.
type fakeSource struct {
	scrapes map[string]int // handle -> MaxItems requested
}

func (f *fakeSource) ScrapeTweets(_ context.Context, opts source.ScrapeOptions) []model.Tweet {
	if f.scrapes == nil {
		f.scrapes = map[string]int{}
	}
	f.scrapes[opts.Handle] = opts.MaxItems
	out := make([]model.Tweet, opts.MaxItems)
	for i := range out {
		out[i] = model.Tweet{
			SourceID:     fmt.Sprintf("%s-%d", opts.Handle, i),
			AuthorHandle: opts.Handle,
			Content:      "  some   idea  ",
			PublishedAt:  time.Now().UTC().Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

func (f *fakeSource) ValidateHandle(_ context.Context, _ string) model.HandleCheck {
	return model.HandleCheck{Valid: true}
}

func (f *fakeSource) ProviderName() string { return "fake" }

func TestRunOnceScalesQuotasAndStores(t *testing.T) {
	db, err := tweetstore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	a, err := db.AddCreator(ctx, "u1", "ada", "1", 10)
	if err != nil {
		t.Fatal(err)
	}
	b, err := db.AddCreator(ctx, "u1", "bob", "2", 20)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetDailyLimit(ctx, "u1", 15); err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{}
	n, err := RunOnce(ctx, db, src, config.Default(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	// requested {10,20} against limit 15 scales to {5,10}
	if src.scrapes["ada"] != 5 || src.scrapes["bob"] != 10 {
		t.Fatalf("expected scrape quotas {5,10}, got %v", src.scrapes)
	}
	if n != 15 {
		t.Fatalf("expected 15 tweets ingested, got %d", n)
	}
	na, _ := db.CountCreatorTweets(ctx, a.ID)
	nb, _ := db.CountCreatorTweets(ctx, b.ID)
	if na != 5 || nb != 10 {
		t.Fatalf("stored counts = {%d,%d}, want {5,10}", na, nb)
	}
	// content is whitespace-normalized on the way in
	got, err := db.QueryCreatorTweets(ctx, a.ID, time.Now().UTC().AddDate(0, 0, -1), 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("query failed: %v %d", err, len(got))
	}
	if got[0].Content != "some idea" {
		t.Fatalf("content not normalized: %q", got[0].Content)
	}
}

func TestRunOnceUsesDefaultLimitWhenUnset(t *testing.T) {
	db, err := tweetstore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	if _, err := db.AddCreator(ctx, "u1", "ada", "1", 10); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Ingestion.DefaultDailyLimit = 100

	src := &fakeSource{}
	if _, err := RunOnce(ctx, db, src, cfg, "u1"); err != nil {
		t.Fatal(err)
	}
	// under the default limit nothing is scaled
	if src.scrapes["ada"] != 10 {
		t.Fatalf("expected unscaled quota 10, got %v", src.scrapes)
	}
}

func TestRunOnceNoCreators(t *testing.T) {
	db, err := tweetstore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	src := &fakeSource{}
	n, err := RunOnce(context.Background(), db, src, config.Default(), "u1")
	if err != nil || n != 0 {
		t.Fatalf("expected a clean no-op, got n=%d err=%v", n, err)
	}
	if len(src.scrapes) != 0 {
		t.Fatalf("no creators must mean no scrapes, got %v", src.scrapes)
	}
}

func TestRunOnceIdempotentAcrossRuns(t *testing.T) {
	db, err := tweetstore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	c, err := db.AddCreator(ctx, "u1", "ada", "1", 10)
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{}
	if _, err := RunOnce(ctx, db, src, config.Default(), "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := RunOnce(ctx, db, src, config.Default(), "u1"); err != nil {
		t.Fatal(err)
	}
	// the fake serves the same source ids on both runs; the store upserts
	n, err := db.CountCreatorTweets(ctx, c.ID)
	if err != nil || n != 10 {
		t.Fatalf("expected 10 unique tweets after two runs, got %d err=%v", n, err)
	}
}
