package sample

import (
	"context"
	"fmt"
	"testing"
	"time"

	"musefeed/internal/model"
)

// fakeStore serves canned tweets per creator and records every query.
type fakeStore struct {
	creators []model.Creator
	byID     map[string][]model.Tweet

	queries []query
}

type query struct {
	creatorID string
	since     time.Time
	limit     int
}

func (f *fakeStore) ListActiveCreators(_ context.Context, _ string) ([]model.Creator, error) {
	return f.creators, nil
}

func (f *fakeStore) QueryCreatorTweets(_ context.Context, creatorID string, since time.Time, limit int) ([]model.Tweet, error) {
	f.queries = append(f.queries, query{creatorID: creatorID, since: since, limit: limit})
	ts := f.byID[creatorID]
	if len(ts) > limit {
		ts = ts[:limit]
	}
	return ts, nil
}

func storeWith(counts map[string]int) *fakeStore {
	f := &fakeStore{byID: map[string][]model.Tweet{}}
	for id, n := range counts {
		f.creators = append(f.creators, model.Creator{ID: id, Handle: id, Active: true})
		for i := 0; i < n; i++ {
			f.byID[id] = append(f.byID[id], model.Tweet{
				SourceID:     fmt.Sprintf("%s-%d", id, i),
				CreatorID:    id,
				AuthorHandle: id,
				Content:      "tweet",
				PublishedAt:  time.Now().UTC().Add(-time.Duration(i) * time.Hour),
			})
		}
	}
	return f
}

func TestSamplePerCreatorQueryCount(t *testing.T) {
	f := storeWith(map[string]int{"a": 100, "b": 100, "c": 100})
	got, err := New(1).Sample(context.Background(), f, "u", Options{Limit: 50, DaysBack: 30})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.queries) != 3 {
		t.Fatalf("expected exactly 3 creator queries, got %d", len(f.queries))
	}
	for _, q := range f.queries {
		if q.limit != 17 { // ceil(50/3)
			t.Fatalf("creator %s queried with limit %d, want 17", q.creatorID, q.limit)
		}
		wantSince := time.Now().UTC().AddDate(0, 0, -30)
		if q.since.Before(wantSince.Add(-time.Minute)) || q.since.After(wantSince.Add(time.Minute)) {
			t.Fatalf("since %v not ~30 days back", q.since)
		}
	}
	if len(got) != 50 {
		t.Fatalf("expected truncation to 50, got %d", len(got))
	}
}

func TestSampleNoCreatorsNoQueries(t *testing.T) {
	f := &fakeStore{}
	got, err := New(1).Sample(context.Background(), f, "u", Options{Limit: 50, DaysBack: 30})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty sample, got %d", len(got))
	}
	if len(f.queries) != 0 {
		t.Fatalf("expected zero tweet queries, got %d", len(f.queries))
	}
}

func TestSampleShortfallWithoutBackfill(t *testing.T) {
	f := storeWith(map[string]int{"a": 17, "b": 5, "c": 0})
	got, err := New(1).Sample(context.Background(), f, "u", Options{Limit: 50, DaysBack: 30})
	if err != nil {
		t.Fatal(err)
	}
	// a contributes 17, b 5, c 0; the unused share is not redistributed
	if len(got) != 22 {
		t.Fatalf("expected 22 tweets, got %d", len(got))
	}
}

func TestSampleShufflesAcrossAuthors(t *testing.T) {
	singleAuthorRuns := 0
	for seed := int64(0); seed < 50; seed++ {
		f := storeWith(map[string]int{"a": 15, "b": 15})
		got, err := New(seed).Sample(context.Background(), f, "u", Options{Limit: 20, DaysBack: 30})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 20 {
			t.Fatalf("seed %d: expected 20 tweets, got %d", seed, len(got))
		}
		authors := map[string]bool{}
		for _, tw := range got[:10] {
			authors[tw.AuthorHandle] = true
		}
		if len(authors) < 2 {
			singleAuthorRuns++
		}
	}
	// the head of a shuffled 10+10 concatenation is single-author with
	// probability ~1e-5; a handful of unlucky seeds would still pass
	if singleAuthorRuns > 2 {
		t.Fatalf("first 10 items were single-author in %d of 50 seeded runs", singleAuthorRuns)
	}
}

func TestSampleZeroLimit(t *testing.T) {
	f := storeWith(map[string]int{"a": 5})
	got, err := New(1).Sample(context.Background(), f, "u", Options{Limit: 0, DaysBack: 30})
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty sample for limit 0, got %d err=%v", len(got), err)
	}
	if len(f.queries) != 0 {
		t.Fatalf("expected no queries for limit 0")
	}
}
