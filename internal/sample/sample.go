package sample

import (
	"context"
	"math/rand"
	"time"

	"musefeed/internal/logging"
	"musefeed/internal/model"
)

// Store is the slice of the tweet store the sampler reads.
type Store interface {
	ListActiveCreators(ctx context.Context, userID string) ([]model.Creator, error)
	QueryCreatorTweets(ctx context.Context, creatorID string, since time.Time, limit int) ([]model.Tweet, error)
}

// Options bounds one sample.
type Options struct {
	Limit    int
	DaysBack int
}

// Sampler draws bounded, author-diverse samples of stored tweets for prompt
// context. Not safe for concurrent use; construct one per call site.
type Sampler struct {
	rnd *rand.Rand
}

// New returns a sampler with seeded randomness, for deterministic tests.
func New(seed int64) *Sampler {
	return &Sampler{rnd: rand.New(rand.NewSource(seed))}
}

// NewRandom returns a time-seeded sampler.
func NewRandom() *Sampler {
	return New(time.Now().UnixNano())
}

// Sample returns up to Limit tweets published within the last DaysBack days,
// spread across the user's active creators. Each creator contributes at most
// ceil(limit/creators) tweets, queried sequentially most-recent-first, and
// the concatenation is shuffled before truncation so consecutive items are
// not grouped by author. A creator with a thin history leaves its share
// unused, so the result can be shorter than Limit.
func (s *Sampler) Sample(ctx context.Context, st Store, userID string, opts Options) ([]model.Tweet, error) {
	if opts.Limit <= 0 {
		return nil, nil
	}
	creators, err := st.ListActiveCreators(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(creators) == 0 {
		return nil, nil
	}
	perCreator := (opts.Limit + len(creators) - 1) / len(creators)
	since := time.Now().UTC().AddDate(0, 0, -opts.DaysBack)
	var out []model.Tweet
	for _, c := range creators {
		tweets, err := st.QueryCreatorTweets(ctx, c.ID, since, perCreator)
		if err != nil {
			logging.Error("sample_query_error", map[string]any{"creatorId": c.ID, "error": err.Error()})
			continue
		}
		out = append(out, tweets...)
	}
	s.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}
