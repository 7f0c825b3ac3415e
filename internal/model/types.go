package model

import "time"

// Creator is a tracked external account a user follows for inspiration.
type Creator struct {
	ID                  string
	UserID              string
	Handle              string
	ProviderUserID      string
	Active              bool
	RequestedDailyCount int
	CreatedAt           time.Time
}

// Metrics is an open map of engagement counters. Providers disagree on
// metric names, so any numeric field we see is kept under its wire name.
type Metrics map[string]float64

// Tweet is a stored tweet, normalized regardless of which provider produced it.
type Tweet struct {
	SourceID     string
	CreatorID    string
	AuthorHandle string
	Content      string
	PublishedAt  time.Time
	Metrics      Metrics
}

// AllocatedQuota is one creator's share of the daily budget for a single
// ingestion run. Computed, never persisted.
type AllocatedQuota struct {
	CreatorID   string
	ActualCount int
	WasScaled   bool
}

// HandleCheck is the outcome of validating a creator handle.
// Err carries a user-facing message when Valid is false.
type HandleCheck struct {
	Valid          bool
	ProviderUserID string
	Err            string
}
