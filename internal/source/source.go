package source

import (
	"context"
	"regexp"
	"strings"
	"time"

	"musefeed/internal/model"
)

// Source is the port over one external tweet provider. Implementations never
// return errors for ordinary provider failures: ScrapeTweets yields whatever
// was obtained and logs the rest, ValidateHandle folds failures into the
// HandleCheck result. Only construction can fail.
type Source interface {
	ScrapeTweets(ctx context.Context, opts ScrapeOptions) []model.Tweet
	ValidateHandle(ctx context.Context, handle string) model.HandleCheck
	ProviderName() string
}

// ScrapeOptions bounds one scrape of a creator's tweets.
type ScrapeOptions struct {
	Handle   string
	MaxItems int
	// Zero StartDate/EndDate default to a trailing 24-hour window.
	StartDate time.Time
	EndDate   time.Time
}

func (o ScrapeOptions) window(now time.Time) (time.Time, time.Time) {
	start, end := o.StartDate, o.EndDate
	if end.IsZero() {
		end = now
	}
	if start.IsZero() {
		start = end.Add(-24 * time.Hour)
	}
	return start.UTC(), end.UTC()
}

var handleRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

// NormalizeHandle strips surrounding space and an optional @ prefix.
func NormalizeHandle(h string) string {
	return strings.TrimPrefix(strings.TrimSpace(h), "@")
}

// checkFormat validates a handle locally. Callers must not hit the network
// when ok is false.
func checkFormat(h string) (string, bool) {
	h = NormalizeHandle(h)
	return h, handleRe.MatchString(h)
}

const errBadHandle = "handle may only contain letters, numbers, and underscores"
const errNotFound = "account not found"
const errUnableToValidate = "unable to validate handle"

// numericMetrics collects the numeric fields of a decoded provider object
// into an open metrics map, keyed by wire name. Counters we have never seen
// survive; skip names identifiers the provider happens to encode as numbers.
func numericMetrics(m map[string]any, skip ...string) model.Metrics {
	var out model.Metrics
	for k, v := range m {
		f, ok := v.(float64)
		if !ok || skipped(k, skip) {
			continue
		}
		if out == nil {
			out = model.Metrics{}
		}
		out[k] = f
	}
	return out
}

func skipped(k string, skip []string) bool {
	for _, s := range skip {
		if k == s {
			return true
		}
	}
	return false
}
