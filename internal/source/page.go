package source

import (
	"context"

	"musefeed/internal/logging"
	"musefeed/internal/metrics"
	"musefeed/internal/model"
)

// page is one provider response page.
type page struct {
	items      []model.Tweet
	hasNext    bool
	nextCursor string
}

// pageFunc requests one page; an empty cursor means the first page.
type pageFunc func(ctx context.Context, cursor string) (page, error)

// fetchPaged drives fn through cursor pages until max items are accumulated
// or the provider runs out. A provider error ends the loop; whatever was
// accumulated so far is returned. The call count is bounded: every iteration
// either advances the cursor or terminates.
func fetchPaged(ctx context.Context, provider, handle string, fn pageFunc, max int) []model.Tweet {
	if max <= 0 {
		return nil
	}
	out := make([]model.Tweet, 0, max)
	cursor := ""
	for len(out) < max {
		p, err := fn(ctx, cursor)
		if err != nil {
			logging.Error("provider_page_error", map[string]any{
				"provider": provider, "handle": handle, "fetched": len(out), "error": err.Error(),
			})
			break
		}
		metrics.IncProviderPage(provider)
		if len(p.items) == 0 {
			break
		}
		if remaining := max - len(out); len(p.items) > remaining {
			p.items = p.items[:remaining]
		}
		out = append(out, p.items...)
		if !p.hasNext || p.nextCursor == "" || p.nextCursor == cursor {
			break
		}
		cursor = p.nextCursor
	}
	return out
}
