package budget

import (
	"math"

	"musefeed/internal/logging"
	"musefeed/internal/model"
)

// Request is one active creator's requested daily quota.
type Request struct {
	CreatorID      string
	RequestedCount int
}

// Allocate divides one daily tweet limit across creators. Under the limit
// every creator gets what it asked for. Over the limit, counts are scaled
// proportionally with floor(), and every scaled creator keeps a minimum of 1
// so small creators are never starved out. Because of the floor and the
// minimum, the allocated sum can land on either side of the limit; that is
// the intended fairness-over-exactness trade, not a bug to round away.
//
// A limit of zero or less means no ingestion: the allocation is empty and a
// config warning is logged. Requests of zero or less allocate zero, unscaled.
func Allocate(reqs []Request, dailyLimit int) []model.AllocatedQuota {
	if dailyLimit <= 0 {
		if len(reqs) > 0 {
			logging.Warn("daily_limit_nonpositive", map[string]any{"dailyLimit": dailyLimit, "creators": len(reqs)})
		}
		return nil
	}
	total := 0
	for _, r := range reqs {
		if r.RequestedCount > 0 {
			total += r.RequestedCount
		}
	}
	out := make([]model.AllocatedQuota, 0, len(reqs))
	if total <= dailyLimit {
		for _, r := range reqs {
			n := r.RequestedCount
			if n < 0 {
				n = 0
			}
			out = append(out, model.AllocatedQuota{CreatorID: r.CreatorID, ActualCount: n})
		}
		return out
	}
	factor := float64(dailyLimit) / float64(total)
	for _, r := range reqs {
		if r.RequestedCount <= 0 {
			out = append(out, model.AllocatedQuota{CreatorID: r.CreatorID})
			continue
		}
		n := int(math.Floor(float64(r.RequestedCount) * factor))
		if n < 1 {
			n = 1
		}
		out = append(out, model.AllocatedQuota{CreatorID: r.CreatorID, ActualCount: n, WasScaled: true})
	}
	return out
}
