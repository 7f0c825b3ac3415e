package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"musefeed/internal/logging"
	"musefeed/internal/model"
)

// socialDataTime is SocialData's tweet timestamp layout.
const socialDataTime = "2006-01-02T15:04:05.000000Z"

// SocialData talks to SocialData.tools.
type SocialData struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

func NewSocialData(apiKey string) *SocialData {
	return &SocialData{
		baseURL: "https://api.socialdata.tools",
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: newDefaultLimiter(),
	}
}

func (c *SocialData) ProviderName() string { return "socialdata" }

func (c *SocialData) auth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}

// ScrapeTweets pulls up to MaxItems of the handle's tweets within the date
// window via the search endpoint, following cursor pages. SocialData signals
// exhaustion with a null next_cursor rather than an explicit flag.
func (c *SocialData) ScrapeTweets(ctx context.Context, opts ScrapeOptions) []model.Tweet {
	handle, ok := checkFormat(opts.Handle)
	if !ok {
		logging.Warn("scrape_bad_handle", map[string]any{"provider": c.ProviderName(), "handle": opts.Handle})
		return nil
	}
	start, end := opts.window(time.Now().UTC())
	query := fmt.Sprintf("from:%s since_time:%d until_time:%d", handle, start.Unix(), end.Unix())
	fn := func(ctx context.Context, cursor string) (page, error) {
		return c.searchPage(ctx, query, cursor)
	}
	return fetchPaged(ctx, c.ProviderName(), handle, fn, opts.MaxItems)
}

func (c *SocialData) searchPage(ctx context.Context, query, cursor string) (page, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("type", "Latest")
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u := c.baseURL + "/twitter/search?" + q.Encode()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return page{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return page{}, fmt.Errorf("socialdata status %d", resp.StatusCode)
	}
	var raw struct {
		Tweets     []map[string]any `json:"tweets"`
		NextCursor *string          `json:"next_cursor"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return page{}, err
	}
	var p page
	if raw.NextCursor != nil && *raw.NextCursor != "" {
		p.hasNext = true
		p.nextCursor = *raw.NextCursor
	}
	p.items = make([]model.Tweet, 0, len(raw.Tweets))
	for _, m := range raw.Tweets {
		p.items = append(p.items, c.toTweet(m))
	}
	return p, nil
}

func (c *SocialData) toTweet(m map[string]any) model.Tweet {
	// id is numeric on the wire; id_str is authoritative, and numeric ids
	// must not leak into the metrics map.
	t := model.Tweet{Metrics: numericMetrics(m, "id")}
	t.SourceID, _ = m["id_str"].(string)
	t.Content, _ = m["full_text"].(string)
	if t.Content == "" {
		t.Content, _ = m["text"].(string)
	}
	if s, ok := m["tweet_created_at"].(string); ok {
		if ts, err := time.Parse(socialDataTime, s); err == nil {
			t.PublishedAt = ts.UTC()
		} else if ts, err := time.Parse(time.RFC3339, s); err == nil {
			t.PublishedAt = ts.UTC()
		}
	}
	if u, ok := m["user"].(map[string]any); ok {
		t.AuthorHandle, _ = u["screen_name"].(string)
	}
	return t
}

// ValidateHandle checks the handle locally first, then against the user
// lookup endpoint. Provider failures fold into the result; this never errors.
func (c *SocialData) ValidateHandle(ctx context.Context, handle string) model.HandleCheck {
	h, ok := checkFormat(handle)
	if !ok {
		return model.HandleCheck{Err: errBadHandle}
	}
	u := c.baseURL + "/twitter/user/" + url.PathEscape(h)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return model.HandleCheck{Err: errUnableToValidate}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		logging.Error("validate_handle_error", map[string]any{"provider": c.ProviderName(), "handle": h, "error": err.Error()})
		return model.HandleCheck{Err: errUnableToValidate}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return model.HandleCheck{Err: errNotFound}
	}
	if resp.StatusCode >= 400 {
		var raw struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&raw)
		logging.Error("validate_handle_error", map[string]any{"provider": c.ProviderName(), "handle": h, "status": resp.StatusCode})
		if raw.Message != "" {
			return model.HandleCheck{Err: raw.Message}
		}
		return model.HandleCheck{Err: errUnableToValidate}
	}
	var raw struct {
		ID    json.Number `json:"id"`
		IDStr string      `json:"id_str"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return model.HandleCheck{Err: errUnableToValidate}
	}
	id := raw.IDStr
	if id == "" && raw.ID != "" {
		id = raw.ID.String()
	}
	if id == "" {
		return model.HandleCheck{Err: errUnableToValidate}
	}
	return model.HandleCheck{Valid: true, ProviderUserID: id}
}
