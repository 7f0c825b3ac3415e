package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"musefeed/internal/logging"
	"musefeed/internal/model"
)

// twitterAPIQueryTime is TwitterAPI.io's search operator timestamp layout.
const twitterAPIQueryTime = "2006-01-02_15:04:05_UTC"

// TwitterAPI talks to TwitterAPI.io.
type TwitterAPI struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

func NewTwitterAPI(apiKey string) *TwitterAPI {
	return &TwitterAPI{
		baseURL: "https://api.twitterapi.io",
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: newDefaultLimiter(),
	}
}

func (c *TwitterAPI) ProviderName() string { return "twitterapi" }

func (c *TwitterAPI) auth(req *http.Request) {
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
}

// ScrapeTweets pulls up to MaxItems of the handle's tweets within the date
// window via the advanced-search endpoint, following cursor pages.
func (c *TwitterAPI) ScrapeTweets(ctx context.Context, opts ScrapeOptions) []model.Tweet {
	handle, ok := checkFormat(opts.Handle)
	if !ok {
		logging.Warn("scrape_bad_handle", map[string]any{"provider": c.ProviderName(), "handle": opts.Handle})
		return nil
	}
	start, end := opts.window(time.Now().UTC())
	query := fmt.Sprintf("from:%s since:%s until:%s",
		handle, start.Format(twitterAPIQueryTime), end.Format(twitterAPIQueryTime))
	fn := func(ctx context.Context, cursor string) (page, error) {
		return c.searchPage(ctx, query, cursor)
	}
	return fetchPaged(ctx, c.ProviderName(), handle, fn, opts.MaxItems)
}

func (c *TwitterAPI) searchPage(ctx context.Context, query, cursor string) (page, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("queryType", "Latest")
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u := c.baseURL + "/twitter/tweet/advanced_search?" + q.Encode()
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
		return page{}, fmt.Errorf("twitterapi status %d", resp.StatusCode)
	}
	var raw struct {
		Tweets      []map[string]any `json:"tweets"`
		HasNextPage bool             `json:"has_next_page"`
		NextCursor  string           `json:"next_cursor"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return page{}, err
	}
	p := page{hasNext: raw.HasNextPage, nextCursor: raw.NextCursor}
	p.items = make([]model.Tweet, 0, len(raw.Tweets))
	for _, m := range raw.Tweets {
		p.items = append(p.items, c.toTweet(m))
	}
	return p, nil
}

func (c *TwitterAPI) toTweet(m map[string]any) model.Tweet {
	t := model.Tweet{Metrics: numericMetrics(m)}
	t.SourceID, _ = m["id"].(string)
	t.Content, _ = m["text"].(string)
	if s, ok := m["createdAt"].(string); ok {
		if ts, err := time.Parse(time.RubyDate, s); err == nil {
			t.PublishedAt = ts.UTC()
		}
	}
	if a, ok := m["author"].(map[string]any); ok {
		t.AuthorHandle, _ = a["userName"].(string)
	}
	return t
}

// ValidateHandle checks the handle locally first, then against the user-info
// endpoint. Provider failures fold into the result; this never errors.
func (c *TwitterAPI) ValidateHandle(ctx context.Context, handle string) model.HandleCheck {
	h, ok := checkFormat(handle)
	if !ok {
		return model.HandleCheck{Err: errBadHandle}
	}
	u := c.baseURL + "/twitter/user/info?userName=" + url.QueryEscape(h)
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
	var raw struct {
		Status string `json:"status"`
		Msg    string `json:"msg"`
		Data   struct {
			ID       string `json:"id"`
			UserName string `json:"userName"`
		} `json:"data"`
	}
	decErr := json.NewDecoder(resp.Body).Decode(&raw)
	if decErr == nil && raw.Status == "success" && raw.Data.ID != "" && resp.StatusCode < 400 {
		return model.HandleCheck{Valid: true, ProviderUserID: raw.Data.ID}
	}
	logging.Error("validate_handle_failed", map[string]any{
		"provider": c.ProviderName(), "handle": h, "status": resp.StatusCode, "msg": raw.Msg,
	})
	if strings.Contains(strings.ToLower(raw.Msg), "not found") {
		return model.HandleCheck{Err: errNotFound}
	}
	if raw.Msg != "" {
		return model.HandleCheck{Err: raw.Msg}
	}
	return model.HandleCheck{Err: errUnableToValidate}
}
