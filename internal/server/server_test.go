package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"musefeed/internal/config"
	"musefeed/internal/model"
	"musefeed/internal/store/tweetstore"
)

func newTestServer(t *testing.T, secret string) (*Server, *tweetstore.DB) {
	t.Helper()
	db, err := tweetstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cfg := config.Default()
	cfg.Server.CronSecret = secret
	return New(cfg, db, nil), db
}

func doReq(s *Server, method, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestCronRequiresSecret(t *testing.T) {
	s, _ := newTestServer(t, "s3cret")

	rec := doReq(s, http.MethodPost, "/api/cron/retention", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doReq(s, http.MethodPost, "/api/cron/retention", "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doReq(s, http.MethodPost, "/api/cron/retention", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	var res cronResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.NotNil(t, res.DeletedCount)
	require.Equal(t, 0, *res.DeletedCount)
}

func TestCronDisabledWithoutSecret(t *testing.T) {
	s, _ := newTestServer(t, "")
	rec := doReq(s, http.MethodPost, "/api/cron/retention", "anything")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCronRetentionReportsFailureWithHTTPSuccess(t *testing.T) {
	s, _ := newTestServer(t, "s3cret")
	s.sweepFn = func(ctx context.Context, days int) (int, error) {
		return 0, errors.New("disk on fire")
	}
	rec := doReq(s, http.MethodPost, "/api/cron/retention", "s3cret")
	// HTTP 200 regardless, so the scheduler does not retry-storm
	require.Equal(t, http.StatusOK, rec.Code)
	var res cronResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.False(t, res.Success)
	require.Contains(t, res.Error, "disk on fire")
	require.Nil(t, res.DeletedCount)
}

func TestCronRetentionDeletesAndReportsCount(t *testing.T) {
	s, db := newTestServer(t, "s3cret")
	ctx := context.Background()
	c, err := db.AddCreator(ctx, "owner", "ada", "1", 10)
	require.NoError(t, err)
	require.NoError(t, db.UpsertTweets(ctx, c.ID, []model.Tweet{
		{SourceID: "old", AuthorHandle: "ada", Content: "x", PublishedAt: time.Now().UTC().AddDate(0, 0, -60)},
		{SourceID: "new", AuthorHandle: "ada", Content: "x", PublishedAt: time.Now().UTC()},
	}))

	rec := doReq(s, http.MethodPost, "/api/cron/retention?days=30", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	var res cronResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.NotNil(t, res.DeletedCount)
	require.Equal(t, 1, *res.DeletedCount)
}

func TestCronIngestUsesInjectedRunner(t *testing.T) {
	s, _ := newTestServer(t, "s3cret")
	var gotUser string
	s.ingestFn = func(ctx context.Context, userID string) (int, error) {
		gotUser = userID
		return 7, nil
	}
	rec := doReq(s, http.MethodPost, "/api/cron/ingest", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "owner", gotUser, "defaults to the configured owner")
	var res cronResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.NotNil(t, res.Ingested)
	require.Equal(t, 7, *res.Ingested)
}

func TestSampleEndpointShape(t *testing.T) {
	s, db := newTestServer(t, "")
	ctx := context.Background()
	c, err := db.AddCreator(ctx, "owner", "ada", "1", 10)
	require.NoError(t, err)
	pub := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	require.NoError(t, db.UpsertTweets(ctx, c.ID, []model.Tweet{
		{SourceID: "t1", AuthorHandle: "ada", Content: "hello", PublishedAt: pub,
			Metrics: model.Metrics{"like_count": 5}},
	}))

	rec := doReq(s, http.MethodGet, "/api/sample?limit=10&days=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tweets []sampleTweet `json:"tweets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tweets, 1)
	require.Equal(t, "hello", body.Tweets[0].Content)
	require.Equal(t, "ada", body.Tweets[0].Author)
	require.Equal(t, pub.Format(time.RFC3339), body.Tweets[0].PublishedAt)
	require.Equal(t, float64(5), body.Tweets[0].Metrics["like_count"])
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, "")
	rec := doReq(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
