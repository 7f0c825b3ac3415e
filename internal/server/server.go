package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"musefeed/internal/config"
	"musefeed/internal/ingest"
	"musefeed/internal/logging"
	"musefeed/internal/model"
	"musefeed/internal/retention"
	"musefeed/internal/sample"
	"musefeed/internal/source"
	"musefeed/internal/store/tweetstore"
)

// Server is the ops HTTP surface: scheduler-triggered cron routes, the
// sample read endpoint, health, and metrics.
type Server struct {
	cfg    config.Config
	db     *tweetstore.DB
	router *chi.Mux

	// job entry points, swappable in tests
	sweepFn  func(ctx context.Context, daysToKeep int) (int, error)
	ingestFn func(ctx context.Context, userID string) (int, error)
}

func New(cfg config.Config, db *tweetstore.DB, src source.Source) *Server {
	s := &Server{cfg: cfg, db: db}
	s.sweepFn = func(ctx context.Context, days int) (int, error) {
		return retention.Sweep(ctx, db, days)
	}
	s.ingestFn = func(ctx context.Context, userID string) (int, error) {
		return ingest.RunOnce(ctx, db, src, cfg, userID)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/sample", s.handleSample)
		r.Group(func(r chi.Router) {
			r.Use(s.requireCronSecret)
			r.Post("/cron/retention", s.handleRetention)
			r.Post("/cron/ingest", s.handleIngest)
		})
	})
	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Start blocks serving on the configured address.
func (s *Server) Start() error {
	if s.cfg.Server.CronSecret == "" {
		logging.Warn("cron_secret_unset", map[string]any{"addr": s.cfg.Server.Addr})
	}
	logging.Info("server_start", map[string]any{"addr": s.cfg.Server.Addr})
	return http.ListenAndServe(s.cfg.Server.Addr, s.router)
}

// requireCronSecret guards scheduler-triggered routes with a static bearer
// secret. An unconfigured secret disables the routes rather than opening them.
func (s *Server) requireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.cfg.Server.CronSecret
		if secret == "" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "cron routes disabled: no secret configured"})
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cronResult is the payload returned to the external scheduler. The HTTP
// status is 200 even on failure so transient errors do not retry-storm.
type cronResult struct {
	Success      bool   `json:"success"`
	DeletedCount *int   `json:"deletedCount,omitempty"`
	Ingested     *int   `json:"ingested,omitempty"`
	Error        string `json:"error,omitempty"`
	DurationMs   int64  `json:"durationMs"`
}

func (s *Server) handleRetention(w http.ResponseWriter, r *http.Request) {
	days := s.cfg.Ingestion.RetentionDays
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	start := time.Now()
	deleted, err := s.sweepFn(r.Context(), days)
	res := cronResult{DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		logging.Error("cron_retention_error", map[string]any{"error": err.Error()})
		res.Error = err.Error()
	} else {
		res.Success = true
		res.DeletedCount = &deleted
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = s.cfg.Account.UserID
	}
	start := time.Now()
	n, err := s.ingestFn(r.Context(), userID)
	res := cronResult{DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		logging.Error("cron_ingest_error", map[string]any{"error": err.Error()})
		res.Error = err.Error()
	} else {
		res.Success = true
		res.Ingested = &n
	}
	writeJSON(w, http.StatusOK, res)
}

// sampleTweet is the normalized wire shape consumed by prompt construction.
type sampleTweet struct {
	Content     string        `json:"content"`
	Author      string        `json:"author"`
	PublishedAt string        `json:"publishedAt"`
	Metrics     model.Metrics `json:"metrics,omitempty"`
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = s.cfg.Account.UserID
	}
	opts := sample.Options{Limit: s.cfg.Sampling.Limit, DaysBack: s.cfg.Sampling.DaysBack}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.DaysBack = n
		}
	}
	tweets, err := sample.NewRandom().Sample(r.Context(), s.db, userID, opts)
	if err != nil {
		logging.Error("sample_error", map[string]any{"userId": userID, "error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "sample failed"})
		return
	}
	out := make([]sampleTweet, 0, len(tweets))
	for _, t := range tweets {
		out = append(out, sampleTweet{
			Content:     t.Content,
			Author:      t.AuthorHandle,
			PublishedAt: t.PublishedAt.UTC().Format(time.RFC3339),
			Metrics:     t.Metrics,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tweets": out})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
