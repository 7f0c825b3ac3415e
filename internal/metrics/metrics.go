package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musefeed_ingest_runs_total",
		Help: "Total ingestion runs",
	})
	IngestErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musefeed_ingest_errors_total",
		Help: "Total ingestion errors",
	})
	TweetsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musefeed_tweets_ingested_total",
		Help: "Total tweets upserted by ingestion",
	})
	IngestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "musefeed_ingest_duration_seconds",
		Help:    "Ingestion run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	ProviderPages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "musefeed_provider_pages_total",
		Help: "Total provider page requests",
	}, []string{"provider"})
	SweepDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musefeed_sweep_deleted_total",
		Help: "Total tweets deleted by retention sweeps",
	})
	SweepErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musefeed_sweep_errors_total",
		Help: "Total retention sweep failures",
	})
	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "musefeed_sweep_duration_seconds",
		Help:    "Retention sweep duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "musefeed_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "musefeed_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(
		IngestRuns, IngestErrors, TweetsIngested, IngestDuration,
		ProviderPages, SweepDeleted, SweepErrors, SweepDuration,
		CommandRuns, CommandErrors,
	)
}

// ObserveIngestDuration records one ingestion run duration.
func ObserveIngestDuration(start time.Time) { IngestDuration.Observe(time.Since(start).Seconds()) }

// ObserveSweepDuration records one retention sweep duration.
func ObserveSweepDuration(start time.Time) { SweepDuration.Observe(time.Since(start).Seconds()) }

// IncProviderPage counts a page request against a provider.
func IncProviderPage(provider string) { ProviderPages.WithLabelValues(provider).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
