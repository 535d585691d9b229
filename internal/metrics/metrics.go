// Package metrics exposes Prometheus collectors for the ingestion engine.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sourcesFetchedTotal   *prometheus.CounterVec
	itemsUpsertedTotal    *prometheus.CounterVec
	runsTotal             *prometheus.CounterVec
	runSkipsTotal         *prometheus.CounterVec
	alertTransitionsTotal *prometheus.CounterVec
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	fetchDurationSeconds  *prometheus.HistogramVec
	runDurationSeconds    *prometheus.HistogramVec
	inflightFetches       prometheus.Gauge
	itemsPrunedTotal      prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		sourcesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_sources_fetched_total",
				Help: "Total source fetch attempts, labeled by category and outcome.",
			},
			[]string{"category", "outcome"},
		)

		itemsUpsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_items_upserted_total",
				Help: "Total content items upserted into the store, labeled by category.",
			},
			[]string{"category"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_runs_total",
				Help: "Total collection runs, labeled by tier and status.",
			},
			[]string{"tier", "status"},
		)

		runSkipsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_run_skips_total",
				Help: "Standing triggers skipped because the tier run was still in flight.",
			},
			[]string{"tier"},
		)

		alertTransitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_alert_transitions_total",
				Help: "Alert state transitions, labeled by kind and level.",
			},
			[]string{"kind", "level"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentinel_fetch_duration_seconds",
				Help:    "Histogram of per-source fetch durations, labeled by category.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"category"},
		)

		runDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentinel_run_duration_seconds",
				Help:    "Histogram of collection run durations, labeled by tier.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"tier"},
		)

		inflightFetches = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentinel_inflight_fetches",
				Help: "Number of source fetches currently in flight.",
			},
		)

		itemsPrunedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sentinel_items_pruned_total",
				Help: "Content items removed by the retention reaper.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one source fetch attempt.
func ObserveFetch(category string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	sourcesFetchedTotal.WithLabelValues(category, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(category).Observe(duration.Seconds())
}

// ObserveUpserts adds to the upserted item counter.
func ObserveUpserts(category string, count int) {
	if count > 0 {
		itemsUpsertedTotal.WithLabelValues(category).Add(float64(count))
	}
}

// ObserveRun records a finished collection run.
func ObserveRun(tier string, status string, duration time.Duration) {
	runsTotal.WithLabelValues(tier, status).Inc()
	runDurationSeconds.WithLabelValues(tier).Observe(duration.Seconds())
}

// ObserveRunSkip records a standing trigger skipped by single-flight.
func ObserveRunSkip(tier string) {
	runSkipsTotal.WithLabelValues(tier).Inc()
}

// ObserveAlertTransition records one alert state change.
func ObserveAlertTransition(kind string, level string) {
	alertTransitionsTotal.WithLabelValues(kind, level).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncInflightFetches increments the in-flight fetch gauge.
func IncInflightFetches() {
	inflightFetches.Inc()
}

// DecInflightFetches decrements the in-flight fetch gauge.
func DecInflightFetches() {
	inflightFetches.Dec()
}

// ObservePruned adds to the reaper counter.
func ObservePruned(count int64) {
	if count > 0 {
		itemsPrunedTotal.Add(float64(count))
	}
}
