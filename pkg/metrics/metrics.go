// Package metrics defines the Prometheus collectors exported by quill.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheLookups counts cache lookups by result (hit, miss, expired, error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_cache_lookups_total",
			Help: "Total number of cache lookups by result.",
		},
		[]string{"result"},
	)

	// CacheEvictions counts entries removed to respect the size bound.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quill_cache_evictions_total",
			Help: "Total number of cache entries evicted to respect max entries.",
		},
	)

	// CacheErrors counts persistent KV failures by cache operation.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_cache_errors_total",
			Help: "Total number of cache storage errors by operation.",
		},
		[]string{"operation"}, // "lookup", "store", "clear", "cleanup", "stats"
	)

	// ProviderAttempts counts provider calls by outcome (success or an error class).
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_provider_attempts_total",
			Help: "Total number of provider attempts by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderLatency observes provider attempt durations.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quill_provider_latency_seconds",
			Help:    "Provider attempt latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"provider"},
	)

	// ActionRequests counts routed requests by action and status (ok or an error kind).
	ActionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_action_requests_total",
			Help: "Total number of action requests by action and status.",
		},
		[]string{"action", "status"},
	)

	// ActionDuration observes end-to-end handler durations.
	ActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quill_action_duration_seconds",
			Help:    "Action processing time in seconds, including cache and provider work.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"action"},
	)
)

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}
