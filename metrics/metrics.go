// Package metrics exposes Prometheus collectors for the cache,
// provider failover and distribution layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherhub_cache_hits_total",
			Help: "The total number of freshness cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherhub_cache_misses_total",
			Help: "The total number of freshness cache misses",
		},
		[]string{"backend"},
	)

	CacheStaleServes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherhub_cache_stale_serves_total",
			Help: "Expired entries served because every provider failed",
		},
		[]string{"backend"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherhub_cache_evictions_total",
			Help: "Entries evicted to make room at capacity",
		},
		[]string{"backend"},
	)

	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherhub_provider_attempts_total",
			Help: "Upstream fetch attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherhub_provider_failures_total",
			Help: "Upstream fetch failures by provider and error kind",
		},
		[]string{"provider", "kind"},
	)

	PublishedUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherhub_published_updates_total",
			Help: "Observations published to subscribers",
		},
	)

	DroppedDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherhub_dropped_deliveries_total",
			Help: "Push deliveries dropped because a subscriber channel was full",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherhub_active_sessions",
			Help: "Currently registered client sessions",
		},
	)
)
