// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

// Package metrics provides Prometheus instrumentation for Synkuru:
// AniList request throughput and latency, rate-limiter behavior, cache
// efficiency, id-resolver outcomes, and catalog build durations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AniList API Metrics

	AniListRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anilist_requests_total",
			Help: "Total number of AniList GraphQL requests by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "success", "graphql_error", "transport_error", "network_error"
	)

	AniListRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anilist_request_duration_seconds",
			Help:    "Duration of AniList GraphQL requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Rate Limiter Metrics

	TransportCoolDowns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anilist_transport_cooldowns_total",
			Help: "Total number of rate-limit cool-downs entered after HTTP 429",
		},
	)

	TransportRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anilist_transport_retries_total",
			Help: "Total number of request retries after a rate-limit cool-down",
		},
	)

	TransportInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anilist_transport_in_flight",
			Help: "Current number of in-flight AniList requests",
		},
	)

	// Cache Metrics

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits by cache name",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses by cache name",
		},
		[]string{"cache"},
	)

	// Id Resolver Metrics

	ResolverLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idmap_resolver_lookups_total",
			Help: "Total number of id resolutions by source namespace and outcome",
		},
		[]string{"source", "outcome"}, // outcome: "memory", "store", "remote", "miss", "error"
	)

	// Circuit Breaker Metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Catalog Metrics

	CatalogBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_build_duration_seconds",
			Help:    "Duration of catalog builds in seconds by catalog id",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"catalog"},
	)

	CatalogEntries = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_entries",
			Help:    "Number of normalized entries returned per catalog build",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"catalog"},
	)

	// Progress Sync Metrics

	ProgressSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_syncs_total",
			Help: "Total number of progress sync attempts by outcome",
		},
		[]string{"outcome"}, // outcome: "updated", "completed", "noop", "skipped", "error"
	)

	// HTTP Metrics

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// ObserveCatalogBuild records the duration and size of one catalog build.
func ObserveCatalogBuild(catalog string, start time.Time, entries int) {
	CatalogBuildDuration.WithLabelValues(catalog).Observe(time.Since(start).Seconds())
	CatalogEntries.WithLabelValues(catalog).Observe(float64(entries))
}
