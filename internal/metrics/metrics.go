// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package metrics registers the Prometheus collectors for OnSide.
//
// Instrumented surfaces:
//   - API endpoint latency and throughput
//   - External provider calls (requests, errors, backoff waits)
//   - Circuit breaker state per provider
//   - Daily quota consumption
//   - Report build pipeline
//   - Dedupe decisions and the lookup cache
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onside_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onside_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// External provider metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onside_provider_requests_total",
			Help: "Total number of outbound provider requests by outcome",
		},
		[]string{"provider", "outcome"}, // success, failure, rejected
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onside_provider_request_duration_seconds",
			Help:    "Duration of outbound provider requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	ProviderBackoffWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onside_provider_backoff_waits_total",
			Help: "Total number of backoff waits triggered by HTTP 429/5xx",
		},
		[]string{"provider"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "onside_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onside_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"provider", "from", "to"},
	)

	// Quota metrics
	QuotaRequestsUsed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "onside_quota_requests_used",
			Help: "Requests used today per provider",
		},
		[]string{"provider"},
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onside_quota_rejections_total",
			Help: "Total number of calls rejected because the daily quota was spent",
		},
		[]string{"provider"},
	)

	// Report pipeline metrics
	ReportBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onside_report_builds_total",
			Help: "Total number of report builds by outcome",
		},
		[]string{"outcome"}, // completed, failed
	)

	ReportBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "onside_report_build_duration_seconds",
			Help:    "Duration of report builds in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Dedupe metrics
	DedupeDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onside_dedupe_decisions_total",
			Help: "Total number of dedupe decisions by result",
		},
		[]string{"result"}, // kept, exact, similarity
	)

	// Lookup cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onside_cache_hits_total",
			Help: "Total number of lookup cache hits",
		},
		[]string{"class"}, // whois, geo
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onside_cache_misses_total",
			Help: "Total number of lookup cache misses",
		},
		[]string{"class"},
	)
)

// RecordAPIRequest records one finished API request.
func RecordAPIRequest(method, path string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordProviderRequest records one finished outbound provider call.
func RecordProviderRequest(provider, outcome string, duration time.Duration) {
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	ProviderRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
