// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

// Package metrics exposes Prometheus instrumentation for the screening
// engine, its storage backends and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Screening Metrics
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingguard_evaluations_total",
			Help: "Total number of submission evaluations by result",
		},
		[]string{"result"}, // "passed", "flagged", "blocked", "denied_precheck", "error"
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listingguard_evaluation_duration_seconds",
			Help:    "Duration of a full submission evaluation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingguard_alerts_raised_total",
			Help: "Total number of alerts raised by extractors",
		},
		[]string{"type", "severity"},
	)

	ExtractorDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingguard_screening_degraded_total",
			Help: "Extractor runs skipped because a collaborator was unavailable",
		},
		[]string{"extractor"},
	)

	EnforcementTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingguard_enforcement_transitions_total",
			Help: "Sanction state transitions applied to actors",
		},
		[]string{"action"}, // "AUTO_BLOCK_TEMP", "AUTO_BLOCK_PERMANENT"
	)

	EnforcementWriteRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingguard_enforcement_write_retries_total",
			Help: "Retries performed while recording an enforcement outcome",
		},
		[]string{"target"}, // "sanctions", "ledger"
	)

	EnforcementWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingguard_enforcement_write_failures_total",
			Help: "Enforcement outcomes that could not be recorded after all retries",
		},
		[]string{"target"},
	)

	EnforcementReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listingguard_enforcement_replays_total",
			Help: "Outcomes received again for a submission that was already recorded",
		},
	)

	SanctionUpdateConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingguard_sanction_update_conflicts_total",
			Help: "Optimistic concurrency conflicts while updating sanction state",
		},
		[]string{"backend"}, // "duckdb", "badger"
	)

	// Storage Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Event Transport Metrics
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingguard_events_consumed_total",
			Help: "Submission events consumed from the message transport",
		},
		[]string{"result"}, // "screened", "malformed", "failed"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordEvaluation records the outcome and latency of one evaluation.
func RecordEvaluation(result string, duration time.Duration) {
	EvaluationsTotal.WithLabelValues(result).Inc()
	EvaluationDuration.Observe(duration.Seconds())
}

// RecordAlert counts an alert raised by an extractor.
func RecordAlert(alertType, severity string) {
	AlertsRaised.WithLabelValues(alertType, severity).Inc()
}

// RecordDegraded counts an extractor that ran without its collaborator data.
func RecordDegraded(extractor string) {
	ExtractorDegraded.WithLabelValues(extractor).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
