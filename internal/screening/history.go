// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tomtom215/listingguard/internal/logging"
	"github.com/tomtom215/listingguard/internal/metrics"
)

// BreakerConfig configures the circuit breaker around history reads.
type BreakerConfig struct {
	Name         string        `koanf:"name" validate:"required"`
	MaxRequests  uint32        `koanf:"max_requests" validate:"gte=1"` // requests allowed through while half-open
	Interval     time.Duration `koanf:"interval" validate:"gte=0"`     // closed-state count reset period
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`       // open duration before probing
	MinRequests  uint32        `koanf:"min_requests" validate:"gte=1"` // requests needed before the ratio is considered
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
}

// DefaultBreakerConfig returns the shipped breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "submission-history",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// ResilientHistory guards a SubmissionHistory with a circuit breaker so an
// unhealthy store is skipped quickly instead of timing out on every evaluation.
type ResilientHistory struct {
	next SubmissionHistory
	cb   *gobreaker.CircuitBreaker[[]HistoricalSubmission]
	name string
}

// NewResilientHistory wraps next.
func NewResilientHistory(next SubmissionHistory, cfg BreakerConfig) *ResilientHistory {
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]HistoricalSubmission](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		// Caller cancellation says nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("history circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &ResilientHistory{next: next, cb: cb, name: cfg.Name}
}

// FindRecentSubmissions calls the wrapped history unless the breaker is open.
func (r *ResilientHistory) FindRecentSubmissions(ctx context.Context, actorID string, since time.Time) ([]HistoricalSubmission, error) {
	out, err := r.cb.Execute(func() ([]HistoricalSubmission, error) {
		return r.next.FindRecentSubmissions(ctx, actorID, since)
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "failure").Inc()
	}
	return out, err
}

// State returns the breaker state for health reporting.
func (r *ResilientHistory) State() gobreaker.State {
	return r.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
