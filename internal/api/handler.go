// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/listingguard/internal/screening"
)

// Screener is the part of *screening.Engine the handlers call.
type Screener interface {
	EvaluateSubmission(ctx context.Context, actorID string, sub screening.Submission) (*screening.Verdict, error)
	RecordOutcome(ctx context.Context, outcome screening.Outcome) (*screening.Enforcement, error)
	GetAlertStatistics(ctx context.Context) (*screening.AlertStatistics, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators behind the handlers. Engine and Sanctions are
// required; the rest switch optional routes and health details on.
type Deps struct {
	Engine    Screener
	Sanctions screening.SanctionStore
	Reviewer  screening.AlertReviewer
	Registry  screening.ActorRegistry
	Recorder  screening.SubmissionRecorder
	Review    screening.ReviewConfig
	Ready     Pinger
	Breaker   func() gobreaker.State
}

// Handler serves the screening API.
type Handler struct {
	engine    Screener
	sanctions screening.SanctionStore
	reviewer  screening.AlertReviewer
	registry  screening.ActorRegistry
	recorder  screening.SubmissionRecorder
	review    screening.ReviewConfig
	ready     Pinger
	breaker   func() gobreaker.State
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a handler over deps.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		engine:    deps.Engine,
		sanctions: deps.Sanctions,
		reviewer:  deps.Reviewer,
		registry:  deps.Registry,
		recorder:  deps.Recorder,
		review:    deps.Review,
		ready:     deps.Ready,
		breaker:   deps.Breaker,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// HealthLive handles liveness probe requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady returns 503 while the store is unreachable. An open history
// breaker is reported but does not fail readiness: evaluations still run,
// degraded or denied per the history failure policy.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	storeConnected := h.ready == nil || h.ready.Ping(r.Context()) == nil

	data := map[string]interface{}{
		"store_connected": storeConnected,
		"ready_to_serve":  storeConnected,
		"uptime":          time.Since(h.startTime).Seconds(),
	}
	if h.breaker != nil {
		data["history_breaker"] = h.breaker().String()
	}

	statusCode := http.StatusOK
	status := "ready"
	if !storeConnected {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &APIResponse{
		Status: status,
		Data:   data,
		Metadata: Metadata{
			Timestamp: time.Now(),
		},
	})
}
