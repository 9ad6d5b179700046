// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/listingguard/internal/logging"
	"github.com/tomtom215/listingguard/internal/screening"
)

// Evaluate screens a submission. A denied evaluation still carries its deny
// verdict in the error body so a caller that ignores the status never
// publishes by default.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req EvaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be a single JSON object", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	ctx := r.Context()
	verdict, err := h.engine.EvaluateSubmission(ctx, req.ActorID, req.Submission)
	if err != nil {
		denied := &EvaluateResponse{Verdict: verdict}
		switch {
		case errors.Is(err, screening.ErrActorNotFound):
			respondErrorWithData(w, http.StatusNotFound, "ACTOR_NOT_FOUND", "Actor has no sanction record", denied, err)
		case errors.Is(err, screening.ErrHistoryUnavailable):
			respondErrorWithData(w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Submission history unavailable", denied, err)
		default:
			respondErrorWithData(w, http.StatusInternalServerError, "SCREENING_ERROR", "Screening failed", denied, err)
		}
		return
	}

	resp := &EvaluateResponse{
		Verdict:     verdict,
		Publishable: h.review.Publishable(verdict),
	}

	if req.Apply && !verdict.ShortCircuited {
		enf, err := h.engine.RecordOutcome(ctx, h.review.OutcomeFor(verdict))
		if err != nil {
			resp.Publishable = false
			respondErrorWithData(w, http.StatusServiceUnavailable, "ENFORCEMENT_NOT_RECORDED",
				"Verdict could not be recorded; do not publish", resp, err)
			return
		}
		resp.Enforcement = enf
		resp.Publishable = h.review.PublishableAfter(verdict, enf)
		h.recordHistory(ctx, req.ActorID, &req.Submission)
	}

	respondSuccess(w, r, http.StatusOK, resp, start)
}

// recordHistory appends an applied submission to the actor's history. A
// failure only weakens later volume and duplicate checks, so it is logged.
func (h *Handler) recordHistory(ctx context.Context, actorID string, sub *screening.Submission) {
	if h.recorder == nil {
		return
	}
	rec := screening.HistoricalSubmission{
		Title:     sub.Title,
		Content:   sub.Content,
		CreatedAt: h.now(),
	}
	if err := h.recorder.RecordSubmission(ctx, actorID, sub.ID, rec); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("actor_id", actorID).Msg("submission not added to history")
	}
}

// Outcomes records an outcome the caller built from an earlier verdict.
func (h *Handler) Outcomes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var outcome screening.Outcome
	if err := decodeJSON(w, r, &outcome); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be a single JSON object", err)
		return
	}
	if apiErr := validateRequest(&outcome); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}
	if apiErr := validateAlerts(outcome.SubmissionID, outcome.Alerts); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	enf, err := h.engine.RecordOutcome(r.Context(), outcome)
	if err != nil {
		if errors.Is(err, screening.ErrActorNotFound) {
			respondErrorWithData(w, http.StatusNotFound, "ACTOR_NOT_FOUND", "Actor has no sanction record", enf, err)
			return
		}
		respondErrorWithData(w, http.StatusServiceUnavailable, "ENFORCEMENT_NOT_RECORDED",
			"Outcome could not be recorded; retry", enf, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, enf, start)
}

// validateAlerts checks what struct tags cannot. Alerts for one submission
// must have distinct types.
func validateAlerts(submissionID string, alerts []*screening.Alert) *APIError {
	seen := make(map[screening.AlertType]bool, len(alerts))
	for i, a := range alerts {
		if !a.Severity.Valid() {
			return &APIError{
				Code:    "VALIDATION_ERROR",
				Message: fmt.Sprintf("Alerts[%d].Severity must be one of: LOW MEDIUM HIGH CRITICAL", i),
				Details: map[string]interface{}{"field": fmt.Sprintf("Alerts[%d].Severity", i), "tag": "oneof"},
			}
		}
		if a.Type == "" {
			return &APIError{
				Code:    "VALIDATION_ERROR",
				Message: fmt.Sprintf("Alerts[%d].Type is required", i),
				Details: map[string]interface{}{"field": fmt.Sprintf("Alerts[%d].Type", i), "tag": "required"},
			}
		}
		if submissionID != "" && seen[a.Type] {
			return &APIError{
				Code:    "VALIDATION_ERROR",
				Message: fmt.Sprintf("Alerts[%d].Type %s is repeated for submission %s", i, a.Type, submissionID),
				Details: map[string]interface{}{"field": fmt.Sprintf("Alerts[%d].Type", i), "tag": "unique"},
			}
		}
		seen[a.Type] = true
	}
	return nil
}

// Statistics returns ledger aggregates.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	stats, err := h.engine.GetAlertStatistics(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read alert statistics", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, stats, start)
}

// ActorStatus returns an actor's sanction state.
func (h *Handler) ActorStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := RegisterActorRequest{ActorID: chi.URLParam(r, "actorID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	state, err := h.sanctions.GetSanctionState(r.Context(), req.ActorID)
	if err != nil {
		if errors.Is(err, screening.ErrActorNotFound) {
			respondError(w, http.StatusNotFound, "ACTOR_NOT_FOUND", "Actor has no sanction record", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read sanction state", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, &ActorStatusResponse{
		State:   state,
		Blocked: state.IsBlocked(h.now()),
	}, start)
}

// RegisterActor creates a clean sanction row.
func (h *Handler) RegisterActor(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RegisterActorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be a single JSON object", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	state, err := h.registry.RegisterActor(r.Context(), req.ActorID)
	if err != nil {
		if errors.Is(err, screening.ErrActorExists) {
			respondError(w, http.StatusConflict, "ACTOR_EXISTS", "Actor is already registered", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register actor", err)
		return
	}

	respondSuccess(w, r, http.StatusCreated, state, start)
}

// ListAlerts lists ledger rows, newest first.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := r.URL.Query()
	req := ListAlertsRequest{
		ActorID:  q.Get("actor_id"),
		Type:     q.Get("type"),
		Severity: q.Get("severity"),
		Resolved: q.Get("resolved"),
		Limit:    getIntParam(r, "limit", 100),
		Offset:   getIntParam(r, "offset", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	alerts, err := h.reviewer.ListAlerts(r.Context(), req.filter())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list alerts", err)
		return
	}
	if alerts == nil {
		alerts = []*screening.Alert{}
	}

	respondSuccess(w, r, http.StatusOK, alerts, start)
}

// ResolveAlert flips an alert's resolved flag.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a positive integer", nil)
		return
	}

	if err := h.reviewer.ResolveAlert(r.Context(), id); err != nil {
		if errors.Is(err, screening.ErrAlertNotFound) {
			respondError(w, http.StatusNotFound, "ALERT_NOT_FOUND", "Alert not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve alert", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{"id": id, "resolved": true}, start)
}
