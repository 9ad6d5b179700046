// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/listingguard/internal/screening"
)

// maxBodyBytes bounds request bodies. Listing content is capped at 64 KiB by
// validation, so 1 MiB leaves room for outcomes with full alert metadata.
const maxBodyBytes = 1 << 20

// EvaluateRequest screens one submission. With Apply set the handler also
// records the outcome under the configured review policy.
type EvaluateRequest struct {
	ActorID    string               `json:"actor_id" validate:"required,actorid"`
	Submission screening.Submission `json:"submission"`
	Apply      bool                 `json:"apply"`
}

// EvaluateResponse is the data of a successful evaluation.
type EvaluateResponse struct {
	Verdict     *screening.Verdict     `json:"verdict"`
	Publishable bool                   `json:"publishable"`
	Enforcement *screening.Enforcement `json:"enforcement,omitempty"`
}

// RegisterActorRequest creates a clean sanction row.
type RegisterActorRequest struct {
	ActorID string `json:"actor_id" validate:"required,actorid"`
}

// ActorStatusResponse is the current sanction state plus the derived block flag.
type ActorStatusResponse struct {
	State   *screening.SanctionState `json:"state"`
	Blocked bool                     `json:"blocked"`
}

// ListAlertsRequest is built from query parameters.
type ListAlertsRequest struct {
	ActorID  string `validate:"omitempty,actorid"`
	Type     string `validate:"omitempty,oneof=volume duplicate_content commercial_keywords suspicious_url price_anomaly contact_leak"`
	Severity string `validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Resolved string `validate:"omitempty,oneof=true false"`
	Limit    int    `validate:"min=1,max=1000"`
	Offset   int    `validate:"min=0,max=1000000"`
}

func (r *ListAlertsRequest) filter() screening.AlertFilter {
	f := screening.AlertFilter{
		ActorID:  r.ActorID,
		Type:     screening.AlertType(r.Type),
		Severity: screening.Severity(r.Severity),
		Limit:    r.Limit,
		Offset:   r.Offset,
	}
	if r.Resolved != "" {
		resolved := r.Resolved == "true"
		f.Resolved = &resolved
	}
	return f
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}
