// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/listingguard/internal/screening"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *APIError       `json:"error"`
}

func newTestRouter(t *testing.T, review screening.ReviewConfig) (http.Handler, *screening.MemoryStore) {
	t.Helper()
	store := screening.NewMemoryStore()
	policy, err := screening.Compile(screening.DefaultRules())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	engine := screening.NewEngine(policy, store, store, store, screening.EngineConfig{
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})
	h := NewHandler(Deps{
		Engine:    engine,
		Sanctions: store,
		Reviewer:  store,
		Registry:  store,
		Recorder:  store,
		Review:    review,
	})
	return NewRouter(h, NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})), store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// chi's own 404 and 405 replies are plain text.
	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func register(t *testing.T, store *screening.MemoryStore, actorID string, warnings int) {
	t.Helper()
	if _, err := store.RegisterActor(context.Background(), actorID); err != nil {
		t.Fatalf("RegisterActor(%q) error = %v", actorID, err)
	}
	if warnings > 0 {
		store.PutSanctionState(&screening.SanctionState{ActorID: actorID, WarningCount: warnings})
	}
}

var (
	cleanSubmission = screening.Submission{
		ID:      "sub-1",
		Title:   "Oak dining table",
		Content: "Solid oak table with six chairs, lightly used.",
	}
	flaggedSubmission = screening.Submission{
		ID:      "sub-2",
		Title:   "Oak dining table",
		Content: "Photos and details at wa.me/5550001",
	}
)

func TestEvaluate_Clean(t *testing.T) {
	router, store := newTestRouter(t, screening.DefaultReviewConfig())
	register(t, store, "actor-1", 0)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/screening/evaluate",
		EvaluateRequest{ActorID: "actor-1", Submission: cleanSubmission})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	var resp EvaluateResponse
	decodeData(t, env, &resp)
	if !resp.Verdict.Passed || !resp.Verdict.Allowed || !resp.Publishable {
		t.Errorf("got passed=%v allowed=%v publishable=%v, want all true",
			resp.Verdict.Passed, resp.Verdict.Allowed, resp.Publishable)
	}
	if resp.Enforcement != nil {
		t.Error("dry-run evaluation should not carry an enforcement")
	}

	hist, err := store.FindRecentSubmissions(context.Background(), "actor-1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("FindRecentSubmissions() error = %v", err)
	}
	if len(hist) != 0 {
		t.Errorf("history has %d entries after a dry run, want 0", len(hist))
	}
}

func TestEvaluate_UnknownActorReturnsDenyVerdict(t *testing.T) {
	router, _ := newTestRouter(t, screening.DefaultReviewConfig())

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/screening/evaluate",
		EvaluateRequest{ActorID: "ghost", Submission: cleanSubmission})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if env.Error == nil || env.Error.Code != "ACTOR_NOT_FOUND" {
		t.Fatalf("error = %+v, want ACTOR_NOT_FOUND", env.Error)
	}

	var resp EvaluateResponse
	decodeData(t, env, &resp)
	if resp.Verdict == nil || resp.Verdict.Allowed || resp.Publishable {
		t.Errorf("got verdict %+v publishable=%v, want a deny verdict", resp.Verdict, resp.Publishable)
	}
}

func TestEvaluate_ApplyEscalatesAndLedgers(t *testing.T) {
	router, store := newTestRouter(t, screening.DefaultReviewConfig())
	register(t, store, "actor-1", 2)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/screening/evaluate",
		EvaluateRequest{ActorID: "actor-1", Submission: flaggedSubmission, Apply: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp EvaluateResponse
	decodeData(t, env, &resp)
	if !resp.Verdict.ShouldBlock || resp.Verdict.BlockDurationDays == nil || *resp.Verdict.BlockDurationDays != 7 {
		t.Fatalf("got verdict %+v, want a 7-day block", resp.Verdict)
	}
	if resp.Publishable {
		t.Error("blocked listing reported publishable")
	}
	if resp.Enforcement == nil || !resp.Enforcement.Transitioned {
		t.Fatalf("got enforcement %+v, want a transition", resp.Enforcement)
	}
	if got := resp.Enforcement.After.WarningCount; got != 3 {
		t.Errorf("WarningCount = %d, want 3", got)
	}

	hist, err := store.FindRecentSubmissions(context.Background(), "actor-1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("FindRecentSubmissions() error = %v", err)
	}
	if len(hist) != 1 {
		t.Errorf("history has %d entries, want 1", len(hist))
	}

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/screening/actors/actor-1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var status ActorStatusResponse
	decodeData(t, env, &status)
	if !status.Blocked {
		t.Error("actor not reported blocked")
	}

	// The next submission short-circuits.
	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/screening/evaluate",
		EvaluateRequest{ActorID: "actor-1", Submission: cleanSubmission, Apply: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	decodeData(t, env, &resp)
	if !resp.Verdict.ShortCircuited || resp.Publishable {
		t.Errorf("got short_circuited=%v publishable=%v, want true/false", resp.Verdict.ShortCircuited, resp.Publishable)
	}

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/screening/alerts?actor_id=actor-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var alerts []*screening.Alert
	decodeData(t, env, &alerts)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].ActionTaken != screening.ActionAutoBlockTemp {
		t.Errorf("ActionTaken = %s, want %s", alerts[0].ActionTaken, screening.ActionAutoBlockTemp)
	}

	rec, _ = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/screening/alerts/%d/resolve", alerts[0].ID), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("resolve status = %d, want %d", rec.Code, http.StatusOK)
	}
	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/screening/alerts/999/resolve", nil)
	if rec.Code != http.StatusNotFound || env.Error.Code != "ALERT_NOT_FOUND" {
		t.Errorf("got %d %+v, want 404 ALERT_NOT_FOUND", rec.Code, env.Error)
	}

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/screening/statistics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var stats screening.AlertStatistics
	decodeData(t, env, &stats)
	if stats.TotalAlerts != 1 || stats.UnresolvedAlerts != 0 || stats.BlockedActorCount != 1 {
		t.Errorf("got total=%d unresolved=%d blocked=%d, want 1/0/1",
			stats.TotalAlerts, stats.UnresolvedAlerts, stats.BlockedActorCount)
	}
}

func TestEvaluate_HoldPolicy(t *testing.T) {
	router, store := newTestRouter(t, screening.ReviewConfig{FlaggedListingPolicy: screening.ReviewHold})
	register(t, store, "actor-1", 0)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/screening/evaluate",
		EvaluateRequest{ActorID: "actor-1", Submission: flaggedSubmission, Apply: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp EvaluateResponse
	decodeData(t, env, &resp)
	if resp.Publishable {
		t.Error("held listing reported publishable")
	}
	if resp.Enforcement == nil || resp.Enforcement.Action != screening.ActionManualReview {
		t.Errorf("got enforcement %+v, want MANUAL_REVIEW", resp.Enforcement)
	}
}

func TestEvaluate_BadRequests(t *testing.T) {
	router, _ := newTestRouter(t, screening.DefaultReviewConfig())

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{"not json", "{", "INVALID_JSON"},
		{"unknown field", `{"actor_id":"a","submission":{},"extra":1}`, "INVALID_JSON"},
		{"two objects", `{"actor_id":"a"}{"actor_id":"b"}`, "INVALID_JSON"},
		{"missing actor", EvaluateRequest{Submission: cleanSubmission}, "VALIDATION_ERROR"},
		{"bad actor id", EvaluateRequest{ActorID: "bad actor!", Submission: cleanSubmission}, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doJSON(t, router, http.MethodPost, "/api/v1/screening/evaluate", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want %s", env.Error, tt.code)
			}
		})
	}
}

func TestRegisterActor(t *testing.T) {
	router, _ := newTestRouter(t, screening.DefaultReviewConfig())

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/screening/actors", RegisterActorRequest{ActorID: "new-actor"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/screening/actors", RegisterActorRequest{ActorID: "new-actor"})
	if rec.Code != http.StatusConflict || env.Error.Code != "ACTOR_EXISTS" {
		t.Errorf("got %d %+v, want 409 ACTOR_EXISTS", rec.Code, env.Error)
	}

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/screening/actors/missing/status", nil)
	if rec.Code != http.StatusNotFound || env.Error.Code != "ACTOR_NOT_FOUND" {
		t.Errorf("got %d %+v, want 404 ACTOR_NOT_FOUND", rec.Code, env.Error)
	}
}

func TestListAlerts_Validation(t *testing.T) {
	router, _ := newTestRouter(t, screening.DefaultReviewConfig())

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"defaults", "", http.StatusOK},
		{"filters", "?type=volume&severity=HIGH&resolved=false&limit=10", http.StatusOK},
		{"bad severity", "?severity=SEVERE", http.StatusBadRequest},
		{"bad type", "?type=spam", http.StatusBadRequest},
		{"bad resolved", "?resolved=maybe", http.StatusBadRequest},
		{"limit too high", "?limit=5000", http.StatusBadRequest},
		{"bad id", "?actor_id=a%20b", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doJSON(t, router, http.MethodGet, "/api/v1/screening/alerts"+tt.query, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// mockScreener fails RecordOutcome a fixed way.
type mockScreener struct {
	mu       sync.Mutex
	calls    int
	outcome  error
	verdict  *screening.Verdict
	statsErr error
}

func (m *mockScreener) EvaluateSubmission(_ context.Context, actorID string, _ screening.Submission) (*screening.Verdict, error) {
	return m.verdict, nil
}

func (m *mockScreener) RecordOutcome(_ context.Context, _ screening.Outcome) (*screening.Enforcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return nil, m.outcome
}

func (m *mockScreener) GetAlertStatistics(context.Context) (*screening.AlertStatistics, error) {
	return nil, m.statsErr
}

func TestEnforcementNotRecorded(t *testing.T) {
	mock := &mockScreener{
		outcome: fmt.Errorf("%w: %w", screening.ErrEnforcementNotRecorded, errors.New("disk full")),
		verdict: &screening.Verdict{
			ActorID: "actor-1",
			Allowed: true,
			Passed:  false,
			Alerts:  []*screening.Alert{{Type: screening.AlertTypeSuspiciousURL, Severity: screening.SeverityMedium}},
		},
		statsErr: errors.New("ledger offline"),
	}
	router := NewRouter(NewHandler(Deps{
		Engine:    mock,
		Sanctions: screening.NewMemoryStore(),
		Review:    screening.DefaultReviewConfig(),
	}), NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true}))

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/screening/evaluate",
		EvaluateRequest{ActorID: "actor-1", Submission: flaggedSubmission, Apply: true})
	if rec.Code != http.StatusServiceUnavailable || env.Error.Code != "ENFORCEMENT_NOT_RECORDED" {
		t.Fatalf("got %d %+v, want 503 ENFORCEMENT_NOT_RECORDED", rec.Code, env.Error)
	}
	var resp EvaluateResponse
	decodeData(t, env, &resp)
	if resp.Publishable {
		t.Error("unrecorded verdict reported publishable")
	}

	outcome := screening.Outcome{
		ActorID: "actor-1",
		Alerts:  []*screening.Alert{{Type: screening.AlertTypeSuspiciousURL, Severity: screening.SeverityMedium}},
	}
	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/screening/outcomes", outcome)
	if rec.Code != http.StatusServiceUnavailable || env.Error.Code != "ENFORCEMENT_NOT_RECORDED" {
		t.Errorf("got %d %+v, want 503 ENFORCEMENT_NOT_RECORDED", rec.Code, env.Error)
	}

	outcome.Alerts[0].Severity = "SEVERE"
	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/screening/outcomes", outcome)
	if rec.Code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("got %d %+v, want 400 VALIDATION_ERROR", rec.Code, env.Error)
	}

	mock.mu.Lock()
	calls := mock.calls
	mock.mu.Unlock()
	if calls != 2 {
		t.Errorf("RecordOutcome calls = %d, want 2", calls)
	}

	rec, _ = doJSON(t, router, http.MethodGet, "/api/v1/screening/statistics", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("statistics status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	// No reviewer or registry: those routes are not mounted.
	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/screening/alerts", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("alerts status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if env.Status != "" || env.Error != nil {
		t.Errorf("unmounted route decoded as envelope: %+v", env)
	}
}

func TestOutcomes_Applied(t *testing.T) {
	router, store := newTestRouter(t, screening.DefaultReviewConfig())
	register(t, store, "actor-1", 0)

	outcome := screening.Outcome{
		ActorID:      "actor-1",
		SubmissionID: "sub-9",
		Alerts: []*screening.Alert{
			{Type: screening.AlertTypeContactLeak, Severity: screening.SeverityMedium, Description: "off-platform contact"},
		},
	}
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/screening/outcomes", outcome)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var enf screening.Enforcement
	decodeData(t, env, &enf)
	if enf.Action != screening.ActionAutoWarning || enf.AlertsRecorded != 1 {
		t.Errorf("got action=%s recorded=%d, want AUTO_WARNING/1", enf.Action, enf.AlertsRecorded)
	}

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/screening/outcomes", outcome)
	if rec.Code != http.StatusOK {
		t.Fatalf("resubmitted status = %d, want %d", rec.Code, http.StatusOK)
	}
	decodeData(t, env, &enf)
	if !enf.Replayed || enf.After.WarningCount != 1 || enf.AlertsRecorded != 0 {
		t.Errorf("resubmitted got replayed=%v warnings=%d recorded=%d, want true/1/0",
			enf.Replayed, enf.After.WarningCount, enf.AlertsRecorded)
	}

	repeated := outcome
	repeated.SubmissionID = "sub-10"
	repeated.Alerts = append(repeated.Alerts, &screening.Alert{Type: screening.AlertTypeContactLeak, Severity: screening.SeverityLow})
	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/screening/outcomes", repeated)
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("repeated alert type got %d %+v, want 400 VALIDATION_ERROR", rec.Code, env.Error)
	}

	outcome.ActorID = "ghost"
	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/screening/outcomes", outcome)
	if rec.Code != http.StatusNotFound || env.Error.Code != "ACTOR_NOT_FOUND" {
		t.Errorf("got %d %+v, want 404 ACTOR_NOT_FOUND", rec.Code, env.Error)
	}
}
