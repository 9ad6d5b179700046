// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package fixture

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/listingguard/internal/screening"
)

// Result is the outcome of one dry run.
type Result struct {
	Name        string             `json:"name,omitempty"`
	Verdict     *screening.Verdict `json:"verdict"`
	Publishable bool               `json:"publishable"`
	Failures    []string           `json:"failures,omitempty"`
}

// OK reports whether every expectation held.
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

// Run evaluates fx against policy over a private in-memory store.
func Run(ctx context.Context, policy *screening.Policy, review screening.ReviewConfig, fx *Fixture) (*Result, error) {
	store := screening.NewMemoryStore()
	if _, err := store.RegisterActor(ctx, fx.ActorID); err != nil {
		return nil, fmt.Errorf("seed actor: %w", err)
	}
	store.PutSanctionState(&screening.SanctionState{
		ActorID:      fx.ActorID,
		WarningCount: fx.State.WarningCount,
		BlockedUntil: fx.State.BlockedUntil,
		IsBanned:     fx.State.IsBanned,
		BlockReason:  fx.State.BlockReason,
		UpdatedAt:    fx.Now,
	})
	for _, p := range fx.History {
		err := store.RecordSubmission(ctx, fx.ActorID, "", screening.HistoricalSubmission{
			Title:     p.Title,
			Content:   p.Content,
			CreatedAt: fx.Now.Add(-p.Age),
		})
		if err != nil {
			return nil, fmt.Errorf("seed history: %w", err)
		}
	}

	now := fx.Now
	engine := screening.NewEngine(policy, store, store, store, screening.DefaultEngineConfig(),
		screening.WithClock(func() time.Time { return now }))

	v, err := engine.EvaluateSubmission(ctx, fx.ActorID, fx.Submission.toScreening())
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	res := &Result{
		Name:        fx.Name,
		Verdict:     v,
		Publishable: review.Publishable(v),
	}
	if fx.Expect != nil {
		res.Failures = fx.Expect.check(res)
	}
	return res, nil
}

func (e *Expectation) check(r *Result) []string {
	var failures []string
	v := r.Verdict
	checkBool := func(name string, want *bool, got bool) {
		if want != nil && *want != got {
			failures = append(failures, fmt.Sprintf("%s: got %v, want %v", name, got, *want))
		}
	}

	checkBool("allowed", e.Allowed, v.Allowed)
	checkBool("passed", e.Passed, v.Passed)
	checkBool("should_block", e.ShouldBlock, v.ShouldBlock)
	checkBool("permanent", e.Permanent, v.IsPermanent)
	checkBool("publishable", e.Publishable, r.Publishable)

	if e.BlockDays != nil {
		switch {
		case v.BlockDurationDays == nil:
			failures = append(failures, fmt.Sprintf("block_days: got none, want %d", *e.BlockDays))
		case *v.BlockDurationDays != *e.BlockDays:
			failures = append(failures, fmt.Sprintf("block_days: got %d, want %d", *v.BlockDurationDays, *e.BlockDays))
		}
	}

	if e.Alerts != nil {
		got := alertTypes(v)
		want := slices.Clone(e.Alerts)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			failures = append(failures, fmt.Sprintf("alerts: got %v, want %v", got, want))
		}
	}
	return failures
}

func alertTypes(v *screening.Verdict) []screening.AlertType {
	types := make([]screening.AlertType, 0, len(v.Alerts))
	for _, a := range v.Alerts {
		types = append(types, a.Type)
	}
	slices.Sort(types)
	return types
}

// FormatText renders a result for a terminal.
func FormatText(r *Result) string {
	var b strings.Builder
	v := r.Verdict

	if r.Name != "" {
		fmt.Fprintf(&b, "Fixture: %s\n", r.Name)
	}
	decision := "PASSED"
	switch {
	case v.ShortCircuited:
		decision = "DENIED (actor already blocked)"
	case v.IsPermanent:
		decision = "BLOCK (permanent)"
	case v.ShouldBlock && v.BlockDurationDays != nil:
		decision = fmt.Sprintf("BLOCK (%d days)", *v.BlockDurationDays)
	case !v.Passed:
		decision = "FLAGGED"
	}
	fmt.Fprintf(&b, "Decision:    %s\n", decision)
	fmt.Fprintf(&b, "Publishable: %v\n", r.Publishable)
	if v.BlockReason != "" {
		fmt.Fprintf(&b, "Reason:      %s\n", v.BlockReason)
	}

	if len(v.Alerts) > 0 {
		b.WriteString("\nAlerts:\n")
		for _, a := range v.Alerts {
			fmt.Fprintf(&b, "  %-8s %-20s %s\n", a.Severity, a.Type, a.Description)
		}
	}
	if len(v.Degraded) > 0 {
		fmt.Fprintf(&b, "\nDegraded extractors: %v\n", v.Degraded)
	}

	if len(r.Failures) > 0 {
		b.WriteString("\nExpectation failures:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	return b.String()
}

// FormatJSON renders a result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(out), nil
}
