// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"fmt"
	"time"
)

// Tracker reads and updates actor sanction state.
type Tracker struct {
	store SanctionStore
	esc   EscalationRules
	now   func() time.Time
}

// NewTracker creates a tracker over store using the policy's escalation rules.
func NewTracker(store SanctionStore, policy *Policy) *Tracker {
	return &Tracker{
		store: store,
		esc:   policy.Escalation(),
		now:   time.Now,
	}
}

// GetStatus returns the actor's current sanction state.
func (t *Tracker) GetStatus(ctx context.Context, actorID string) (*SanctionState, error) {
	state, err := t.store.GetSanctionState(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("get sanction state: %w", err)
	}
	return state, nil
}

// ApplyVerdict records alerts against the actor and applies the requested block
// in a single atomic update.
//
// The escalation decision is re-run against the state read inside the update,
// and the stricter of that and the request is applied. An actor already
// blocked at commit time keeps its block: the alerts are counted and the
// result is marked Superseded.
//
// An outcome whose submission ID was already applied changes nothing and
// comes back Replayed with the recorded action.
func (t *Tracker) ApplyVerdict(ctx context.Context, outcome *Outcome) (*Enforcement, error) {
	requested := sanctionOf(outcome.ShouldBlock, outcome.IsPermanent, outcome.BlockDurationDays,
		"", t.esc.CriticalBlockDays)
	n := len(outcome.Alerts)

	var result Enforcement
	mutate := func(st *SanctionState) error {
		now := t.now()
		result = Enforcement{ActorID: outcome.ActorID, Before: st.Clone()}

		if prior, ok := st.appliedOutcome(outcome.SubmissionID); ok {
			result.Replayed = true
			result.Action = prior.Action
			return nil
		}
		defer func() {
			if outcome.SubmissionID != "" {
				st.rememberApplied(AppliedOutcome{
					SubmissionID: outcome.SubmissionID,
					Action:       result.Action,
					Alerts:       alertTypes(outcome.Alerts),
				})
			}
		}()

		if st.IsBlocked(now) {
			st.WarningCount += n
			result.Superseded = n > 0 || requested.block
			result.Action = ActionManualReview
			return nil
		}

		fresh := Decide(st, outcome.Alerts, t.esc)
		fs := sanctionOf(fresh.ShouldBlock, fresh.IsPermanent, fresh.BlockDurationDays,
			fresh.BlockReason, t.esc.CriticalBlockDays)

		effective := requested
		if fs.stricter(requested) {
			effective = fs
		} else if effective.block {
			effective.reason = "blocked by enforcement request"
			if fs.block && fs.permanent == effective.permanent {
				effective.reason = fs.reason
			}
		}

		st.WarningCount += n
		switch {
		case effective.permanent:
			st.IsBanned = true
			st.BlockReason = effective.reason
			result.Transitioned = true
		case effective.block:
			until := now.Add(time.Duration(effective.days) * 24 * time.Hour)
			st.BlockedUntil = &until
			st.BlockReason = effective.reason
			result.Transitioned = true
		}

		result.Action = effective.action()
		if outcome.Held && !effective.block {
			result.Action = ActionManualReview
		}
		return nil
	}

	after, err := t.store.UpdateSanctionState(ctx, outcome.ActorID, mutate)
	if err != nil {
		return nil, fmt.Errorf("update sanction state: %w", err)
	}

	result.After = after
	if !result.Replayed {
		result.AlertsRecorded = n
	}
	return &result, nil
}

func alertTypes(alerts []*Alert) []AlertType {
	types := make([]AlertType, 0, len(alerts))
	for _, a := range alerts {
		types = append(types, a.Type)
	}
	return types
}
