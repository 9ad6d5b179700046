// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"fmt"
	"math"
	"time"
)

// Block reasons produced by the aggregator.
const (
	ReasonBanned            = "account permanently banned"
	ReasonFraud             = "fraudulent activity detected"
	ReasonMultipleSevere    = "multiple severe violations"
	ReasonAccumulated       = "accumulated warnings"
	ReasonPermanentEscalate = "warning limit exceeded, account permanently banned"
)

// Precheck denies actors that are banned or inside a block window.
// It returns nil when extraction should proceed.
func Precheck(state *SanctionState, now time.Time) *Verdict {
	if state.IsBanned {
		return &Verdict{
			ActorID:        state.ActorID,
			Alerts:         []*Alert{},
			ShouldBlock:    true,
			BlockReason:    ReasonBanned,
			IsPermanent:    true,
			ShortCircuited: true,
		}
	}

	if state.BlockedUntil != nil && state.BlockedUntil.After(now) {
		remaining := int(math.Ceil(state.BlockedUntil.Sub(now).Hours() / 24))
		return &Verdict{
			ActorID:        state.ActorID,
			Alerts:         []*Alert{},
			ShouldBlock:    true,
			BlockReason:    fmt.Sprintf("account temporarily blocked, %d days remaining", remaining),
			ShortCircuited: true,
		}
	}

	return nil
}

// Decide aggregates alerts with the actor's warning count into a verdict.
//
// The warning thresholds compare against the count the actor will have once
// these alerts are recorded. They only apply when at least one alert fired,
// so a clean submission never blocks.
func Decide(state *SanctionState, alerts []*Alert, esc EscalationRules) Verdict {
	v := Verdict{
		ActorID: state.ActorID,
		Alerts:  alerts,
		Passed:  len(alerts) == 0,
	}
	if v.Alerts == nil {
		v.Alerts = []*Alert{}
	}

	var critical, high int
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritical:
			critical++
		case SeverityHigh:
			high++
		}
	}

	projected := state.WarningCount + len(alerts)

	switch {
	case critical > 0:
		v.ShouldBlock = true
		v.BlockReason = ReasonFraud
	case high >= 2:
		v.ShouldBlock = true
		v.BlockDurationDays = intPtr(esc.TempBlockDays)
		v.BlockReason = ReasonMultipleSevere
	case len(alerts) > 0 && projected >= esc.WarningsBeforeTempBlock:
		v.ShouldBlock = true
		v.BlockDurationDays = intPtr(esc.TempBlockDays)
		v.BlockReason = ReasonAccumulated
	}

	if len(alerts) > 0 && projected >= esc.WarningsBeforePermBlock {
		v.ShouldBlock = true
		v.IsPermanent = true
		v.BlockDurationDays = nil
		v.BlockReason = ReasonPermanentEscalate
	}

	v.Allowed = !v.ShouldBlock
	return v
}

// sanction is the enforcement part of a verdict, compared by strictness.
type sanction struct {
	block     bool
	permanent bool
	days      int
	reason    string
}

// sanctionOf resolves a block with no duration to criticalDays.
func sanctionOf(shouldBlock, permanent bool, days *int, reason string, criticalDays int) sanction {
	s := sanction{block: shouldBlock || permanent, permanent: permanent, reason: reason}
	if s.block && !s.permanent {
		s.days = criticalDays
		if days != nil {
			s.days = *days
		}
	}
	return s
}

// stricter reports whether s is a harsher sanction than o.
func (s sanction) stricter(o sanction) bool {
	switch {
	case s.permanent != o.permanent:
		return s.permanent
	case s.block != o.block:
		return s.block
	default:
		return s.days > o.days
	}
}

func (s sanction) action() ActionTaken {
	switch {
	case s.permanent:
		return ActionAutoBlockPermanent
	case s.block:
		return ActionAutoBlockTemp
	default:
		return ActionAutoWarning
	}
}

func intPtr(v int) *int {
	return &v
}
