// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

// Flagged listing policies. A flagged listing raised alerts without crossing
// a block threshold.
const (
	ReviewPublish = "publish"
	ReviewHold    = "hold"
)

// ReviewConfig is the caller's policy for flagged listings.
type ReviewConfig struct {
	FlaggedListingPolicy string `koanf:"flagged_listing_policy" validate:"required,oneof=publish hold"`
}

// DefaultReviewConfig publishes flagged listings.
func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{FlaggedListingPolicy: ReviewPublish}
}

// Publishable reports whether the listing behind v may go live under this policy.
func (c ReviewConfig) Publishable(v *Verdict) bool {
	if !v.Allowed {
		return false
	}
	return v.Passed || c.FlaggedListingPolicy != ReviewHold
}

// PublishableAfter is Publishable once RecordOutcome has committed enf.
// Superseded outcomes are never publishable. A replayed outcome follows the
// action recorded the first time, since v may reflect the later state.
func (c ReviewConfig) PublishableAfter(v *Verdict, enf *Enforcement) bool {
	switch {
	case enf == nil:
		return c.Publishable(v)
	case enf.Replayed:
		return enf.Action == ActionAutoWarning
	case enf.Superseded:
		return false
	}
	return c.Publishable(v)
}

// OutcomeFor builds the outcome a caller records after applying this policy.
func (c ReviewConfig) OutcomeFor(v *Verdict) Outcome {
	return Outcome{
		EvaluationID:      v.EvaluationID,
		ActorID:           v.ActorID,
		SubmissionID:      v.SubmissionID,
		Alerts:            v.Alerts,
		ShouldBlock:       v.ShouldBlock,
		BlockDurationDays: v.BlockDurationDays,
		IsPermanent:       v.IsPermanent,
		Held:              v.Allowed && !v.Passed && c.FlaggedListingPolicy == ReviewHold,
	}
}
