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

// Extractor inspects one dimension of a submission and raises at most one alert.
// Implementations must not modify Input or call other extractors.
type Extractor interface {
	Type() AlertType
	Extract(ctx context.Context, in *Input) (*Alert, error)
}

// Input is the read-only view an extractor evaluates.
type Input struct {
	Submission *Submission
	Now        time.Time

	// History is the actor's earlier submissions, newest first.
	// HistoryErr is set instead when history could not be read.
	History    []HistoricalSubmission
	HistoryErr error
}

// history returns the records or an ErrHistoryUnavailable wrapping the read failure.
func (in *Input) history() ([]HistoricalSubmission, error) {
	if in.HistoryErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, in.HistoryErr)
	}
	return in.History, nil
}

// DefaultExtractors returns the six shipped extractors bound to policy.
func DefaultExtractors(policy *Policy) []Extractor {
	return []Extractor{
		NewVolumeExtractor(policy),
		NewDuplicateExtractor(policy),
		NewKeywordExtractor(policy),
		NewURLExtractor(policy),
		NewPriceExtractor(policy),
		NewContactExtractor(policy),
	}
}

func newAlert(t AlertType, sev Severity, description string, metadata map[string]interface{}) *Alert {
	return &Alert{
		Type:        t,
		Severity:    sev,
		Description: description,
		Metadata:    metadata,
	}
}
