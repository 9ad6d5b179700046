// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"fmt"

	"github.com/tomtom215/listingguard/internal/matcher"
	"github.com/tomtom215/listingguard/internal/textnorm"
)

// KeywordExtractor counts distinct commercial terms in the title and body.
type KeywordExtractor struct {
	automaton *matcher.Automaton
	medium    int
	high      int
}

// NewKeywordExtractor creates a commercial-keyword extractor.
func NewKeywordExtractor(policy *Policy) *KeywordExtractor {
	return &KeywordExtractor{
		automaton: policy.keywords,
		medium:    policy.rules.Keywords.MediumMatches,
		high:      policy.rules.Keywords.HighMatches,
	}
}

// Type returns the alert type.
func (e *KeywordExtractor) Type() AlertType {
	return AlertTypeCommercialKeywords
}

// Extract matches keywords as substrings of the normalized text.
func (e *KeywordExtractor) Extract(_ context.Context, in *Input) (*Alert, error) {
	text := textnorm.Normalize(in.Submission.Title + " " + in.Submission.Content)
	matched := e.automaton.Distinct(text)

	var sev Severity
	switch n := len(matched); {
	case n >= e.high:
		sev = SeverityHigh
	case n >= e.medium:
		sev = SeverityMedium
	default:
		return nil, nil
	}

	return newAlert(AlertTypeCommercialKeywords, sev,
		fmt.Sprintf("%d commercial keywords found", len(matched)),
		map[string]interface{}{
			"matchCount": len(matched),
			"keywords":   matched,
		}), nil
}
