// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"

	"github.com/tomtom215/listingguard/internal/textnorm"
)

// DuplicateExtractor flags listings that repeat one of the actor's recent listings.
type DuplicateExtractor struct {
	rules DuplicateRules
}

// NewDuplicateExtractor creates a duplicate-content extractor.
func NewDuplicateExtractor(policy *Policy) *DuplicateExtractor {
	return &DuplicateExtractor{rules: policy.rules.Duplicate}
}

// Type returns the alert type.
func (e *DuplicateExtractor) Type() AlertType {
	return AlertTypeDuplicateContent
}

// Extract compares against each prior item in the window, newest first, and
// reports the first one that crosses either threshold.
func (e *DuplicateExtractor) Extract(ctx context.Context, in *Input) (*Alert, error) {
	history, err := in.history()
	if err != nil {
		return nil, err
	}

	title := textnorm.Normalize(in.Submission.Title)
	content := textnorm.Normalize(in.Submission.Content)
	cutoff := in.Now.Add(-e.rules.Window)

	for i := range history {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prior := &history[i]
		if prior.CreatedAt.Before(cutoff) {
			continue
		}

		titleSim := textnorm.Jaccard(title, textnorm.Normalize(prior.Title))
		if titleSim > e.rules.TitleOnlyThreshold {
			return newAlert(AlertTypeDuplicateContent, SeverityMedium, "near-identical title",
				duplicateMetadata(prior, titleSim, -1)), nil
		}
		if titleSim <= e.rules.TitleThreshold {
			continue
		}

		contentSim := textnorm.Jaccard(content, textnorm.Normalize(prior.Content))
		if contentSim > e.rules.ContentThreshold {
			return newAlert(AlertTypeDuplicateContent, SeverityHigh, "highly similar content",
				duplicateMetadata(prior, titleSim, contentSim)), nil
		}
	}

	return nil, nil
}

// duplicateMetadata omits contentSimilarity when it was not computed (negative).
func duplicateMetadata(prior *HistoricalSubmission, titleSim, contentSim float64) map[string]interface{} {
	md := map[string]interface{}{
		"titleSimilarity": titleSim,
		"matchedTitle":    prior.Title,
		"matchedAt":       prior.CreatedAt,
	}
	if contentSim >= 0 {
		md["contentSimilarity"] = contentSim
	}
	return md
}
