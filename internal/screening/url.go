// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"fmt"
)

// URLExtractor flags messaging links, shorteners and competitor marketplaces.
type URLExtractor struct {
	patterns []namedRegexp
}

// NewURLExtractor creates a suspicious-URL extractor.
func NewURLExtractor(policy *Policy) *URLExtractor {
	return &URLExtractor{patterns: policy.urls}
}

// Type returns the alert type.
func (e *URLExtractor) Type() AlertType {
	return AlertTypeSuspiciousURL
}

// Extract counts distinct patterns matching the body or the declared external URL.
func (e *URLExtractor) Extract(_ context.Context, in *Input) (*Alert, error) {
	targets := []string{in.Submission.Content}
	if u := in.Submission.Metadata.ExternalURL; u != "" {
		targets = append(targets, u)
	}

	var matched []string
	for _, p := range e.patterns {
		for _, text := range targets {
			if p.re.MatchString(text) {
				matched = append(matched, p.name)
				break
			}
		}
	}

	var sev Severity
	switch {
	case len(matched) > 1:
		sev = SeverityHigh
	case len(matched) == 1:
		sev = SeverityMedium
	default:
		return nil, nil
	}

	return newAlert(AlertTypeSuspiciousURL, sev,
		fmt.Sprintf("suspicious links found (%d patterns)", len(matched)),
		map[string]interface{}{
			"patterns": matched,
		}), nil
}
