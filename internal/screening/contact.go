// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"regexp"
	"sort"
)

// ContactExtractor flags attempts to take the conversation off the platform.
type ContactExtractor struct {
	phrases   []*regexp.Regexp
	phones    []*regexp.Regexp
	threshold int
}

// NewContactExtractor creates an external-contact-leak extractor.
func NewContactExtractor(policy *Policy) *ContactExtractor {
	return &ContactExtractor{
		phrases:   policy.phrases,
		phones:    policy.phones,
		threshold: policy.rules.Contact.PhoneCountThreshold,
	}
}

// Type returns the alert type.
func (e *ContactExtractor) Type() AlertType {
	return AlertTypeContactLeak
}

// Extract reports contact phrasing (MEDIUM) ahead of repeated phone numbers (LOW).
func (e *ContactExtractor) Extract(_ context.Context, in *Input) (*Alert, error) {
	content := in.Submission.Content

	for _, re := range e.phrases {
		if loc := re.FindStringIndex(content); loc != nil {
			return newAlert(AlertTypeContactLeak, SeverityMedium, "external contact request",
				map[string]interface{}{
					"pattern": re.String(),
					"match":   content[loc[0]:loc[1]],
				}), nil
		}
	}

	if count := countPhones(content, e.phones); count > e.threshold {
		return newAlert(AlertTypeContactLeak, SeverityLow, "repeated phone numbers",
			map[string]interface{}{
				"phoneCount": count,
				"threshold":  e.threshold,
			}), nil
	}

	return nil, nil
}

// countPhones counts phone-shaped spans. Spans found by different patterns
// that overlap are the same number and count once.
func countPhones(content string, patterns []*regexp.Regexp) int {
	var spans [][]int
	for _, re := range patterns {
		spans = append(spans, re.FindAllStringIndex(content, -1)...)
	}
	if len(spans) == 0 {
		return 0
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	count := 1
	end := spans[0][1]
	for _, s := range spans[1:] {
		if s[0] < end {
			if s[1] > end {
				end = s[1]
			}
			continue
		}
		count++
		end = s[1]
	}
	return count
}
