// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import "context"

// PriceExtractor flags prices below the category floor or above the global ceiling.
type PriceExtractor struct {
	policy  *Policy
	ceiling float64
}

// NewPriceExtractor creates a price-anomaly extractor.
func NewPriceExtractor(policy *Policy) *PriceExtractor {
	return &PriceExtractor{policy: policy, ceiling: policy.rules.Price.Ceiling}
}

// Type returns the alert type.
func (e *PriceExtractor) Type() AlertType {
	return AlertTypePriceAnomaly
}

// Extract checks the low-price rule first; at most one alert is returned.
func (e *PriceExtractor) Extract(_ context.Context, in *Input) (*Alert, error) {
	md := in.Submission.Metadata
	if md.Price == nil {
		return nil, nil
	}
	price := *md.Price

	if floor, ok := e.policy.floorFor(md.Category); ok && price > 0 && price < floor {
		return newAlert(AlertTypePriceAnomaly, SeverityMedium, "suspiciously low price for category",
			map[string]interface{}{
				"price":    price,
				"category": md.Category,
				"floor":    floor,
			}), nil
	}

	if price > e.ceiling {
		return newAlert(AlertTypePriceAnomaly, SeverityLow, "unusually high price",
			map[string]interface{}{
				"price":   price,
				"ceiling": e.ceiling,
			}), nil
	}

	return nil, nil
}
