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

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
)

// VolumeExtractor flags actors posting above the daily, weekly or monthly limit.
type VolumeExtractor struct {
	rules VolumeRules
}

// NewVolumeExtractor creates a volume extractor.
func NewVolumeExtractor(policy *Policy) *VolumeExtractor {
	return &VolumeExtractor{rules: policy.rules.Volume}
}

// Type returns the alert type.
func (e *VolumeExtractor) Type() AlertType {
	return AlertTypeVolume
}

// Extract counts prior submissions per window. Only the first window that
// reaches its limit fires, checked day, week, then month.
func (e *VolumeExtractor) Extract(_ context.Context, in *Input) (*Alert, error) {
	history, err := in.history()
	if err != nil {
		return nil, err
	}

	var daily, weekly, monthly int
	for _, h := range history {
		age := in.Now.Sub(h.CreatedAt)
		if age < 0 || age >= month {
			continue
		}
		monthly++
		if age < week {
			weekly++
		}
		if age < day {
			daily++
		}
	}

	tiers := []struct {
		window   string
		count    int
		limit    int
		severity Severity
	}{
		{"24h", daily, e.rules.DailyLimit, SeverityHigh},
		{"7d", weekly, e.rules.WeeklyLimit, SeverityMedium},
		{"30d", monthly, e.rules.MonthlyLimit, SeverityLow},
	}

	for _, tier := range tiers {
		if tier.count < tier.limit {
			continue
		}
		return newAlert(AlertTypeVolume, tier.severity,
			fmt.Sprintf("%d submissions in the last %s (limit %d)", tier.count, tier.window, tier.limit),
			map[string]interface{}{
				"dailyCount":   daily,
				"weeklyCount":  weekly,
				"monthlyCount": monthly,
				"window":       tier.window,
				"limit":        tier.limit,
			}), nil
	}

	return nil, nil
}
