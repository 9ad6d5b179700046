// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

// Package screening screens marketplace listings before publication and
// escalates sanctions against actors who keep violating policy.
//
// Screening Flow:
//
//	Submission -> Precheck -> Extractors (fan-out) -> Decide -> Verdict
//	                 |                                            |
//	                 v                                            v
//	          SanctionStore                    RecordOutcome -> Tracker + Ledger
//
// Extractors:
//   - Volume: submissions per 24h/7d/30d against configured limits
//   - Duplicate-Content: Jaccard similarity with the actor's recent listings
//   - Commercial-Keyword: distinct wholesale/solicitation terms
//   - Suspicious-URL: messaging links, shorteners, competitor marketplaces
//   - Price-Anomaly: below the category floor or above the global ceiling
//   - External-Contact-Leak: off-platform contact phrasing or repeated phone numbers
//
// Escalation:
// Each recorded alert adds one warning. Crossing the temporary threshold
// blocks the actor for a fixed number of days; crossing the permanent
// threshold bans the actor for good. Thresholds compare against the count
// the actor will have once the current alerts are recorded.
//
// Concurrency:
// Sanction updates go through SanctionStore.UpdateSanctionState, which is
// atomic per actor. The tracker re-runs the escalation decision inside the
// update so concurrent evaluations cannot both miss a threshold.
package screening
