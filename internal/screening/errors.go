// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import "errors"

var (
	// ErrActorNotFound is returned by stores when no sanction row exists.
	ErrActorNotFound = errors.New("actor not found")

	// ErrHistoryUnavailable marks an extractor skipped because history could not be read.
	ErrHistoryUnavailable = errors.New("submission history unavailable")

	// ErrEnforcementNotRecorded means a decided outcome was not fully persisted.
	ErrEnforcementNotRecorded = errors.New("enforcement not recorded")

	// ErrConcurrentUpdate is returned when an optimistic update loses too many races.
	ErrConcurrentUpdate = errors.New("concurrent sanction update")

	// ErrInvalidRules wraps every screening configuration error.
	ErrInvalidRules = errors.New("invalid screening rules")

	// ErrAlertNotFound is returned by ResolveAlert for an unknown id.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrActorExists is returned by RegisterActor for a known actor.
	ErrActorExists = errors.New("actor already registered")
)
