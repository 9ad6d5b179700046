// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

/*
Package api exposes the screening engine over HTTP using the Chi router.

# Endpoints

All screening routes live under /api/v1/screening:

	POST /evaluate                 screen a submission, returns the verdict and publishability
	POST /outcomes                 record an applied verdict (sanctions + ledger)
	GET  /statistics               ledger aggregates and blocked actor count
	GET  /actors/{actorID}/status  current sanction state
	POST /actors                   register an actor (memory and dev backends)
	GET  /alerts                   list ledger rows (actor_id, type, severity, resolved, limit, offset)
	POST /alerts/{id}/resolve      mark an alert resolved

Operational routes:

	GET /api/v1/health/live
	GET /api/v1/health/ready
	GET /metrics

# Responses

Every JSON body has the shape

	{"status": "success"|"error", "data": ..., "metadata": {"timestamp": ...}, "error": {"code", "message"}}

Error codes: VALIDATION_ERROR, INVALID_JSON, ACTOR_NOT_FOUND, ACTOR_EXISTS,
ALERT_NOT_FOUND, ENFORCEMENT_NOT_RECORDED, HISTORY_UNAVAILABLE, SCREENING_ERROR,
RATE_LIMITED,
INTERNAL_ERROR.

An evaluation that is denied because the actor is unknown still returns the
deny verdict alongside the error code so callers never publish by default.
*/
package api
