// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

/*
Package main is the entry point for the ListingGuard screening server.

ListingGuard screens marketplace listing submissions before publication. Each
submission runs through the extractors (keyword, duplicate, volume, price,
URL and contact), the decision aggregator turns the resulting alerts into a
verdict, and the enforcement tracker escalates the actor's sanction state.
Every alert is appended to the alert ledger.

# Startup Order

 1. Configuration: defaults, config.yaml and environment variables (Koanf v2)
 2. Logging: zerolog, JSON or console output
 3. DuckDB: alert ledger and submission history, plus sanctions by default
 4. Sanction store: DuckDB, BadgerDB or in-memory, per SANCTIONS_BACKEND
 5. Screening engine: compiled rules, breaker-guarded history
 6. HTTP API: chi router with rate limiting, CORS and Prometheus metrics
 7. Event pipeline (optional): watermill router over gochannel or NATS
 8. Supervisor tree: suture restarts failed services with backoff

# Build Tags

	go build ./cmd/server                 # gochannel event transport only
	go build -tags nats ./cmd/server      # adds NATS JetStream transport

Setting EVENTS_TRANSPORT=nats without the nats tag fails at startup.

# Endpoints

	GET  /api/v1/health/live
	GET  /api/v1/health/ready
	POST /api/v1/screening/evaluate
	POST /api/v1/screening/outcomes
	GET  /api/v1/screening/statistics
	GET  /api/v1/screening/actors/{actorID}/status
	POST /api/v1/screening/actors
	GET  /api/v1/screening/alerts
	POST /api/v1/screening/alerts/{alertID}/resolve
	GET  /metrics

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server (draining in-flight requests), the event router and the Badger GC
loop, then the stores are closed.

# Example

	export DUCKDB_PATH=/var/lib/listingguard/lg.duckdb
	export SANCTIONS_BACKEND=badger
	export SANCTIONS_BADGER_PATH=/var/lib/listingguard/sanctions
	export EVENTS_ENABLED=true
	./listingguard
*/
package main
