// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

/*
Package config loads ListingGuard configuration with Koanf v2.

# Configuration Sources

Sources are layered, later ones winning:
  - Built-in defaults (defaultConfig)
  - Optional YAML file: $CONFIG_PATH, ./config.yaml, ./config.yml,
    /etc/listingguard/config.yaml
  - Environment variables mapped by envTransformFunc

Unmapped environment variables are ignored. List-valued screening rules
(keywords, URL patterns, category floors, contact phrases) only come from the
file; scalar thresholds may also be set from the environment.

# Sections

  - server: HTTP listener, timeouts, rate limiting, CORS
  - database: DuckDB file backing the ledger and submission history
  - sanctions: sanction store backend (duckdb, badger or memory)
  - history: circuit breaker around history reads
  - engine: enforcement write retries
  - review: flagged listing policy (publish or hold)
  - events: watermill router topics and retry settings
  - logging: zerolog level and format
  - screening: extractor thresholds and escalation rules

# Example

	screening:
	  volume:
	    daily_limit: 5
	  keywords:
	    terms: ["wholesale", "bulk order"]
	    medium_matches: 2
	    high_matches: 3
	  history_unavailable_policy: deny
	review:
	  flagged_listing_policy: hold

# Validation

Validate runs the go-playground/validator tags on every section, then the
cross-field checks in screening.Rules.Validate. Any error aborts startup.

# Thread Safety

Config is immutable after loading. WatchConfigFile lets callers reload and
swap a new Config under their own lock.
*/
package config
