// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

// Command guardctl validates ListingGuard configuration, dry-runs screening
// fixtures and reads ledger statistics.
package main

import "github.com/tomtom215/listingguard/internal/cli"

func main() {
	cli.Execute()
}
