// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

//go:build !nats

package main

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/listingguard/internal/config"
)

// newNATSTransport fails in builds without the nats tag.
func newNATSTransport(_ *config.EventsConfig, _ watermill.LoggerAdapter) (*eventTransport, error) {
	return nil, errors.New("EVENTS_TRANSPORT=nats but NATS support not compiled (build with -tags nats)")
}
