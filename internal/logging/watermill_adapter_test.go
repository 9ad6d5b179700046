// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestWatermillLogger(t *testing.T) {
	var buf bytes.Buffer
	var l watermill.LoggerAdapter = NewWatermillLoggerWithLogger(zerolog.New(&buf))

	l = l.With(watermill.LogFields{"topic": "listing.submitted"})
	l.Error("handler failed", errors.New("boom"), watermill.LogFields{"message_uuid": "m-1"})

	out := buf.String()
	for _, want := range []string{`"topic":"listing.submitted"`, `"message_uuid":"m-1"`, `"error":"boom"`, "handler failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
