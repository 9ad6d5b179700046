// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package main

import (
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/listingguard/internal/config"
)

func TestNewEventTransport_GoChannel(t *testing.T) {
	for _, name := range []string{config.TransportGoChannel, ""} {
		tr, err := newEventTransport(&config.EventsConfig{Transport: name}, watermill.NopLogger{})
		if err != nil {
			t.Fatalf("newEventTransport(%q) error = %v", name, err)
		}
		if tr.Subscriber == nil || tr.Publisher == nil {
			t.Errorf("newEventTransport(%q) returned an incomplete transport", name)
		}
		if err := tr.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}
}

func TestNewEventTransport_Unknown(t *testing.T) {
	if _, err := newEventTransport(&config.EventsConfig{Transport: "kafka"}, watermill.NopLogger{}); err == nil {
		t.Error("newEventTransport(kafka) succeeded")
	}
}

func TestRouterConfig(t *testing.T) {
	got := routerConfig(&config.EventsConfig{
		SubmittedTopic:       "in",
		ScreenedTopic:        "out",
		PoisonTopic:          "dead",
		RetryCount:           7,
		RetryInitialInterval: 250 * time.Millisecond,
		CloseTimeout:         5 * time.Second,
	})

	if got.SubmittedTopic != "in" || got.ScreenedTopic != "out" || got.PoisonTopic != "dead" {
		t.Errorf("topics = %s/%s/%s, want in/out/dead", got.SubmittedTopic, got.ScreenedTopic, got.PoisonTopic)
	}
	if got.RetryMaxRetries != 7 {
		t.Errorf("RetryMaxRetries = %d, want 7", got.RetryMaxRetries)
	}
	if got.RetryInitialInterval != 250*time.Millisecond {
		t.Errorf("RetryInitialInterval = %v, want 250ms", got.RetryInitialInterval)
	}
	if got.CloseTimeout != 5*time.Second {
		t.Errorf("CloseTimeout = %v, want 5s", got.CloseTimeout)
	}
	if got.RetryMultiplier == 0 || got.RetryMaxInterval == 0 {
		t.Error("backoff defaults were not kept")
	}
}
