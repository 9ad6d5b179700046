// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package main

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/listingguard/internal/config"
	"github.com/tomtom215/listingguard/internal/events"
)

// eventTransport is the subscriber/publisher pair the event router runs on.
type eventTransport struct {
	Subscriber message.Subscriber
	Publisher  message.Publisher
	closers    []func() error
}

// Close closes the subscriber and publisher.
func (t *eventTransport) Close() error {
	var errs []error
	for _, c := range t.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newEventTransport builds the transport selected by EVENTS_TRANSPORT.
func newEventTransport(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*eventTransport, error) {
	switch cfg.Transport {
	case config.TransportNATS:
		return newNATSTransport(cfg, logger)
	case config.TransportGoChannel, "":
		pubsub := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, logger)
		return &eventTransport{
			Subscriber: pubsub,
			Publisher:  pubsub,
			closers:    []func() error{pubsub.Close},
		}, nil
	default:
		return nil, fmt.Errorf("unknown event transport %q", cfg.Transport)
	}
}

// routerConfig maps the events section onto the router settings.
func routerConfig(cfg *config.EventsConfig) events.RouterConfig {
	rc := events.DefaultRouterConfig()
	rc.SubmittedTopic = cfg.SubmittedTopic
	rc.ScreenedTopic = cfg.ScreenedTopic
	rc.PoisonTopic = cfg.PoisonTopic
	rc.CloseTimeout = cfg.CloseTimeout
	rc.RetryMaxRetries = cfg.RetryCount
	rc.RetryInitialInterval = cfg.RetryInitialInterval
	return rc
}
