// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// RouterConfig holds configuration for the screening router.
type RouterConfig struct {
	SubmittedTopic string
	ScreenedTopic  string
	PoisonTopic    string

	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		SubmittedTopic:       "listing.submitted",
		ScreenedTopic:        "listing.screened",
		PoisonTopic:          "listing.poison",
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		RetryMultiplier:      2.0,
	}
}

// Router wires a Processor into a Watermill router.
type Router struct {
	router *message.Router
	config RouterConfig
}

// NewRouter creates the router and registers the screening handler.
//
// Middleware is added outermost first: Recoverer, Retry, PoisonQueue. The
// poison queue sits inside Retry so malformed payloads are parked on the
// first attempt while every other error reaches Retry untouched.
func NewRouter(
	cfg RouterConfig,
	proc *Processor,
	subscriber message.Subscriber,
	publisher message.Publisher,
	logger watermill.LoggerAdapter,
) (*Router, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg.SubmittedTopic == "" || cfg.ScreenedTopic == "" || cfg.PoisonTopic == "" {
		return nil, errors.New("submitted, screened and poison topics are required")
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	poisonQueue, err := middleware.PoisonQueueWithFilter(publisher, cfg.PoisonTopic, func(err error) bool {
		return errors.Is(err, ErrMalformedEvent)
	})
	if err != nil {
		return nil, fmt.Errorf("create poison queue middleware: %w", err)
	}
	wmRouter.AddMiddleware(poisonQueue)

	wmRouter.AddHandler(
		"listing_screener",
		cfg.SubmittedTopic,
		subscriber,
		cfg.ScreenedTopic,
		publisher,
		proc.Handle,
	)

	return &Router{router: wmRouter, config: cfg}, nil
}

// Run starts the router and blocks until ctx is canceled or Close is called.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel that closes when the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close gracefully stops the router.
// Waits for in-flight messages to complete up to CloseTimeout.
func (r *Router) Close() error {
	return r.router.Close()
}
