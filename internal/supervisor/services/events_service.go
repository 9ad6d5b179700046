// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package services

import (
	"context"
	"errors"
	"fmt"
)

// EventRouter is satisfied by *events.Router.
type EventRouter interface {
	Run(ctx context.Context) error
}

// EventRouterService runs the submission event router.
//
// A Watermill router cannot be restarted after Run returns, so the service
// takes a factory and builds a fresh router on every (re)start.
type EventRouterService struct {
	newRouter func() (EventRouter, error)
	name      string
}

// NewEventRouterService creates the service.
func NewEventRouterService(newRouter func() (EventRouter, error)) *EventRouterService {
	return &EventRouterService{
		newRouter: newRouter,
		name:      "event-router",
	}
}

// Serve implements suture.Service.
func (s *EventRouterService) Serve(ctx context.Context) error {
	router, err := s.newRouter()
	if err != nil {
		return fmt.Errorf("build event router: %w", err)
	}

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("event router stopped: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	// Run returned without cancellation: the router was closed underneath us.
	return errors.New("event router exited unexpectedly")
}

// String identifies the service in supervisor logs.
func (s *EventRouterService) String() string {
	return s.name
}
