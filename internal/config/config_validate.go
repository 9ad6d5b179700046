// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package config

import (
	"fmt"

	"github.com/tomtom215/listingguard/internal/logging"
	"github.com/tomtom215/listingguard/internal/validation"
)

// Validate checks struct tags on every section, then the rules that span
// fields or sections.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateSanctions(); err != nil {
		return err
	}

	if err := c.validateEvents(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	return c.Screening.Validate()
}

func (c *Config) validateSanctions() error {
	if c.Sanctions.Backend == SanctionsBadger && !c.Sanctions.InMemory && c.Sanctions.BadgerPath == "" {
		return fmt.Errorf("SANCTIONS_BADGER_PATH is required when SANCTIONS_BACKEND=badger")
	}
	if c.Sanctions.Backend == SanctionsMemory && c.Server.Environment == "production" {
		return fmt.Errorf("SANCTIONS_BACKEND=memory loses enforcement state on restart and is not allowed in production")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	ev := c.Events
	if ev.SubmittedTopic == ev.ScreenedTopic || ev.SubmittedTopic == ev.PoisonTopic || ev.ScreenedTopic == ev.PoisonTopic {
		return fmt.Errorf("events topics must be distinct, got submitted=%q screened=%q poison=%q",
			ev.SubmittedTopic, ev.ScreenedTopic, ev.PoisonTopic)
	}
	if ev.Transport != TransportNATS {
		return nil
	}
	if ev.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when EVENTS_TRANSPORT=nats")
	}
	if err := validateNATSURL(ev.NATSURL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Environment != "production" {
		return nil
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain '*' in production")
		}
	}
	if c.Server.RateLimitDisabled {
		return fmt.Errorf("DISABLE_RATE_LIMIT is not allowed in production")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic, disabled; got %q", c.Logging.Level)
	}
	return nil
}
