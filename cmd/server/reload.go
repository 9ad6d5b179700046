// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package main

import (
	"github.com/tomtom215/listingguard/internal/config"
	"github.com/tomtom215/listingguard/internal/logging"
)

// reloadLogging re-reads the config file and applies its logging section.
// Other sections need a restart.
func reloadLogging(path string) error {
	next, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	logging.Init(next.Logging.LoggingInit())
	logging.Info().
		Str("path", path).
		Str("level", next.Logging.Level).
		Msg("Configuration file changed, logging settings reloaded")
	return nil
}

// watchConfig reloads logging whenever the config file changes.
func watchConfig(path string) {
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		if err := reloadLogging(path); err != nil {
			logging.Error().Err(err).Str("path", path).Msg("Config reload failed, keeping previous settings")
		}
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
		return
	}
	logging.Info().Str("path", path).Msg("Watching config file for logging changes")
}
