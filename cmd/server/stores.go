// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/listingguard/internal/config"
	"github.com/tomtom215/listingguard/internal/database"
	"github.com/tomtom215/listingguard/internal/logging"
	"github.com/tomtom215/listingguard/internal/sanctions"
	"github.com/tomtom215/listingguard/internal/screening"
)

// sanctionBackend is what every sanction store offers the server.
type sanctionBackend interface {
	screening.SanctionStore
	screening.ActorRegistry
}

// stores bundles the persistence layer.
type stores struct {
	db        *sql.DB
	ledger    *screening.DuckDBStore
	sanctions sanctionBackend
	badger    *sanctions.BadgerStore // nil unless the badger backend is selected
}

// openStores opens DuckDB and the configured sanction store.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	db, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	ledger := screening.NewDuckDBStore(db)
	if err := ledger.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize screening schema: %w", err)
	}

	s := &stores{db: db, ledger: ledger}
	switch cfg.Sanctions.Backend {
	case config.SanctionsBadger:
		bs, err := sanctions.Open(sanctions.Config{
			Path:       cfg.Sanctions.BadgerPath,
			InMemory:   cfg.Sanctions.InMemory,
			SyncWrites: cfg.Sanctions.SyncWrites,
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		s.sanctions = bs
		s.badger = bs
	case config.SanctionsMemory:
		logging.Warn().Msg("Sanction state is in memory and will be lost on restart (SANCTIONS_BACKEND=memory)")
		s.sanctions = screening.NewMemoryStore()
	default:
		s.sanctions = ledger
	}

	logging.Info().Str("backend", cfg.Sanctions.Backend).Msg("Sanction store ready")
	return s, nil
}

// Ping checks DuckDB and, when separate, the sanction store.
func (s *stores) Ping(ctx context.Context) error {
	if err := s.ledger.Ping(ctx); err != nil {
		return fmt.Errorf("duckdb: %w", err)
	}
	if s.badger != nil {
		if err := s.badger.Ping(ctx); err != nil {
			return fmt.Errorf("badger: %w", err)
		}
	}
	return nil
}

func (s *stores) Close() error {
	var errs []error
	if s.badger != nil {
		if err := s.badger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close badger: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close duckdb: %w", err))
	}
	return errors.Join(errs...)
}
