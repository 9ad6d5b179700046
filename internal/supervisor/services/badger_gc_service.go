// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/listingguard/internal/logging"
)

// ValueLogGCer is satisfied by *badger.DB and *sanctions.BadgerStore.
type ValueLogGCer interface {
	RunValueLogGC(discardRatio float64) error
}

// BadgerGCService reclaims value-log space in the sanctions store.
// Sanction rows are rewritten on every outcome, so stale versions pile up.
type BadgerGCService struct {
	db           ValueLogGCer
	interval     time.Duration
	discardRatio float64
	name         string
}

// NewBadgerGCService creates the service. Zero values mean every 5 minutes
// at a 0.5 discard ratio.
func NewBadgerGCService(db ValueLogGCer, interval time.Duration, discardRatio float64) *BadgerGCService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}
	return &BadgerGCService{
		db:           db,
		interval:     interval,
		discardRatio: discardRatio,
		name:         "badger-gc",
	}
}

// Serve implements suture.Service.
func (s *BadgerGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.collect(ctx); err != nil {
				return err
			}
		}
	}
}

// collect runs GC until badger reports nothing left to rewrite.
func (s *BadgerGCService) collect(ctx context.Context) error {
	rewrites := 0
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(s.discardRatio)
		switch {
		case err == nil:
			rewrites++
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
			if rewrites > 0 {
				logging.Debug().Int("rewrites", rewrites).Msg("sanctions value log compacted")
			}
			return nil
		default:
			return fmt.Errorf("badger value log gc: %w", err)
		}
	}
	return nil
}

// String identifies the service in supervisor logs.
func (s *BadgerGCService) String() string {
	return s.name
}
