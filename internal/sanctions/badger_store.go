// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

// Package sanctions provides a BadgerDB-backed sanction store for
// deployments that keep enforcement state on local disk, separate from the
// DuckDB alert ledger.
package sanctions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/listingguard/internal/logging"
	"github.com/tomtom215/listingguard/internal/metrics"
	"github.com/tomtom215/listingguard/internal/screening"
)

const (
	sanctionKeyPrefix = "sanction:"

	// maxConflictRetries bounds retries of a transaction that lost to a
	// concurrent writer of the same key.
	maxConflictRetries = 50
)

// Config configures the Badger database.
type Config struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// BadgerStore implements screening.SanctionStore and screening.ActorRegistry.
type BadgerStore struct {
	db *badger.DB
}

// Open opens (or creates) the Badger database described by cfg.
func Open(cfg Config) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open sanctions badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// RunValueLogGC runs one value-log GC pass.
func (s *BadgerStore) RunValueLogGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// Ping reports whether the database is still open.
func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("sanctions store closed")
	}
	return nil
}

func sanctionKey(actorID string) []byte {
	return []byte(sanctionKeyPrefix + actorID)
}

func readState(txn *badger.Txn, actorID string) (*screening.SanctionState, error) {
	item, err := txn.Get(sanctionKey(actorID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, screening.ErrActorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sanction state: %w", err)
	}

	var st screening.SanctionState
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	}); err != nil {
		return nil, fmt.Errorf("decode sanction state: %w", err)
	}
	return &st, nil
}

func writeState(txn *badger.Txn, st *screening.SanctionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal sanction state: %w", err)
	}
	if err := txn.Set(sanctionKey(st.ActorID), data); err != nil {
		return fmt.Errorf("set sanction state: %w", err)
	}
	return nil
}

// RegisterActor creates a clean sanction record.
func (s *BadgerStore) RegisterActor(ctx context.Context, actorID string) (*screening.SanctionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st := &screening.SanctionState{ActorID: actorID, UpdatedAt: time.Now().UTC()}
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := readState(txn, actorID)
		switch {
		case err == nil:
			return screening.ErrActorExists
		case !errors.Is(err, screening.ErrActorNotFound):
			return err
		}
		return writeState(txn, st)
	})
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// GetSanctionState returns the actor's state or screening.ErrActorNotFound.
func (s *BadgerStore) GetSanctionState(ctx context.Context, actorID string) (*screening.SanctionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var st *screening.SanctionState
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		st, err = readState(txn, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateSanctionState runs read, mutate and write in one Badger transaction.
// Badger's conflict detection aborts the commit when another transaction
// wrote the key first; the whole transaction is then re-run on fresh state.
func (s *BadgerStore) UpdateSanctionState(ctx context.Context, actorID string, mutate func(*screening.SanctionState) error) (*screening.SanctionState, error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next *screening.SanctionState
		err := s.db.Update(func(txn *badger.Txn) error {
			current, err := readState(txn, actorID)
			if err != nil {
				return err
			}
			next = current.Clone()
			if err := mutate(next); err != nil {
				return err
			}
			next.ActorID = actorID
			next.Version = current.Version + 1
			next.UpdatedAt = time.Now().UTC()
			return writeState(txn, next)
		})
		if errors.Is(err, badger.ErrConflict) {
			metrics.SanctionUpdateConflicts.WithLabelValues("badger").Inc()
			logging.Debug().Str("actor_id", actorID).Int("attempt", attempt+1).Msg("sanction update conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		return next, nil
	}

	return nil, fmt.Errorf("%w: actor %s after %d attempts", screening.ErrConcurrentUpdate, actorID, maxConflictRetries)
}

// CountBlockedActors scans every sanction record.
func (s *BadgerStore) CountBlockedActors(ctx context.Context, asOf time.Time) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(sanctionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var st screening.SanctionState
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &st)
			}); err != nil {
				return fmt.Errorf("decode sanction state: %w", err)
			}
			if st.IsBlocked(asOf) {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count blocked actors: %w", err)
	}
	return n, nil
}
