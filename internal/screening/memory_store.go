// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps history, sanction state and the ledger in process.
// It backs tests, fixtures and the "memory" sanctions backend.
type MemoryStore struct {
	mu          sync.RWMutex
	states      map[string]*SanctionState
	actorLocks  map[string]*sync.Mutex
	submissions map[string][]HistoricalSubmission
	alerts      []*Alert
	nextAlertID int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:      make(map[string]*SanctionState),
		actorLocks:  make(map[string]*sync.Mutex),
		submissions: make(map[string][]HistoricalSubmission),
	}
}

// RegisterActor creates a clean sanction row.
func (m *MemoryStore) RegisterActor(_ context.Context, actorID string) (*SanctionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[actorID]; ok {
		return nil, ErrActorExists
	}
	st := &SanctionState{ActorID: actorID, UpdatedAt: time.Now()}
	m.states[actorID] = st
	m.actorLocks[actorID] = &sync.Mutex{}
	return st.Clone(), nil
}

// PutSanctionState overwrites an actor's state, registering it if needed.
func (m *MemoryStore) PutSanctionState(state *SanctionState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[state.ActorID] = state.Clone()
	if _, ok := m.actorLocks[state.ActorID]; !ok {
		m.actorLocks[state.ActorID] = &sync.Mutex{}
	}
}

// GetSanctionState returns a copy of the actor's state.
func (m *MemoryStore) GetSanctionState(_ context.Context, actorID string) (*SanctionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[actorID]
	if !ok {
		return nil, ErrActorNotFound
	}
	return st.Clone(), nil
}

// UpdateSanctionState serializes updates per actor with a dedicated mutex.
func (m *MemoryStore) UpdateSanctionState(ctx context.Context, actorID string, mutate func(*SanctionState) error) (*SanctionState, error) {
	m.mu.RLock()
	lock, ok := m.actorLocks[actorID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrActorNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	next := m.states[actorID].Clone()
	m.mu.RUnlock()

	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ActorID = actorID
	next.Version++
	next.UpdatedAt = time.Now()

	m.mu.Lock()
	m.states[actorID] = next
	m.mu.Unlock()

	return next.Clone(), nil
}

// CountBlockedActors counts banned actors and those blocked at asOf.
func (m *MemoryStore) CountBlockedActors(_ context.Context, asOf time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, st := range m.states {
		if st.IsBlocked(asOf) {
			n++
		}
	}
	return n, nil
}

// RecordSubmission adds a listing to the actor's history once per submission ID.
func (m *MemoryStore) RecordSubmission(_ context.Context, actorID, submissionID string, sub HistoricalSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.SubmissionID = submissionID
	if submissionID != "" {
		for _, s := range m.submissions[actorID] {
			if s.SubmissionID == submissionID {
				return nil
			}
		}
	}
	m.submissions[actorID] = append(m.submissions[actorID], sub)
	return nil
}

// FindRecentSubmissions returns submissions created at or after since, newest first.
func (m *MemoryStore) FindRecentSubmissions(ctx context.Context, actorID string, since time.Time) ([]HistoricalSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []HistoricalSubmission
	for _, s := range m.submissions[actorID] {
		if !s.CreatedAt.Before(since) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AppendAlert stores a copy of alert and assigns its ID.
func (m *MemoryStore) AppendAlert(_ context.Context, alert *Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alert.SubmissionID != "" {
		for _, a := range m.alerts {
			if a.ActorID == alert.ActorID && a.SubmissionID == alert.SubmissionID && a.Type == alert.Type {
				alert.ID = a.ID
				return nil
			}
		}
	}

	m.nextAlertID++
	alert.ID = m.nextAlertID
	stored := *alert
	m.alerts = append(m.alerts, &stored)
	return nil
}

// AlertStatistics aggregates the ledger. BlockedActorCount is left to the engine.
func (m *MemoryStore) AlertStatistics(_ context.Context) (*AlertStatistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := newAlertStatistics()
	for _, a := range m.alerts {
		stats.add(a)
	}
	return stats, nil
}

// ListAlerts returns ledger rows newest first.
func (m *MemoryStore) ListAlerts(_ context.Context, filter AlertFilter) ([]*Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var out []*Alert
	skipped := 0
	for i := len(m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		a := m.alerts[i]
		if !filter.matches(a) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		c := *a
		out = append(out, &c)
	}
	return out, nil
}

// ResolveAlert marks an alert as resolved.
func (m *MemoryStore) ResolveAlert(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.alerts {
		if a.ID == id {
			a.Resolved = true
			return nil
		}
	}
	return ErrAlertNotFound
}

func (f AlertFilter) matches(a *Alert) bool {
	if f.ActorID != "" && a.ActorID != f.ActorID {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.Resolved != nil && a.Resolved != *f.Resolved {
		return false
	}
	return true
}

func newAlertStatistics() *AlertStatistics {
	return &AlertStatistics{
		AlertsByType:     make(map[AlertType]int),
		AlertsBySeverity: make(map[Severity]int),
		AlertsByAction:   make(map[ActionTaken]int),
	}
}

func (s *AlertStatistics) add(a *Alert) {
	s.TotalAlerts++
	if !a.Resolved {
		s.UnresolvedAlerts++
	}
	if a.Severity == SeverityCritical {
		s.CriticalAlerts++
	}
	s.AlertsByType[a.Type]++
	s.AlertsBySeverity[a.Severity]++
	if a.ActionTaken != "" {
		s.AlertsByAction[a.ActionTaken]++
	}
}
