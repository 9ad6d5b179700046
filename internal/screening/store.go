// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/listingguard/internal/logging"
	"github.com/tomtom215/listingguard/internal/metrics"
)

// maxCASAttempts bounds optimistic retries in UpdateSanctionState.
const maxCASAttempts = 50

// DuckDBStore implements SubmissionHistory, SanctionStore, AlertLedger,
// AlertReviewer and ActorRegistry on DuckDB.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a DuckDB-backed store. Call InitSchema before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// InitSchema creates the screening tables if they don't exist.
func (s *DuckDBStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS actor_sanctions (
			actor_id TEXT PRIMARY KEY,
			warning_count INTEGER NOT NULL DEFAULT 0,
			blocked_until TIMESTAMP,
			is_banned BOOLEAN NOT NULL DEFAULT false,
			block_reason TEXT,
			applied TEXT,
			version BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE SEQUENCE IF NOT EXISTS screening_alerts_id_seq START 1`,

		// Append-only except for resolved/resolved_at.
		`CREATE TABLE IF NOT EXISTS screening_alerts (
			id BIGINT PRIMARY KEY DEFAULT nextval('screening_alerts_id_seq'),
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			description TEXT NOT NULL,
			metadata JSON,
			actor_id TEXT NOT NULL,
			submission_id TEXT,
			action_taken TEXT NOT NULL,
			resolved BOOLEAN NOT NULL DEFAULT false,
			resolved_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS listing_submissions (
			actor_id TEXT NOT NULL,
			submission_id TEXT,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_screening_alerts_actor ON screening_alerts(actor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_screening_alerts_created ON screening_alerts(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_listing_submissions_actor ON listing_submissions(actor_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	// Flush the WAL so a crash right after startup does not replay DDL.
	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("failed to checkpoint after screening schema initialization")
	}

	return nil
}

// Ping checks the database connection.
func (s *DuckDBStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RegisterActor creates a clean sanction row.
func (s *DuckDBStore) RegisterActor(ctx context.Context, actorID string) (*SanctionState, error) {
	start := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO actor_sanctions (actor_id, updated_at) VALUES (?, ?)
		 ON CONFLICT (actor_id) DO NOTHING`,
		actorID, time.Now().UTC())
	metrics.RecordDBQuery("insert", "actor_sanctions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to register actor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrActorExists
	}
	return s.GetSanctionState(ctx, actorID)
}

// GetSanctionState returns the actor's sanction row or ErrActorNotFound.
func (s *DuckDBStore) GetSanctionState(ctx context.Context, actorID string) (*SanctionState, error) {
	start := time.Now()
	query := `SELECT actor_id, warning_count, blocked_until, is_banned, block_reason, applied, version, updated_at
		FROM actor_sanctions WHERE actor_id = ?`

	var (
		st           SanctionState
		blockedUntil sql.NullTime
		reason       sql.NullString
		applied      sql.NullString
		updatedAt    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, actorID).Scan(
		&st.ActorID,
		&st.WarningCount,
		&blockedUntil,
		&st.IsBanned,
		&reason,
		&applied,
		&st.Version,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "actor_sanctions", time.Since(start), nil)
		return nil, ErrActorNotFound
	}
	metrics.RecordDBQuery("select", "actor_sanctions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get sanction state: %w", err)
	}

	if blockedUntil.Valid {
		t := blockedUntil.Time
		st.BlockedUntil = &t
	}
	st.BlockReason = reason.String
	st.UpdatedAt = updatedAt.Time
	if applied.Valid && applied.String != "" {
		if err := json.Unmarshal([]byte(applied.String), &st.Applied); err != nil {
			return nil, fmt.Errorf("failed to decode applied outcomes: %w", err)
		}
	}
	return &st, nil
}

// UpdateSanctionState applies mutate with an optimistic compare-and-swap on
// the version column, re-reading and retrying when another writer wins.
func (s *DuckDBStore) UpdateSanctionState(ctx context.Context, actorID string, mutate func(*SanctionState) error) (*SanctionState, error) {
	query := `UPDATE actor_sanctions
		SET warning_count = ?, blocked_until = ?, is_banned = ?, block_reason = ?,
		    applied = ?, version = ?, updated_at = ?
		WHERE actor_id = ? AND version = ?`

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current, err := s.GetSanctionState(ctx, actorID)
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		if err := mutate(next); err != nil {
			return nil, err
		}
		next.ActorID = actorID
		next.Version = current.Version + 1
		next.UpdatedAt = time.Now().UTC()

		var until interface{}
		if next.BlockedUntil != nil {
			until = next.BlockedUntil.UTC()
		}
		var reason interface{}
		if next.BlockReason != "" {
			reason = next.BlockReason
		}
		var applied interface{}
		if len(next.Applied) > 0 {
			b, err := json.Marshal(next.Applied)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal applied outcomes: %w", err)
			}
			applied = string(b)
		}

		start := time.Now()
		res, err := s.db.ExecContext(ctx, query,
			next.WarningCount, until, next.IsBanned, reason, applied, next.Version, next.UpdatedAt,
			actorID, current.Version,
		)
		if err != nil {
			if isTransactionConflict(err) {
				metrics.RecordDBQuery("update", "actor_sanctions", time.Since(start), nil)
				s.conflict(ctx, actorID, attempt)
				continue
			}
			metrics.RecordDBQuery("update", "actor_sanctions", time.Since(start), err)
			return nil, fmt.Errorf("failed to update sanction state: %w", err)
		}
		metrics.RecordDBQuery("update", "actor_sanctions", time.Since(start), nil)

		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read update result: %w", err)
		}
		if n == 1 {
			return next, nil
		}
		s.conflict(ctx, actorID, attempt)
	}

	return nil, fmt.Errorf("%w: actor %s after %d attempts", ErrConcurrentUpdate, actorID, maxCASAttempts)
}

// conflict records a lost race and backs off briefly.
func (s *DuckDBStore) conflict(ctx context.Context, actorID string, attempt int) {
	metrics.SanctionUpdateConflicts.WithLabelValues("duckdb").Inc()
	logging.Debug().Str("actor_id", actorID).Int("attempt", attempt+1).Msg("sanction update conflict, retrying")

	select {
	case <-time.After(time.Duration(attempt+1) * time.Millisecond):
	case <-ctx.Done():
	}
}

// isTransactionConflict matches DuckDB's optimistic concurrency abort.
func isTransactionConflict(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "conflict")
}

// CountBlockedActors counts banned actors and those blocked at asOf.
func (s *DuckDBStore) CountBlockedActors(ctx context.Context, asOf time.Time) (int, error) {
	start := time.Now()
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM actor_sanctions
		 WHERE is_banned OR (blocked_until IS NOT NULL AND blocked_until > ?)`,
		asOf.UTC(),
	).Scan(&n)
	metrics.RecordDBQuery("select", "actor_sanctions", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count blocked actors: %w", err)
	}
	return n, nil
}

// RecordSubmission stores a screened listing for later history reads. A
// submission ID already recorded for the actor is not inserted again.
func (s *DuckDBStore) RecordSubmission(ctx context.Context, actorID, submissionID string, sub HistoricalSubmission) error {
	var id interface{}
	if submissionID != "" {
		id = submissionID

		var n int
		start := time.Now()
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM listing_submissions WHERE actor_id = ? AND submission_id = ?`,
			actorID, submissionID).Scan(&n)
		metrics.RecordDBQuery("select", "listing_submissions", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("failed to look up submission: %w", err)
		}
		if n > 0 {
			return nil
		}
	}

	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listing_submissions (actor_id, submission_id, title, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		actorID, id, sub.Title, sub.Content, sub.CreatedAt.UTC())
	metrics.RecordDBQuery("insert", "listing_submissions", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

// FindRecentSubmissions returns the actor's submissions since the cutoff, newest first.
func (s *DuckDBStore) FindRecentSubmissions(ctx context.Context, actorID string, since time.Time) ([]HistoricalSubmission, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT submission_id, title, content, created_at FROM listing_submissions
		 WHERE actor_id = ? AND created_at >= ?
		 ORDER BY created_at DESC`,
		actorID, since.UTC())
	metrics.RecordDBQuery("select", "listing_submissions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []HistoricalSubmission
	for rows.Next() {
		var (
			h  HistoricalSubmission
			id sql.NullString
		)
		if err := rows.Scan(&id, &h.Title, &h.Content, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		h.SubmissionID = id.String
		out = append(out, h)
	}
	return out, rows.Err()
}

// AppendAlert inserts alert and sets its ID.
func (s *DuckDBStore) AppendAlert(ctx context.Context, alert *Alert) error {
	// DuckDB rejects json.Marshaler values but accepts []byte. An empty
	// []byte is sent as "" and fails JSON parsing, so unset metadata stays NULL.
	var metadata interface{}
	if len(alert.Metadata) > 0 {
		b, err := json.Marshal(alert.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal alert metadata: %w", err)
		}
		metadata = b
	}
	var submissionID interface{}
	if alert.SubmissionID != "" {
		submissionID = alert.SubmissionID

		var existing int64
		start := time.Now()
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM screening_alerts
			 WHERE actor_id = ? AND submission_id = ? AND alert_type = ?
			 LIMIT 1`,
			alert.ActorID, alert.SubmissionID, string(alert.Type),
		).Scan(&existing)
		switch {
		case err == nil:
			metrics.RecordDBQuery("select", "screening_alerts", time.Since(start), nil)
			alert.ID = existing
			return nil
		case errors.Is(err, sql.ErrNoRows):
			metrics.RecordDBQuery("select", "screening_alerts", time.Since(start), nil)
		default:
			metrics.RecordDBQuery("select", "screening_alerts", time.Since(start), err)
			return fmt.Errorf("failed to look up alert: %w", err)
		}
	}

	start := time.Now()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO screening_alerts
			(alert_type, severity, description, metadata, actor_id, submission_id, action_taken, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		string(alert.Type),
		string(alert.Severity),
		alert.Description,
		metadata,
		alert.ActorID,
		submissionID,
		string(alert.ActionTaken),
		alert.Resolved,
		alert.CreatedAt.UTC(),
	).Scan(&alert.ID)
	metrics.RecordDBQuery("insert", "screening_alerts", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// AlertStatistics aggregates the ledger. BlockedActorCount is left to the engine.
func (s *DuckDBStore) AlertStatistics(ctx context.Context) (*AlertStatistics, error) {
	start := time.Now()
	stats := newAlertStatistics()

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE NOT resolved),
			COUNT(*) FILTER (WHERE severity = 'CRITICAL')
		FROM screening_alerts`,
	).Scan(&stats.TotalAlerts, &stats.UnresolvedAlerts, &stats.CriticalAlerts)
	if err != nil {
		metrics.RecordDBQuery("aggregate", "screening_alerts", time.Since(start), err)
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}

	groups := []struct {
		column string
		add    func(key string, n int)
	}{
		{"alert_type", func(k string, n int) { stats.AlertsByType[AlertType(k)] = n }},
		{"severity", func(k string, n int) { stats.AlertsBySeverity[Severity(k)] = n }},
		{"action_taken", func(k string, n int) { stats.AlertsByAction[ActionTaken(k)] = n }},
	}
	for _, g := range groups {
		if err := s.groupCount(ctx, g.column, g.add); err != nil {
			metrics.RecordDBQuery("aggregate", "screening_alerts", time.Since(start), err)
			return nil, err
		}
	}

	metrics.RecordDBQuery("aggregate", "screening_alerts", time.Since(start), nil)
	return stats, nil
}

// groupCount runs a GROUP BY over a fixed column name; column is never user input.
func (s *DuckDBStore) groupCount(ctx context.Context, column string, add func(string, int)) error {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM screening_alerts GROUP BY %s`, column, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to group alerts by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		add(key, n)
	}
	return rows.Err()
}

const alertColumns = `id, alert_type, severity, description, metadata, actor_id,
	submission_id, action_taken, resolved, created_at`

// ListAlerts returns ledger rows newest first. All filter values are bound parameters.
func (s *DuckDBStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM screening_alerts WHERE 1=1`
	args := make([]interface{}, 0, 6)

	if filter.ActorID != "" {
		query += " AND actor_id = ?"
		args = append(args, filter.ActorID)
	}
	if filter.Type != "" {
		query += " AND alert_type = ?"
		args = append(args, string(filter.Type))
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, string(filter.Severity))
	}
	if filter.Resolved != nil {
		query += " AND resolved = ?"
		args = append(args, *filter.Resolved)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else {
		query += " LIMIT 100"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "screening_alerts", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// ResolveAlert flips the resolved flag, the ledger's only mutable field.
func (s *DuckDBStore) ResolveAlert(ctx context.Context, id int64) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE screening_alerts SET resolved = true, resolved_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	metrics.RecordDBQuery("update", "screening_alerts", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func scanAlertRow(scanner interface {
	Scan(dest ...interface{}) error
}) (*Alert, error) {
	var (
		a            Alert
		alertType    string
		severity     string
		action       string
		submissionID sql.NullString
		metadata     interface{} // DuckDB returns JSON already decoded
	)
	if err := scanner.Scan(
		&a.ID,
		&alertType,
		&severity,
		&a.Description,
		&metadata,
		&a.ActorID,
		&submissionID,
		&action,
		&a.Resolved,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}

	a.Type = AlertType(alertType)
	a.Severity = Severity(severity)
	a.ActionTaken = ActionTaken(action)
	a.SubmissionID = submissionID.String

	md, err := decodeMetadata(metadata)
	if err != nil {
		return nil, err
	}
	a.Metadata = md
	return &a, nil
}

func decodeMetadata(v interface{}) (map[string]interface{}, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return m, nil
	case []byte:
		return unmarshalMetadata(m)
	case string:
		return unmarshalMetadata([]byte(m))
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode alert metadata: %w", err)
		}
		return unmarshalMetadata(b)
	}
}

func unmarshalMetadata(b []byte) (map[string]interface{}, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode alert metadata: %w", err)
	}
	return out, nil
}
