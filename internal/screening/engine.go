// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/listingguard/internal/logging"
	"github.com/tomtom215/listingguard/internal/metrics"
)

var errHistoryNotConfigured = errors.New("no submission history configured")

// EngineConfig tunes the write path of RecordOutcome.
type EngineConfig struct {
	RetryAttempts int           `koanf:"retry_attempts" validate:"gte=1,lte=10"`
	RetryDelay    time.Duration `koanf:"retry_delay" validate:"gt=0"`
}

// DefaultEngineConfig returns the shipped retry settings.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RetryAttempts: 3,
		RetryDelay:    100 * time.Millisecond,
	}
}

// Engine screens submissions and records their enforcement outcome.
type Engine struct {
	policy     *Policy
	extractors []Extractor
	history    SubmissionHistory
	sanctions  SanctionStore
	ledger     AlertLedger
	tracker    *Tracker
	cfg        EngineConfig
	now        func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for evaluation and enforcement timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithExtractors replaces the default extractor set.
func WithExtractors(extractors ...Extractor) Option {
	return func(e *Engine) {
		e.extractors = extractors
	}
}

// NewEngine creates an engine. history may be nil, in which case the
// history-dependent extractors always report degraded.
func NewEngine(policy *Policy, history SubmissionHistory, sanctions SanctionStore, ledger AlertLedger, cfg EngineConfig, opts ...Option) *Engine {
	e := &Engine{
		policy:     policy,
		extractors: DefaultExtractors(policy),
		history:    history,
		sanctions:  sanctions,
		ledger:     ledger,
		cfg:        cfg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.RetryAttempts < 1 {
		e.cfg.RetryAttempts = 1
	}

	e.tracker = NewTracker(sanctions, policy)
	e.tracker.now = e.now
	return e
}

// Tracker returns the enforcement state tracker.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Policy returns the compiled rules.
func (e *Engine) Policy() *Policy {
	return e.policy
}

// EvaluateSubmission screens one submission by actorID.
//
// The returned verdict is never nil. When the actor's sanction state cannot
// be read, or history is down under the deny policy, the verdict denies and
// the error says why.
func (e *Engine) EvaluateSubmission(ctx context.Context, actorID string, sub Submission) (*Verdict, error) {
	start := time.Now()
	now := e.now()
	evaluationID := uuid.NewString()

	log := logging.Ctx(ctx).With().
		Str("evaluation_id", evaluationID).
		Str("actor_id", actorID).
		Str("submission_id", sub.ID).
		Logger()

	state, err := e.sanctions.GetSanctionState(ctx, actorID)
	if err != nil {
		reason := "sanction state unavailable"
		if errors.Is(err, ErrActorNotFound) {
			reason = "unknown actor"
		}
		log.Error().Err(err).Str("reason", reason).Msg("denying submission, sanction state not readable")
		metrics.RecordEvaluation("error", time.Since(start))
		return e.deny(evaluationID, actorID, sub.ID, reason), fmt.Errorf("get sanction state: %w", err)
	}

	if v := Precheck(state, now); v != nil {
		v.EvaluationID = evaluationID
		v.SubmissionID = sub.ID
		log.Info().Bool("banned", state.IsBanned).Str("reason", v.BlockReason).Msg("actor blocked, extraction skipped")
		metrics.RecordEvaluation("denied_precheck", time.Since(start))
		return v, nil
	}

	in := &Input{Submission: &sub, Now: now}
	in.History, in.HistoryErr = e.loadHistory(ctx, actorID, sub.ID, now)
	if in.HistoryErr != nil && e.policy.DenyOnHistoryFailure() {
		log.Error().Err(in.HistoryErr).Bool("degraded", true).Msg("denying submission, history unavailable")
		metrics.RecordEvaluation("error", time.Since(start))
		return e.deny(evaluationID, actorID, sub.ID, "submission history unavailable"),
			fmt.Errorf("%w: %w", ErrHistoryUnavailable, in.HistoryErr)
	}

	alerts, degraded, err := e.runExtractors(ctx, in, &log)
	if err != nil {
		log.Error().Err(err).Msg("extraction failed")
		metrics.RecordEvaluation("error", time.Since(start))
		return e.deny(evaluationID, actorID, sub.ID, "screening failed"), err
	}

	for _, a := range alerts {
		a.ActorID = actorID
		a.SubmissionID = sub.ID
		a.CreatedAt = now
		metrics.RecordAlert(string(a.Type), string(a.Severity))
	}

	v := Decide(state, alerts, e.policy.Escalation())
	v.EvaluationID = evaluationID
	v.SubmissionID = sub.ID
	v.Degraded = degraded

	result := "passed"
	switch {
	case v.ShouldBlock:
		result = "blocked"
	case !v.Passed:
		result = "flagged"
	}
	metrics.RecordEvaluation(result, time.Since(start))

	log.Info().
		Str("result", result).
		Int("alerts", len(alerts)).
		Int("warning_count", state.WarningCount).
		Bool("permanent", v.IsPermanent).
		Msg("submission evaluated")

	return &v, nil
}

func (e *Engine) deny(evaluationID, actorID, submissionID, reason string) *Verdict {
	return &Verdict{
		EvaluationID:   evaluationID,
		ActorID:        actorID,
		SubmissionID:   submissionID,
		Alerts:         []*Alert{},
		BlockReason:    reason,
		ShortCircuited: true,
	}
}

// loadHistory reads history once per evaluation under the configured timeout.
// A record of the submission itself, left by an earlier delivery, is dropped.
func (e *Engine) loadHistory(ctx context.Context, actorID, submissionID string, now time.Time) ([]HistoricalSubmission, error) {
	if e.history == nil {
		return nil, errHistoryNotConfigured
	}

	hctx, cancel := context.WithTimeout(ctx, e.policy.rules.HistoryTimeout)
	defer cancel()

	history, err := e.history.FindRecentSubmissions(hctx, actorID, e.policy.HistorySince(now))
	if err != nil || submissionID == "" {
		return history, err
	}
	return slices.DeleteFunc(history, func(h HistoricalSubmission) bool {
		return h.SubmissionID == submissionID
	}), nil
}

// runExtractors fans the extractors out and collects alerts in extractor order.
// ErrHistoryUnavailable degrades one extractor; any other error aborts.
func (e *Engine) runExtractors(ctx context.Context, in *Input, log *zerolog.Logger) ([]*Alert, []AlertType, error) {
	results := make([]*Alert, len(e.extractors))
	skipped := make([]error, len(e.extractors))

	g, gctx := errgroup.WithContext(ctx)
	for i, ex := range e.extractors {
		g.Go(func() error {
			alert, err := ex.Extract(gctx, in)
			if err != nil {
				if errors.Is(err, ErrHistoryUnavailable) {
					skipped[i] = err
					return nil
				}
				return fmt.Errorf("%s extractor: %w", ex.Type(), err)
			}
			if alert != nil && alert.Type == "" {
				alert.Type = ex.Type()
			}
			results[i] = alert
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var degraded []AlertType
	for i, err := range skipped {
		if err == nil {
			continue
		}
		t := e.extractors[i].Type()
		degraded = append(degraded, t)
		metrics.RecordDegraded(string(t))
		log.Warn().Err(err).Str("extractor", string(t)).Bool("degraded", true).Msg("extractor skipped")
	}

	alerts := make([]*Alert, 0, len(results))
	for _, a := range results {
		if a != nil {
			alerts = append(alerts, a)
		}
	}
	return alerts, degraded, nil
}

// RecordOutcome applies the verdict to the actor's sanction state and then
// appends every alert to the ledger. Both writes are retried. If either
// still fails the returned error wraps ErrEnforcementNotRecorded and the
// caller must not treat the listing as screened.
func (e *Engine) RecordOutcome(ctx context.Context, outcome Outcome) (*Enforcement, error) {
	if outcome.ActorID == "" {
		return nil, fmt.Errorf("%w: actor id required", ErrEnforcementNotRecorded)
	}
	seen := make(map[AlertType]bool, len(outcome.Alerts))
	for i, a := range outcome.Alerts {
		if a == nil {
			return nil, fmt.Errorf("%w: alert %d is nil", ErrEnforcementNotRecorded, i)
		}
		// The ledger keys submission alerts by type.
		if outcome.SubmissionID != "" && seen[a.Type] {
			return nil, fmt.Errorf("%w: alert type %s repeated for submission %s",
				ErrEnforcementNotRecorded, a.Type, outcome.SubmissionID)
		}
		seen[a.Type] = true
	}

	log := logging.Ctx(ctx).With().
		Str("actor_id", outcome.ActorID).
		Str("submission_id", outcome.SubmissionID).
		Str("evaluation_id", outcome.EvaluationID).
		Logger()

	var enf *Enforcement
	err := e.retryWithBackoff(ctx, "sanctions", func() error {
		var err error
		enf, err = e.tracker.ApplyVerdict(ctx, &outcome)
		return err
	})
	if err != nil {
		metrics.EnforcementWriteFailures.WithLabelValues("sanctions").Inc()
		log.Error().Err(err).Int("alerts", len(outcome.Alerts)).Msg("sanction update not recorded")
		return nil, fmt.Errorf("%w: %w", ErrEnforcementNotRecorded, err)
	}

	if enf.Transitioned {
		metrics.EnforcementTransitions.WithLabelValues(string(enf.Action)).Inc()
		log.Warn().
			Str("action", string(enf.Action)).
			Str("reason", enf.After.BlockReason).
			Int("warning_count", enf.After.WarningCount).
			Msg("actor blocked")
	}
	if enf.Superseded {
		log.Info().Int("alerts", len(outcome.Alerts)).Msg("actor already blocked, alerts queued for review")
	}

	alerts := outcome.Alerts
	if enf.Replayed {
		metrics.EnforcementReplays.Inc()
		prior, _ := enf.After.appliedOutcome(outcome.SubmissionID)
		alerts = alertsOfTypes(outcome.Alerts, prior.Alerts)
		log.Info().
			Str("action", string(enf.Action)).
			Int("alerts", len(alerts)).
			Msg("outcome already recorded for submission, filling ledger only")
	}

	now := e.now()
	for i, src := range alerts {
		a := *src
		a.ID = 0
		a.ActorID = outcome.ActorID
		if a.SubmissionID == "" {
			a.SubmissionID = outcome.SubmissionID
		}
		a.ActionTaken = enf.Action
		a.Resolved = false
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}

		err := e.retryWithBackoff(ctx, "ledger", func() error {
			return e.ledger.AppendAlert(ctx, &a)
		})
		if err != nil {
			metrics.EnforcementWriteFailures.WithLabelValues("ledger").Inc()
			log.Error().Err(err).
				Int("alert_index", i).
				Int("alerts", len(alerts)).
				Str("alert_type", string(a.Type)).
				Msg("alert not ledgered")
			return enf, fmt.Errorf("%w: alert %d of %d: %w", ErrEnforcementNotRecorded, i+1, len(alerts), err)
		}
	}

	return enf, nil
}

// alertsOfTypes keeps the alerts whose type is in types.
func alertsOfTypes(alerts []*Alert, types []AlertType) []*Alert {
	out := make([]*Alert, 0, len(types))
	for _, a := range alerts {
		if slices.Contains(types, a.Type) {
			out = append(out, a)
		}
	}
	return out
}

// retryWithBackoff runs fn up to RetryAttempts times, doubling the delay.
// ErrActorNotFound is returned immediately.
func (e *Engine) retryWithBackoff(ctx context.Context, target string, fn func() error) error {
	var err error
	delay := e.cfg.RetryDelay

	for attempt := 0; attempt < e.cfg.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil || errors.Is(err, ErrActorNotFound) {
			return err
		}

		if attempt < e.cfg.RetryAttempts-1 {
			metrics.EnforcementWriteRetries.WithLabelValues(target).Inc()
			logging.Warn().Err(err).
				Str("target", target).
				Int("attempt", attempt+1).
				Int("max_attempts", e.cfg.RetryAttempts).
				Dur("delay", delay).
				Msg("enforcement write retry")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("max retry attempts reached: %w", err)
}

// GetAlertStatistics returns ledger aggregates plus the number of actors
// currently blocked.
func (e *Engine) GetAlertStatistics(ctx context.Context) (*AlertStatistics, error) {
	stats, err := e.ledger.AlertStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("alert statistics: %w", err)
	}

	blocked, err := e.sanctions.CountBlockedActors(ctx, e.now())
	if err != nil {
		return nil, fmt.Errorf("count blocked actors: %w", err)
	}
	stats.BlockedActorCount = blocked
	return stats, nil
}
