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

	"github.com/tomtom215/listingguard/internal/logging"
	"github.com/tomtom215/listingguard/internal/metrics"
	"github.com/tomtom215/listingguard/internal/screening"
)

// Screener is the part of *screening.Engine the processor calls.
type Screener interface {
	EvaluateSubmission(ctx context.Context, actorID string, sub screening.Submission) (*screening.Verdict, error)
	RecordOutcome(ctx context.Context, outcome screening.Outcome) (*screening.Enforcement, error)
}

// Processor turns submission messages into screened messages.
type Processor struct {
	engine   Screener
	recorder screening.SubmissionRecorder
	review   screening.ReviewConfig
	now      func() time.Time
}

// NewProcessor creates a processor. recorder may be nil when history is
// written by the listing service itself.
func NewProcessor(engine Screener, recorder screening.SubmissionRecorder, review screening.ReviewConfig) *Processor {
	return &Processor{
		engine:   engine,
		recorder: recorder,
		review:   review,
		now:      time.Now,
	}
}

// Handle implements message.HandlerFunc.
func (p *Processor) Handle(msg *message.Message) ([]*message.Message, error) {
	ev, err := DecodeSubmission(msg.Payload)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues("malformed").Inc()
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("malformed submission event")
		return nil, err
	}
	if ev.EventID == "" {
		ev.EventID = msg.UUID
	}

	correlationID := msg.Metadata.Get(MetadataCorrelationID)
	if correlationID == "" {
		correlationID = logging.GenerateCorrelationID()
	}
	ctx := logging.ContextWithCorrelationID(msg.Context(), correlationID)

	out, err := p.screen(ctx, ev)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues("failed").Inc()
		return nil, err
	}

	reply, err := newScreenedMessage(out, correlationID)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.EventsConsumed.WithLabelValues("screened").Inc()
	return []*message.Message{reply}, nil
}

// screen evaluates ev and, unless the evaluation short-circuited, records
// the outcome. Errors returned here are retryable.
func (p *Processor) screen(ctx context.Context, ev *SubmissionEvent) (*ListingScreenedEvent, error) {
	log := logging.Ctx(ctx).With().
		Str("event_id", ev.EventID).
		Str("actor_id", ev.ActorID).
		Logger()

	out := &ListingScreenedEvent{
		EventID:       watermill.NewUUID(),
		SourceEventID: ev.EventID,
		ActorID:       ev.ActorID,
		SubmissionID:  ev.Submission.ID,
		ScreenedAt:    p.now(),
	}

	verdict, err := p.engine.EvaluateSubmission(ctx, ev.ActorID, ev.Submission)
	switch {
	case errors.Is(err, screening.ErrActorNotFound):
		log.Warn().Msg("submission from unknown actor denied")
		out.Verdict = verdict
		out.Error = err.Error()
		return out, nil
	case err != nil:
		return nil, fmt.Errorf("evaluate submission %s: %w", ev.EventID, err)
	}

	out.Verdict = verdict
	out.Publishable = p.review.Publishable(verdict)
	if verdict.ShortCircuited {
		return out, nil
	}

	enf, err := p.engine.RecordOutcome(ctx, p.review.OutcomeFor(verdict))
	if err != nil {
		return nil, fmt.Errorf("record outcome for %s: %w", ev.EventID, err)
	}
	out.Enforcement = enf
	out.Publishable = p.review.PublishableAfter(verdict, enf)

	if p.recorder != nil {
		createdAt := ev.SubmittedAt
		if createdAt.IsZero() {
			createdAt = out.ScreenedAt
		}
		rec := screening.HistoricalSubmission{
			Title:     ev.Submission.Title,
			Content:   ev.Submission.Content,
			CreatedAt: createdAt,
		}
		if err := p.recorder.RecordSubmission(ctx, ev.ActorID, ev.Submission.ID, rec); err != nil {
			log.Warn().Err(err).Msg("submission not added to history")
		}
	}

	log.Info().
		Bool("publishable", out.Publishable).
		Bool("blocked", verdict.ShouldBlock).
		Int("alerts", len(verdict.Alerts)).
		Msg("listing screened")
	return out, nil
}
