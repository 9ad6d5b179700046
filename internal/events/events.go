// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/listingguard/internal/screening"
	"github.com/tomtom215/listingguard/internal/validation"
)

// ErrMalformedEvent marks payloads that can never be processed. The poison
// queue middleware only takes errors wrapping it.
var ErrMalformedEvent = errors.New("malformed event")

// Metadata keys set on outgoing messages.
const (
	MetadataActorID       = "actor_id"
	MetadataCorrelationID = "correlation_id"
	MetadataSourceEventID = "source_event_id"
)

// SubmissionEvent asks for one listing to be screened.
type SubmissionEvent struct {
	EventID     string               `json:"event_id,omitempty" validate:"max=128"`
	ActorID     string               `json:"actor_id" validate:"required,actorid"`
	Submission  screening.Submission `json:"submission"`
	SubmittedAt time.Time            `json:"submitted_at"`
}

// ListingScreenedEvent carries the decision for one SubmissionEvent.
type ListingScreenedEvent struct {
	EventID       string                 `json:"event_id"`
	SourceEventID string                 `json:"source_event_id,omitempty"`
	ActorID       string                 `json:"actor_id"`
	SubmissionID  string                 `json:"submission_id,omitempty"`
	Verdict       *screening.Verdict     `json:"verdict"`
	Publishable   bool                   `json:"publishable"`
	Enforcement   *screening.Enforcement `json:"enforcement,omitempty"`
	Error         string                 `json:"error,omitempty"`
	ScreenedAt    time.Time              `json:"screened_at"`
}

// DecodeSubmission parses and validates a submitted-topic payload. Any
// failure wraps ErrMalformedEvent.
func DecodeSubmission(payload []byte) (*SubmissionEvent, error) {
	var ev SubmissionEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if verr := validation.ValidateStruct(&ev); verr != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, verr)
	}
	return &ev, nil
}

// NewSubmissionMessage encodes ev for the submitted topic. The message UUID
// doubles as the event ID when ev has none.
func NewSubmissionMessage(ev *SubmissionEvent) (*message.Message, error) {
	if ev.EventID == "" {
		ev.EventID = watermill.NewUUID()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal submission event: %w", err)
	}
	msg := message.NewMessage(ev.EventID, payload)
	msg.Metadata.Set(MetadataActorID, ev.ActorID)
	return msg, nil
}

func newScreenedMessage(ev *ListingScreenedEvent, correlationID string) (*message.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal screened event: %w", err)
	}
	msg := message.NewMessage(ev.EventID, payload)
	msg.Metadata.Set(MetadataActorID, ev.ActorID)
	msg.Metadata.Set(MetadataSourceEventID, ev.SourceEventID)
	if correlationID != "" {
		msg.Metadata.Set(MetadataCorrelationID, correlationID)
	}
	return msg, nil
}

// DecodeScreened parses a screened-topic payload.
func DecodeScreened(payload []byte) (*ListingScreenedEvent, error) {
	var ev ListingScreenedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal screened event: %w", err)
	}
	return &ev, nil
}
