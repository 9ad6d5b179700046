// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"time"
)

// AlertType identifies the extractor that raised an alert.
type AlertType string

const (
	// AlertTypeVolume flags actors posting above the per-window limits.
	AlertTypeVolume AlertType = "volume"

	// AlertTypeDuplicateContent flags reposts of the actor's own recent listings.
	AlertTypeDuplicateContent AlertType = "duplicate_content"

	// AlertTypeCommercialKeywords flags wholesale and solicitation vocabulary.
	AlertTypeCommercialKeywords AlertType = "commercial_keywords"

	// AlertTypeSuspiciousURL flags messaging links, shorteners and competitor sites.
	AlertTypeSuspiciousURL AlertType = "suspicious_url"

	// AlertTypePriceAnomaly flags implausible prices.
	AlertTypePriceAnomaly AlertType = "price_anomaly"

	// AlertTypeContactLeak flags attempts to move the conversation off-platform.
	AlertTypeContactLeak AlertType = "contact_leak"
)

// AllAlertTypes lists every type a shipped extractor can raise.
var AllAlertTypes = []AlertType{
	AlertTypeVolume,
	AlertTypeDuplicateContent,
	AlertTypeCommercialKeywords,
	AlertTypeSuspiciousURL,
	AlertTypePriceAnomaly,
	AlertTypeContactLeak,
}

// Severity indicates how serious an alert is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities from LOW (1) to CRITICAL (4). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// ActionTaken records what enforcement followed an alert.
type ActionTaken string

const (
	ActionAutoWarning        ActionTaken = "AUTO_WARNING"
	ActionAutoBlockTemp      ActionTaken = "AUTO_BLOCK_TEMP"
	ActionAutoBlockPermanent ActionTaken = "AUTO_BLOCK_PERMANENT"
	ActionManualReview       ActionTaken = "MANUAL_REVIEW"
)

// Metadata holds the optional structured fields of a submission.
type Metadata struct {
	Price       *float64 `json:"price,omitempty"`
	Category    string   `json:"category,omitempty" validate:"max=128"`
	ExternalURL string   `json:"external_url,omitempty" validate:"max=2048"`
}

// Submission is the listing being screened. The engine never modifies it.
type Submission struct {
	ID       string   `json:"id,omitempty" validate:"max=128"`
	Title    string   `json:"title" validate:"max=512"`
	Content  string   `json:"content" validate:"max=65536"`
	Metadata Metadata `json:"metadata"`
}

// HistoricalSubmission is one of the actor's earlier listings.
type HistoricalSubmission struct {
	SubmissionID string    `json:"submission_id,omitempty"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// Alert is raised by one extractor for one submission.
// Only Resolved changes after the alert is ledgered.
type Alert struct {
	ID           int64                  `json:"id,omitempty"`
	Type         AlertType              `json:"type"`
	Severity     Severity               `json:"severity"`
	Description  string                 `json:"description"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	ActorID      string                 `json:"actor_id"`
	SubmissionID string                 `json:"submission_id,omitempty"`
	ActionTaken  ActionTaken            `json:"action_taken,omitempty"`
	Resolved     bool                   `json:"resolved"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Verdict is the aggregated decision for one evaluation.
//
// Passed is true when no extractor fired. Allowed is false whenever the
// actor should be blocked or the evaluation was denied before extraction.
// A listing that is Allowed but not Passed is flagged; whether it may be
// published is the caller's review policy.
type Verdict struct {
	EvaluationID      string      `json:"evaluation_id"`
	ActorID           string      `json:"actor_id"`
	SubmissionID      string      `json:"submission_id,omitempty"`
	Allowed           bool        `json:"allowed"`
	Passed            bool        `json:"passed"`
	Alerts            []*Alert    `json:"alerts"`
	ShouldBlock       bool        `json:"should_block"`
	BlockDurationDays *int        `json:"block_duration_days,omitempty"`
	BlockReason       string      `json:"block_reason,omitempty"`
	IsPermanent       bool        `json:"is_permanent"`
	ShortCircuited    bool        `json:"short_circuited"`
	Degraded          []AlertType `json:"degraded,omitempty"`
}

// SanctionState is the enforcement record of one actor.
//
// Applied lists the most recent outcomes recorded with a submission ID,
// oldest first, so a redelivered outcome is recognized and not counted twice.
type SanctionState struct {
	ActorID      string           `json:"actor_id"`
	WarningCount int              `json:"warning_count"`
	BlockedUntil *time.Time       `json:"blocked_until,omitempty"`
	IsBanned     bool             `json:"is_banned"`
	BlockReason  string           `json:"block_reason,omitempty"`
	Applied      []AppliedOutcome `json:"applied,omitempty"`
	Version      int64            `json:"version"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// AppliedOutcome is what the tracker committed for one submission.
type AppliedOutcome struct {
	SubmissionID string      `json:"submission_id"`
	Action       ActionTaken `json:"action"`
	Alerts       []AlertType `json:"alerts,omitempty"`
}

// maxAppliedOutcomes bounds SanctionState.Applied per actor.
const maxAppliedOutcomes = 32

// appliedOutcome returns the recorded outcome for submissionID, if any.
func (s *SanctionState) appliedOutcome(submissionID string) (AppliedOutcome, bool) {
	if submissionID == "" {
		return AppliedOutcome{}, false
	}
	for _, a := range s.Applied {
		if a.SubmissionID == submissionID {
			return a, true
		}
	}
	return AppliedOutcome{}, false
}

// rememberApplied appends a, dropping the oldest entries past the bound.
func (s *SanctionState) rememberApplied(a AppliedOutcome) {
	s.Applied = append(s.Applied, a)
	if over := len(s.Applied) - maxAppliedOutcomes; over > 0 {
		s.Applied = append([]AppliedOutcome(nil), s.Applied[over:]...)
	}
}

// IsBlocked reports whether the actor is banned or inside a block window at now.
func (s *SanctionState) IsBlocked(now time.Time) bool {
	if s.IsBanned {
		return true
	}
	return s.BlockedUntil != nil && s.BlockedUntil.After(now)
}

// Clone returns a deep copy.
func (s *SanctionState) Clone() *SanctionState {
	c := *s
	if s.BlockedUntil != nil {
		t := *s.BlockedUntil
		c.BlockedUntil = &t
	}
	if s.Applied != nil {
		c.Applied = make([]AppliedOutcome, len(s.Applied))
		for i, a := range s.Applied {
			a.Alerts = append([]AlertType(nil), a.Alerts...)
			c.Applied[i] = a
		}
	}
	return &c
}

// Outcome is what the caller decided to record after an evaluation.
// Held marks a flagged listing kept back for manual review.
type Outcome struct {
	EvaluationID      string   `json:"evaluation_id,omitempty"`
	ActorID           string   `json:"actor_id" validate:"required,actorid"`
	SubmissionID      string   `json:"submission_id,omitempty" validate:"max=128"`
	Alerts            []*Alert `json:"alerts" validate:"max=16,dive,required"`
	ShouldBlock       bool     `json:"should_block"`
	BlockDurationDays *int     `json:"block_duration_days,omitempty" validate:"omitempty,gte=1,lte=3650"`
	IsPermanent       bool     `json:"is_permanent"`
	Held              bool     `json:"held"`
}

// Enforcement reports the effect of RecordOutcome.
//
// Superseded is set when the actor was already blocked at commit time by a
// concurrent evaluation: the alerts still count as warnings but no new block
// is applied.
//
// Replayed is set when the submission's outcome was already recorded. The
// state is left unchanged and Action repeats the recorded action.
type Enforcement struct {
	ActorID        string         `json:"actor_id"`
	Before         *SanctionState `json:"before"`
	After          *SanctionState `json:"after"`
	Action         ActionTaken    `json:"action"`
	Transitioned   bool           `json:"transitioned"`
	Superseded     bool           `json:"superseded"`
	Replayed       bool           `json:"replayed"`
	AlertsRecorded int            `json:"alerts_recorded"`
}

// AlertStatistics is the read aggregate over the alert ledger.
type AlertStatistics struct {
	TotalAlerts       int                 `json:"total_alerts"`
	UnresolvedAlerts  int                 `json:"unresolved_alerts"`
	CriticalAlerts    int                 `json:"critical_alerts"`
	BlockedActorCount int                 `json:"blocked_actor_count"`
	AlertsByType      map[AlertType]int   `json:"alerts_by_type"`
	AlertsBySeverity  map[Severity]int    `json:"alerts_by_severity"`
	AlertsByAction    map[ActionTaken]int `json:"alerts_by_action,omitempty"`
}

// AlertFilter selects ledger rows for ListAlerts.
type AlertFilter struct {
	ActorID  string
	Type     AlertType
	Severity Severity
	Resolved *bool
	Limit    int
	Offset   int
}

// SubmissionHistory reads an actor's earlier submissions, newest first.
type SubmissionHistory interface {
	FindRecentSubmissions(ctx context.Context, actorID string, since time.Time) ([]HistoricalSubmission, error)
}

// SubmissionRecorder appends screened listings to the history read by
// SubmissionHistory. Recording a non-empty submission ID twice for the same
// actor keeps the first record.
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, actorID, submissionID string, sub HistoricalSubmission) error
}

// SanctionStore persists actor sanction state.
//
// UpdateSanctionState runs mutate against the current state and commits the
// result atomically for that actor. mutate may be invoked more than once when
// the store retries after a conflict, so it must not have side effects.
type SanctionStore interface {
	GetSanctionState(ctx context.Context, actorID string) (*SanctionState, error)
	UpdateSanctionState(ctx context.Context, actorID string, mutate func(*SanctionState) error) (*SanctionState, error)
	CountBlockedActors(ctx context.Context, asOf time.Time) (int, error)
}

// AlertLedger is the append-only alert record.
//
// AppendAlert does not insert an alert that has a submission ID when a row
// with the same actor, submission and type exists. It sets alert.ID to that
// row instead.
type AlertLedger interface {
	AppendAlert(ctx context.Context, alert *Alert) error
	AlertStatistics(ctx context.Context) (*AlertStatistics, error)
}

// AlertReviewer is implemented by ledgers that support the review workflow.
type AlertReviewer interface {
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*Alert, error)
	ResolveAlert(ctx context.Context, id int64) error
}

// ActorRegistry creates sanction rows for new actors.
type ActorRegistry interface {
	RegisterActor(ctx context.Context, actorID string) (*SanctionState, error)
}
