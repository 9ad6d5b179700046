// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

// Package fixture loads YAML screening fixtures and dry-runs them through
// the extractors and the decision aggregator.
//
// A fixture describes one submission, the actor's prior listings and the
// actor's starting sanction state. Running it never touches a real store:
// the engine is built over a throwaway in-memory store and no outcome is
// recorded. An optional expect block turns the fixture into a regression
// check for rule changes.
//
//	name: messaging link from a warned seller
//	now: 2026-03-01T12:00:00Z
//	actor_id: seller-1
//	state:
//	  warning_count: 2
//	history:
//	  - title: Pine chair
//	    content: Light pine, no scratches
//	    age: 3h
//	submission:
//	  title: Oak table
//	  content: Photos and details at wa.me/5550001
//	expect:
//	  allowed: false
//	  should_block: true
//	  block_days: 7
//	  alerts: [suspicious_url]
package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomtom215/listingguard/internal/screening"
)

// ErrInvalidFixture wraps every load-time problem.
var ErrInvalidFixture = errors.New("invalid fixture")

// Fixture is one screening scenario.
type Fixture struct {
	Name       string       `yaml:"name"`
	Now        time.Time    `yaml:"now"`
	ActorID    string       `yaml:"actor_id"`
	State      State        `yaml:"state"`
	History    []Prior      `yaml:"history"`
	Submission Submission   `yaml:"submission"`
	Expect     *Expectation `yaml:"expect"`
}

// State is the actor's sanction record before the submission.
type State struct {
	WarningCount int        `yaml:"warning_count"`
	BlockedUntil *time.Time `yaml:"blocked_until"`
	IsBanned     bool       `yaml:"is_banned"`
	BlockReason  string     `yaml:"block_reason"`
}

// Prior is an earlier listing, placed Age before Now.
type Prior struct {
	Title   string        `yaml:"title"`
	Content string        `yaml:"content"`
	Age     time.Duration `yaml:"age"`
}

// Submission mirrors screening.Submission with YAML keys.
type Submission struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Content     string   `yaml:"content"`
	Price       *float64 `yaml:"price"`
	Category    string   `yaml:"category"`
	ExternalURL string   `yaml:"external_url"`
}

// Expectation lists the verdict fields to check. Unset fields are not checked.
type Expectation struct {
	Allowed     *bool                 `yaml:"allowed"`
	Passed      *bool                 `yaml:"passed"`
	ShouldBlock *bool                 `yaml:"should_block"`
	Permanent   *bool                 `yaml:"permanent"`
	BlockDays   *int                  `yaml:"block_days"`
	Publishable *bool                 `yaml:"publishable"`
	Alerts      []screening.AlertType `yaml:"alerts"`
}

// Load reads and parses the fixture at path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	fx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fx, nil
}

// Parse decodes a fixture. Unknown keys are rejected so typos in an expect
// block fail loudly instead of silently checking nothing.
func Parse(data []byte) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	if fx.ActorID == "" {
		fx.ActorID = "fixture-actor"
	}
	if fx.Now.IsZero() {
		fx.Now = time.Now().UTC()
	}
	for i, p := range fx.History {
		if p.Age < 0 {
			return nil, fmt.Errorf("%w: history[%d] has negative age", ErrInvalidFixture, i)
		}
	}
	if fx.State.WarningCount < 0 {
		return nil, fmt.Errorf("%w: negative warning_count", ErrInvalidFixture)
	}
	return &fx, nil
}

func (s Submission) toScreening() screening.Submission {
	return screening.Submission{
		ID:      s.ID,
		Title:   s.Title,
		Content: s.Content,
		Metadata: screening.Metadata{
			Price:       s.Price,
			Category:    s.Category,
			ExternalURL: s.ExternalURL,
		},
	}
}
