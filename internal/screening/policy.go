// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"fmt"
	"regexp"
	"time"

	"github.com/tomtom215/listingguard/internal/matcher"
	"github.com/tomtom215/listingguard/internal/textnorm"
)

type namedRegexp struct {
	name string
	re   *regexp.Regexp
}

// Policy is the compiled, read-only form of Rules shared by every extractor
// and by the decision aggregator. It is safe for concurrent use.
type Policy struct {
	rules Rules

	keywords *matcher.Automaton
	urls     []namedRegexp
	phrases  []*regexp.Regexp
	phones   []*regexp.Regexp
	floors   map[string]float64
}

// Compile validates rules and builds the matchers.
func Compile(rules Rules) (*Policy, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	p := &Policy{
		rules:  rules,
		floors: make(map[string]float64, len(rules.Price.CategoryFloors)),
	}

	terms := make([]string, len(rules.Keywords.Terms))
	for i, term := range rules.Keywords.Terms {
		terms[i] = textnorm.Normalize(term)
	}
	p.keywords = matcher.New(terms)

	for _, np := range rules.URLs.Patterns {
		re, err := regexp.Compile(np.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: url pattern %s: %v", ErrInvalidRules, np.Name, err)
		}
		p.urls = append(p.urls, namedRegexp{name: np.Name, re: re})
	}

	var err error
	if p.phrases, err = compileAll("contact phrase", rules.Contact.Phrases); err != nil {
		return nil, err
	}
	if p.phones, err = compileAll("phone pattern", rules.Contact.PhonePatterns); err != nil {
		return nil, err
	}

	for category, floor := range rules.Price.CategoryFloors {
		p.floors[textnorm.Normalize(category)] = floor
	}

	return p, nil
}

func compileAll(kind string, exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidRules, kind, expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Rules returns a copy of the source rules.
func (p *Policy) Rules() Rules {
	return p.rules
}

// Escalation returns the aggregator thresholds.
func (p *Policy) Escalation() EscalationRules {
	return p.rules.Escalation
}

// HistorySince is the oldest timestamp any extractor needs from history.
func (p *Policy) HistorySince(now time.Time) time.Time {
	return now.Add(-p.rules.HistoryLookback)
}

// DenyOnHistoryFailure reports whether a history outage fails the evaluation closed.
func (p *Policy) DenyOnHistoryFailure() bool {
	return p.rules.HistoryUnavailablePolicy == HistoryPolicyDeny
}

// floorFor returns the minimum plausible price for a raw category name.
func (p *Policy) floorFor(category string) (float64, bool) {
	if category == "" {
		return 0, false
	}
	floor, ok := p.floors[textnorm.Normalize(category)]
	return floor, ok
}
