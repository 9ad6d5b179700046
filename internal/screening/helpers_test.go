// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// testClock is a settable clock safe for concurrent reads.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// words returns "<prefix>1 <prefix>2 ... <prefix>n".
func words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return strings.Join(parts, " ")
}

func floatPtr(v float64) *float64 {
	return &v
}

func testPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := Compile(DefaultRules())
	if err != nil {
		t.Fatalf("Compile(DefaultRules()) error = %v", err)
	}
	return p
}

// cleanSubmission triggers no extractor under DefaultRules.
func cleanSubmission() Submission {
	return Submission{
		ID:      "sub-clean",
		Title:   "Oak dining table",
		Content: "Solid oak table with six chairs, lightly used.",
	}
}

// oneAlertSubmission triggers only the suspicious-URL extractor (MEDIUM).
func oneAlertSubmission() Submission {
	return Submission{
		ID:      "sub-one",
		Title:   "Oak dining table",
		Content: "Photos and details at wa.me/5550001",
	}
}

// twoAlertSubmission triggers suspicious-URL and price-anomaly (both MEDIUM).
func twoAlertSubmission() Submission {
	s := oneAlertSubmission()
	s.ID = "sub-two"
	s.Metadata = Metadata{Price: floatPtr(10), Category: "Vehicles"}
	return s
}

// failingHistory always returns err.
type failingHistory struct {
	err error
}

func (f *failingHistory) FindRecentSubmissions(context.Context, string, time.Time) ([]HistoricalSubmission, error) {
	return nil, f.err
}

// flakyLedger fails the first failures appends, then delegates.
type flakyLedger struct {
	mu       sync.Mutex
	failures int
	calls    int
	next     AlertLedger
}

var errLedgerDown = errors.New("ledger unavailable")

func (f *flakyLedger) AppendAlert(ctx context.Context, a *Alert) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errLedgerDown
	}
	return f.next.AppendAlert(ctx, a)
}

func (f *flakyLedger) AlertStatistics(ctx context.Context) (*AlertStatistics, error) {
	return f.next.AlertStatistics(ctx)
}

// countingExtractor records how many times it ran.
type countingExtractor struct {
	mu    sync.Mutex
	calls int
}

func (c *countingExtractor) Type() AlertType { return AlertTypeVolume }

func (c *countingExtractor) Extract(context.Context, *Input) (*Alert, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return nil, nil
}

func (c *countingExtractor) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestEngine(t *testing.T, store *MemoryStore, clock *testClock, opts ...Option) *Engine {
	t.Helper()
	cfg := EngineConfig{RetryAttempts: 3, RetryDelay: time.Millisecond}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewEngine(testPolicy(t), store, store, store, cfg, opts...)
}
