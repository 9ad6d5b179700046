// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"context"
	"errors"
	"testing"
	"time"
)

func historyAt(ages ...time.Duration) []HistoricalSubmission {
	out := make([]HistoricalSubmission, len(ages))
	for i, age := range ages {
		out[i] = HistoricalSubmission{
			Title:     words("old", i+1),
			Content:   "older listing",
			CreatedAt: testNow.Add(-age),
		}
	}
	return out
}

func repeat(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func TestVolumeExtractor(t *testing.T) {
	ex := NewVolumeExtractor(testPolicy(t))

	tests := []struct {
		name       string
		ages       []time.Duration
		wantAlert  bool
		wantSev    Severity
		wantWindow string
		wantDaily  int
	}{
		{name: "no history", ages: nil},
		{name: "two in 24h", ages: repeat(time.Hour, 2)},
		{name: "three in 24h", ages: repeat(time.Hour, 3), wantAlert: true, wantSev: SeverityHigh, wantWindow: "24h", wantDaily: 3},
		{name: "ten in a week", ages: repeat(3*24*time.Hour, 10), wantAlert: true, wantSev: SeverityMedium, wantWindow: "7d"},
		{name: "nine in a week", ages: repeat(3*24*time.Hour, 9)},
		{name: "twenty five in a month", ages: repeat(20*24*time.Hour, 25), wantAlert: true, wantSev: SeverityLow, wantWindow: "30d"},
		{name: "older than a month ignored", ages: repeat(31*24*time.Hour, 40)},
		{name: "daily wins over weekly", ages: append(repeat(time.Hour, 3), repeat(2*24*time.Hour, 10)...), wantAlert: true, wantSev: SeverityHigh, wantWindow: "24h", wantDaily: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := cleanSubmission()
			in := &Input{Submission: &sub, Now: testNow, History: historyAt(tt.ages...)}

			alert, err := ex.Extract(context.Background(), in)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if (alert != nil) != tt.wantAlert {
				t.Fatalf("got alert %v, want alert %v", alert, tt.wantAlert)
			}
			if alert == nil {
				return
			}
			if alert.Severity != tt.wantSev {
				t.Errorf("Severity = %s, want %s", alert.Severity, tt.wantSev)
			}
			if got := alert.Metadata["window"]; got != tt.wantWindow {
				t.Errorf("window = %v, want %s", got, tt.wantWindow)
			}
			if tt.wantDaily > 0 {
				if got := alert.Metadata["dailyCount"]; got != tt.wantDaily {
					t.Errorf("dailyCount = %v, want %d", got, tt.wantDaily)
				}
			}
		})
	}
}

func TestHistoryExtractors_Degrade(t *testing.T) {
	policy := testPolicy(t)
	sub := cleanSubmission()
	in := &Input{Submission: &sub, Now: testNow, HistoryErr: errors.New("timeout")}

	for _, ex := range []Extractor{NewVolumeExtractor(policy), NewDuplicateExtractor(policy)} {
		alert, err := ex.Extract(context.Background(), in)
		if !errors.Is(err, ErrHistoryUnavailable) {
			t.Errorf("%s: error = %v, want ErrHistoryUnavailable", ex.Type(), err)
		}
		if alert != nil {
			t.Errorf("%s: got alert %+v, want nil", ex.Type(), alert)
		}
	}
}

func TestDuplicateExtractor(t *testing.T) {
	ex := NewDuplicateExtractor(testPolicy(t))

	tests := []struct {
		name         string
		title        string
		content      string
		priorTitle   string
		priorContent string
		priorAge     time.Duration
		wantSev      Severity
	}{
		{
			// 19/20 title tokens shared, 1/5 content tokens
			name:         "title 0.95 content 0.2",
			title:        words("t", 20),
			content:      "alpha beta gamma",
			priorTitle:   words("t", 19),
			priorContent: "alpha delta epsilon",
			priorAge:     time.Hour,
			wantSev:      SeverityMedium,
		},
		{
			name:         "title 0.85 content 0.75",
			title:        words("t", 20),
			content:      words("c", 4),
			priorTitle:   words("t", 17),
			priorContent: words("c", 3),
			priorAge:     time.Hour,
			wantSev:      SeverityHigh,
		},
		{
			name:         "title 0.85 content 0.5",
			title:        words("t", 20),
			content:      words("c", 4),
			priorTitle:   words("t", 17),
			priorContent: words("c", 2),
			priorAge:     time.Hour,
		},
		{
			name:         "title 0.5 identical content",
			title:        words("t", 4),
			content:      words("c", 10),
			priorTitle:   words("t", 2),
			priorContent: words("c", 10),
			priorAge:     time.Hour,
		},
		{
			name:         "identical but outside window",
			title:        words("t", 5),
			content:      words("c", 5),
			priorTitle:   words("t", 5),
			priorContent: words("c", 5),
			priorAge:     31 * 24 * time.Hour,
		},
		{
			name:         "case and accents ignored",
			title:        "Bicicleta Eléctrica Nueva",
			content:      "x",
			priorTitle:   "bicicleta electrica NUEVA!",
			priorContent: "y",
			priorAge:     time.Hour,
			wantSev:      SeverityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Submission{Title: tt.title, Content: tt.content}
			in := &Input{
				Submission: &sub,
				Now:        testNow,
				History: []HistoricalSubmission{{
					Title:     tt.priorTitle,
					Content:   tt.priorContent,
					CreatedAt: testNow.Add(-tt.priorAge),
				}},
			}

			alert, err := ex.Extract(context.Background(), in)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if tt.wantSev == "" {
				if alert != nil {
					t.Fatalf("got alert %+v, want none", alert)
				}
				return
			}
			if alert == nil {
				t.Fatalf("got no alert, want %s", tt.wantSev)
			}
			if alert.Severity != tt.wantSev {
				t.Errorf("Severity = %s, want %s", alert.Severity, tt.wantSev)
			}
		})
	}
}

func TestDuplicateExtractor_FirstMatchWins(t *testing.T) {
	ex := NewDuplicateExtractor(testPolicy(t))
	sub := Submission{Title: words("t", 20), Content: words("c", 4)}
	in := &Input{
		Submission: &sub,
		Now:        testNow,
		History: []HistoricalSubmission{
			{Title: words("t", 17), Content: words("c", 3), CreatedAt: testNow.Add(-time.Hour)},
			{Title: words("t", 20), Content: "other", CreatedAt: testNow.Add(-2 * time.Hour)},
		},
	}

	alert, err := ex.Extract(context.Background(), in)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if alert == nil || alert.Severity != SeverityHigh {
		t.Fatalf("got %+v, want HIGH from the newest prior item", alert)
	}
}

func TestKeywordExtractor(t *testing.T) {
	ex := NewKeywordExtractor(testPolicy(t))

	tests := []struct {
		name      string
		content   string
		wantSev   Severity
		wantCount int
	}{
		{name: "two keywords", content: "Wholesale chairs for any reseller"},
		{name: "three keywords", content: "Wholesale chairs, reseller and distributor welcome", wantSev: SeverityMedium, wantCount: 3},
		{name: "five keywords", content: "WHOLESALE, reseller, distributor, dropshipping, mayorista", wantSev: SeverityHigh, wantCount: 5},
		{name: "repeated keyword counts once", content: "wholesale wholesale wholesale reseller"},
		{name: "accented spanish", content: "Envío gratis, descuento y código promocional", wantSev: SeverityMedium, wantCount: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Submission{Title: "Office chairs", Content: tt.content}
			alert, err := ex.Extract(context.Background(), &Input{Submission: &sub, Now: testNow})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if tt.wantSev == "" {
				if alert != nil {
					t.Fatalf("got alert %+v, want none", alert)
				}
				return
			}
			if alert == nil {
				t.Fatalf("got no alert, want %s", tt.wantSev)
			}
			if alert.Severity != tt.wantSev {
				t.Errorf("Severity = %s, want %s", alert.Severity, tt.wantSev)
			}
			if got := alert.Metadata["matchCount"]; got != tt.wantCount {
				t.Errorf("matchCount = %v, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestURLExtractor(t *testing.T) {
	ex := NewURLExtractor(testPolicy(t))

	tests := []struct {
		name        string
		content     string
		externalURL string
		wantSev     Severity
	}{
		{name: "plain text", content: "Pick up downtown"},
		{name: "whatsapp link", content: "Chat at wa.me/15550001", wantSev: SeverityMedium},
		{name: "shortener in external url", content: "See photos", externalURL: "https://bit.ly/abc", wantSev: SeverityMedium},
		{name: "two patterns across fields", content: "Chat at t.me/seller", externalURL: "https://tinyurl.com/x", wantSev: SeverityHigh},
		{name: "same pattern twice is one", content: "wa.me/1 and wa.me/2", wantSev: SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Submission{Content: tt.content, Metadata: Metadata{ExternalURL: tt.externalURL}}
			alert, err := ex.Extract(context.Background(), &Input{Submission: &sub, Now: testNow})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if tt.wantSev == "" {
				if alert != nil {
					t.Fatalf("got alert %+v, want none", alert)
				}
				return
			}
			if alert == nil || alert.Severity != tt.wantSev {
				t.Fatalf("got %+v, want %s", alert, tt.wantSev)
			}
		})
	}
}

func TestPriceExtractor(t *testing.T) {
	ex := NewPriceExtractor(testPolicy(t))

	tests := []struct {
		name     string
		price    *float64
		category string
		wantSev  Severity
	}{
		{name: "no price", category: "vehicles"},
		{name: "below floor", price: floatPtr(100), category: "Vehicles", wantSev: SeverityMedium},
		{name: "zero price not low", price: floatPtr(0), category: "vehicles"},
		{name: "at floor", price: floatPtr(500), category: "vehicles"},
		{name: "unknown category low price", price: floatPtr(1), category: "books"},
		{name: "above ceiling", price: floatPtr(20_000_000), category: "books", wantSev: SeverityLow},
		{name: "above ceiling known category", price: floatPtr(20_000_000), category: "vehicles", wantSev: SeverityLow},
		{name: "normalized category", price: floatPtr(10), category: "  REAL-ESTATE ", wantSev: SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Submission{Metadata: Metadata{Price: tt.price, Category: tt.category}}
			alert, err := ex.Extract(context.Background(), &Input{Submission: &sub, Now: testNow})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if tt.wantSev == "" {
				if alert != nil {
					t.Fatalf("got alert %+v, want none", alert)
				}
				return
			}
			if alert == nil || alert.Severity != tt.wantSev {
				t.Fatalf("got %+v, want %s", alert, tt.wantSev)
			}
		})
	}
}

func TestContactExtractor(t *testing.T) {
	ex := NewContactExtractor(testPolicy(t))

	tests := []struct {
		name    string
		content string
		wantSev Severity
		wantMsg string
	}{
		{name: "nothing", content: "Great condition, pick up only."},
		{name: "contact phrase", content: "Contact me at my personal number", wantSev: SeverityMedium, wantMsg: "external contact request"},
		{name: "spanish phrase", content: "Escríbeme al correo para más fotos", wantSev: SeverityMedium, wantMsg: "external contact request"},
		{name: "two phones", content: "Lines 555-123-4567 and 555-987-6543"},
		{name: "three phones", content: "Lines 555-123-4567, 555-987-6543, 555-222-3333", wantSev: SeverityLow, wantMsg: "repeated phone numbers"},
		{name: "phrase beats phones", content: "Call me at 555-123-4567, 555-987-6543, 555-222-3333", wantSev: SeverityMedium, wantMsg: "external contact request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Submission{Content: tt.content}
			alert, err := ex.Extract(context.Background(), &Input{Submission: &sub, Now: testNow})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if tt.wantSev == "" {
				if alert != nil {
					t.Fatalf("got alert %+v, want none", alert)
				}
				return
			}
			if alert == nil {
				t.Fatalf("got no alert, want %s", tt.wantSev)
			}
			if alert.Severity != tt.wantSev || alert.Description != tt.wantMsg {
				t.Errorf("got %s %q, want %s %q", alert.Severity, alert.Description, tt.wantSev, tt.wantMsg)
			}
		})
	}
}

func TestCountPhones_MergesOverlaps(t *testing.T) {
	policy := testPolicy(t)

	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"no digits here", 0},
		{"+1 555 123 45 67", 1},
		{"(555) 123-4567", 1},
		{"555-12-34 then 555.98.76", 2},
	}

	for _, tt := range tests {
		if got := countPhones(tt.content, policy.phones); got != tt.want {
			t.Errorf("countPhones(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestDefaultExtractors_Types(t *testing.T) {
	extractors := DefaultExtractors(testPolicy(t))
	if len(extractors) != len(AllAlertTypes) {
		t.Fatalf("got %d extractors, want %d", len(extractors), len(AllAlertTypes))
	}
	for i, ex := range extractors {
		if ex.Type() != AllAlertTypes[i] {
			t.Errorf("extractor %d type = %s, want %s", i, ex.Type(), AllAlertTypes[i])
		}
	}
}
