// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"lowercases", "Wholesale PRICES", "wholesale prices"},
		{"strips diacritics", "Precio de Fábrica, envío GRATIS", "precio de fabrica envio gratis"},
		{"drops punctuation", "Call: +1 (555) 123-4567!!!", "call 1 555 123 4567"},
		{"collapses whitespace", "  bulk \t\n order   now ", "bulk order now"},
		{"keeps cyrillic letters", "Оптом ДЁШЕВО", "оптом дешево"},
		{"only punctuation", "!!! ... ---", ""},
		{"digits kept", "iPhone15 Pro-Max", "iphone15 pro max"},
		{"dotted capital i", "İSTANBUL", "istanbul"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Hello, World!",
		"Crème Brûlée — 50% OFF",
		"Ñandú   über   straße",
		"ОПТОВЫЕ цены; доставка!",
		"İstanbul ǅemal ﬁnance",
		"Ǻ combining soup",
		"tabs\tand\nnewlines\r\n",
		"emoji 🚀 rockets 🚀🚀",
		"日本語のテキスト、句読点。",
		string([]byte{0xff, 0xfe, 'a', 'b'}),
	}

	for _, s := range inputs {
		once := Normalize(s)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: once=%q twice=%q", s, once, twice)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("bulk order bulk now")
	if len(got) != 3 {
		t.Fatalf("len(Tokens) = %d, want 3", len(got))
	}
	for _, want := range []string{"bulk", "order", "now"} {
		if _, ok := got[want]; !ok {
			t.Errorf("Tokens missing %q", want)
		}
	}
}
