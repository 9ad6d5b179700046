// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

// Package textnorm canonicalizes free text for comparison and scores
// token-set similarity between canonical strings.
//
// Normalize is the only entry point that should feed text into Jaccard or
// into keyword matching, so every comparison sees the same canonical form.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips diacritics, replaces every rune that is not
// a letter or digit with a space, and collapses runs of whitespace.
//
// Letters outside ASCII survive (Cyrillic, Greek, CJK), only their combining
// marks are removed. The result is stable under a second application.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// A transform.Chain holds state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		// Invalid UTF-8 falls back to the untransformed input.
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))

	pendingSpace := false
	for _, r := range strings.ToLower(stripped) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}

	return b.String()
}

// Tokens splits a normalized string into its distinct whitespace-separated tokens.
func Tokens(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
