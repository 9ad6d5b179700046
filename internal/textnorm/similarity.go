// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package textnorm

// Jaccard returns |A ∩ B| / |A ∪ B| over the whitespace token sets of a and b.
// Inputs are expected to be normalized already. Either side being empty yields 0.
func Jaccard(a, b string) float64 {
	setA := Tokens(a)
	setB := Tokens(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	// Iterate the smaller set so the result does not depend on argument order.
	small, large := setA, setB
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
