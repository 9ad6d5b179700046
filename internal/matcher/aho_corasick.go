// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

// Package matcher provides multi-pattern substring search over normalized text.
package matcher

import "strings"

// Automaton is an Aho-Corasick automaton over a fixed keyword set.
// It finds every keyword occurring in a text in O(n + m + z) time, where
// n is the text length, m the total keyword length and z the match count.
//
// An Automaton is immutable once built and safe for concurrent use.
//
//	a := matcher.New([]string{"wholesale", "bulk order", "al por mayor"})
//	hits := a.Distinct("bulk order at wholesale price")
//	// hits == []string{"bulk order", "wholesale"}
type Automaton struct {
	root     *node
	keywords []string
}

type node struct {
	children map[rune]*node
	fail     *node
	// output holds indices into keywords that end at this node, including
	// those inherited through the failure chain.
	output []int
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// New builds an automaton over keywords. Keywords are lowercased; empty and
// repeated keywords are dropped.
func New(keywords []string) *Automaton {
	a := &Automaton{root: newNode()}

	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		a.insert(len(a.keywords), kw)
		a.keywords = append(a.keywords, kw)
	}

	a.link()
	return a
}

func (a *Automaton) insert(index int, keyword string) {
	n := a.root
	for _, ch := range keyword {
		next, ok := n.children[ch]
		if !ok {
			next = newNode()
			n.children[ch] = next
		}
		n = next
	}
	n.output = append(n.output, index)
}

// link wires failure transitions breadth-first.
func (a *Automaton) link() {
	queue := make([]*node, 0, len(a.root.children))
	for _, child := range a.root.children {
		child.fail = a.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for ch, child := range current.children {
			queue = append(queue, child)

			f := current.fail
			for f != nil {
				if target, ok := f.children[ch]; ok {
					child.fail = target
					break
				}
				f = f.fail
			}
			if child.fail == nil {
				child.fail = a.root
			}
			child.output = append(child.output, child.fail.output...)
		}
	}
}

// Len returns the number of distinct keywords in the automaton.
func (a *Automaton) Len() int {
	return len(a.keywords)
}

// Distinct returns each keyword found in text exactly once, in order of
// first occurrence. Matching is case-insensitive.
func (a *Automaton) Distinct(text string) []string {
	if len(a.keywords) == 0 || text == "" {
		return nil
	}

	found := make([]bool, len(a.keywords))
	var hits []string

	n := a.root
	for _, ch := range strings.ToLower(text) {
		for n != a.root {
			if _, ok := n.children[ch]; ok {
				break
			}
			n = n.fail
		}
		if next, ok := n.children[ch]; ok {
			n = next
		}

		for _, idx := range n.output {
			if !found[idx] {
				found[idx] = true
				hits = append(hits, a.keywords[idx])
			}
		}
	}

	return hits
}
