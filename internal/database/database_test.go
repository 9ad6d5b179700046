// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package database

import (
	"strings"
	"testing"
)

func TestConnString(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		threads   int
		maxMemory string
		want      []string
		notWant   []string
	}{
		{
			name:      "file",
			path:      "/data/lg.duckdb",
			threads:   4,
			maxMemory: "1GB",
			want:      []string{"/data/lg.duckdb?", "threads=4", "max_memory=1GB", "access_mode=read_write", "autoinstall_known_extensions=false"},
		},
		{
			name:    "memory",
			path:    MemoryPath,
			threads: 1,
			want:    []string{":memory:?", "threads=1"},
			notWant: []string{"access_mode", "max_memory"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConnString(tt.path, tt.threads, tt.maxMemory)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("ConnString() = %q, missing %q", got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("ConnString() = %q, should not contain %q", got, w)
				}
			}
		})
	}
}
