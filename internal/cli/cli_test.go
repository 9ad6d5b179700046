// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const warnedSellerFixture = "../fixture/testdata/warned_seller.yaml"

// runCLI executes guardctl with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Flag variables outlive a single Execute.
	configPath, verbose = "", false
	evalFile, evalFormat = "", "text"
	statsDB, statsFormat = "", "text"

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func holdConfig(t *testing.T) string {
	t.Helper()
	return writeFile(t, "config.yaml", "review:\n  flagged_listing_policy: hold\nsanctions:\n  backend: memory\n")
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "guardctl "+Version) {
		t.Errorf("output = %q, want version %s", out, Version)
	}
}

func TestConfigCheck(t *testing.T) {
	tests := []struct {
		name    string
		config  func(t *testing.T) string
		wantErr bool
		want    []string
	}{
		{
			name:   "valid",
			config: holdConfig,
			want:   []string{"Configuration OK", "flagged listings:    hold", "sanctions backend:   memory", "events:              disabled"},
		},
		{
			name: "invalid backend",
			config: func(t *testing.T) string {
				return writeFile(t, "config.yaml", "sanctions:\n  backend: postgres\n")
			},
			wantErr: true,
		},
		{
			name: "invalid rules",
			config: func(t *testing.T) string {
				return writeFile(t, "config.yaml", "screening:\n  volume:\n    daily_limit: 0\n")
			},
			wantErr: true,
		},
		{
			name: "missing file",
			config: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nope.yaml")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, "config", "check", "--config", tt.config(t))
			if (err != nil) != tt.wantErr {
				t.Fatalf("config check error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	failing := `
name: expects a clean pass
submission:
  title: Oak dining table
  content: Photos and details at wa.me/5550001
expect:
  passed: true
`

	tests := []struct {
		name    string
		args    func(t *testing.T) []string
		wantErr string
		want    []string
	}{
		{
			name: "expectations hold",
			args: func(t *testing.T) []string {
				return []string{"evaluate", "-f", warnedSellerFixture}
			},
			want: []string{"messaging link from a warned seller", "BLOCK (7 days)"},
		},
		{
			name: "json output",
			args: func(t *testing.T) []string {
				return []string{"evaluate", "-o", "json", warnedSellerFixture}
			},
			want: []string{`"evaluation_id"`, `"publishable": false`},
		},
		{
			name: "failed expectation",
			args: func(t *testing.T) []string {
				return []string{"evaluate", "-f", writeFile(t, "fx.yaml", failing), warnedSellerFixture}
			},
			wantErr: "1 of 2 fixtures failed",
			want:    []string{"Expectation failures", "passed: got false, want true"},
		},
		{
			name:    "no fixture",
			args:    func(t *testing.T) []string { return []string{"evaluate"} },
			wantErr: "no fixture given",
		},
		{
			name: "bad format",
			args: func(t *testing.T) []string {
				return []string{"evaluate", "-o", "xml", warnedSellerFixture}
			},
			wantErr: "unknown format",
		},
		{
			name: "missing fixture",
			args: func(t *testing.T) []string {
				return []string{"evaluate", filepath.Join(t.TempDir(), "absent.yaml")}
			},
			wantErr: "read fixture",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args(t), "--config", holdConfig(t))
			out, err := runCLI(t, args...)

			switch {
			case tt.wantErr == "" && err != nil:
				t.Fatalf("evaluate error = %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Fatalf("evaluate error = %v, want %q", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}
