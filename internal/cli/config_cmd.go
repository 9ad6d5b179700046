// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/listingguard/internal/screening"
)

func init() {
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load, validate and compile the configuration",
	Long: "Loads defaults, the config file and environment overrides exactly as the\n" +
		"server does, validates every section and compiles the screening rules.\n" +
		"Exits non-zero on the first problem.",
	RunE: runConfigCheck,
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	policy, err := screening.Compile(cfg.Screening)
	if err != nil {
		return err
	}

	rules := policy.Rules()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration OK")
	fmt.Fprintf(out, "  listen:              %s\n", cfg.Server.Addr())
	fmt.Fprintf(out, "  database:            %s\n", cfg.Database.Path)
	fmt.Fprintf(out, "  sanctions backend:   %s\n", cfg.Sanctions.Backend)
	fmt.Fprintf(out, "  flagged listings:    %s\n", cfg.Review.FlaggedListingPolicy)
	if cfg.Events.Enabled {
		fmt.Fprintf(out, "  events:              %s (%s -> %s)\n", cfg.Events.Transport, cfg.Events.SubmittedTopic, cfg.Events.ScreenedTopic)
	} else {
		fmt.Fprintln(out, "  events:              disabled")
	}
	fmt.Fprintf(out, "  keywords:            %d terms\n", len(rules.Keywords.Terms))
	fmt.Fprintf(out, "  url patterns:        %d\n", len(rules.URLs.Patterns))
	fmt.Fprintf(out, "  contact phrases:     %d\n", len(rules.Contact.Phrases))
	fmt.Fprintf(out, "  escalation:          warn->temp at %d, perm at %d, temp block %dd\n",
		rules.Escalation.WarningsBeforeTempBlock, rules.Escalation.WarningsBeforePermBlock, rules.Escalation.TempBlockDays)
	fmt.Fprintf(out, "  history unavailable: %s\n", rules.HistoryUnavailablePolicy)
	return nil
}
