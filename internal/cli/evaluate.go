// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/listingguard/internal/fixture"
	"github.com/tomtom215/listingguard/internal/screening"
)

var (
	evalFile   string
	evalFormat string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVarP(&evalFile, "file", "f", "", "Fixture YAML file")
	evaluateCmd.Flags().StringVarP(&evalFormat, "format", "o", "text", "Output format (text|json)")
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [-f fixture.yaml] [fixture.yaml...]",
	Short: "Dry-run screening fixtures against the configured rules",
	Long: "Runs each fixture's submission through the extractors and the decision\n" +
		"aggregator using the configured rules. Nothing is written to any store.\n\n" +
		"Fixtures with an expect block are checked; any mismatch exits non-zero.",
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	files := args
	if evalFile != "" {
		files = append([]string{evalFile}, args...)
	}
	if len(files) == 0 {
		return errors.New("no fixture given (use -f or pass paths)")
	}
	if evalFormat != "text" && evalFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", evalFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	policy, err := screening.Compile(cfg.Screening)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for i, path := range files {
		fx, err := fixture.Load(path)
		if err != nil {
			return err
		}
		res, err := fixture.Run(cmd.Context(), policy, cfg.Review, fx)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if res.Name == "" {
			res.Name = path
		}
		if !res.OK() {
			failed++
		}

		switch evalFormat {
		case "json":
			js, err := fixture.FormatJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, js)
		default:
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprint(out, fixture.FormatText(res))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fixtures failed their expectations", failed, len(files))
	}
	return nil
}
