// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package cli

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/listingguard/internal/database"
	"github.com/tomtom215/listingguard/internal/screening"
)

var (
	statsDB     string
	statsFormat string
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsDB, "db", "", "DuckDB file (default: database.path from config)")
	statsCmd.Flags().StringVarP(&statsFormat, "format", "o", "text", "Output format (text|json)")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print alert ledger statistics from a DuckDB file",
	Long: "Opens the DuckDB file directly and prints alert totals by type, severity\n" +
		"and action, plus the number of actors blocked right now. Blocked actors\n" +
		"are counted from the DuckDB sanction table only.\n\n" +
		"DuckDB allows one writer per file: stop the server or point --db at a copy.",
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsFormat != "text" && statsFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", statsFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbCfg := cfg.Database
	if statsDB != "" {
		dbCfg.Path = statsDB
	}

	ctx := cmd.Context()
	db, err := database.Open(ctx, &dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store := screening.NewDuckDBStore(db)
	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	stats, err := store.AlertStatistics(ctx)
	if err != nil {
		return err
	}
	stats.BlockedActorCount, err = store.CountBlockedActors(ctx, time.Now())
	if err != nil {
		return err
	}

	if statsFormat == "json" {
		js, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(js))
		return nil
	}
	writeStats(cmd.OutOrStdout(), dbCfg.Path, stats)
	return nil
}

func writeStats(w io.Writer, path string, s *screening.AlertStatistics) {
	fmt.Fprintf(w, "Ledger: %s\n\n", path)
	fmt.Fprintf(w, "  total alerts:     %d\n", s.TotalAlerts)
	fmt.Fprintf(w, "  unresolved:       %d\n", s.UnresolvedAlerts)
	fmt.Fprintf(w, "  critical:         %d\n", s.CriticalAlerts)
	fmt.Fprintf(w, "  blocked actors:   %d\n", s.BlockedActorCount)

	writeCounts(w, "By type", s.AlertsByType)
	writeCounts(w, "By severity", s.AlertsBySeverity)
	writeCounts(w, "By action", s.AlertsByAction)
}

func writeCounts[K ~string](w io.Writer, title string, counts map[K]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fmt.Fprintf(w, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-22s %d\n", k, counts[k])
	}
}
