package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-u12/internal/duckdb"
)

func newSummaryCmd(a *app) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:     "summary",
		Short:   "Show class counts stored in a results database",
		Example: `  vibe-u12 summary --db u12.duckdb`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return usagef("--db is required")
			}
			return runSummary(a, dbPath)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB results database")
	return cmd
}

func runSummary(a *app, dbPath string) error {
	// Open would create an empty database.
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("results database: %w", err)
	}

	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.CountByClass()
	if err != nil {
		return err
	}
	run, err := store.LastRun()
	if err != nil {
		return err
	}

	w := bufio.NewWriter(a.stdout)
	if run != nil {
		fmt.Fprintf(w, "# run %d finished %s: %d introns, %d skipped\n",
			run.ID, run.FinishedAt.Format("2006-01-02 15:04:05"), run.Introns, run.Skipped)
		for _, in := range run.Inputs {
			state := "unchanged"
			if in.Changed() {
				state = "changed"
			}
			fmt.Fprintf(w, "# %s\t%s\t%s\n", in.Role, in.Path, state)
		}
	}

	fmt.Fprintf(w, "Type\tSubType\tConfidence\tCount\n")
	var total int64
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.Type, c.Subtype, c.Confidence, c.Count)
		total += c.Count
	}
	fmt.Fprintf(w, "Total\t\t\t%d\n", total)
	return w.Flush()
}
