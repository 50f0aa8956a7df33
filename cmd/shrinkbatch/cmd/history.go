package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gwlsn/shrinkbatch/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history [output_path]",
	Short: "Show recent runs",
	Long: `Show the most recent runs recorded in the history database.

The database lives at <output_path>/_stats/history.db unless history_path is
set in the config file.

Examples:
  shrinkbatch history ~/Videos/compressed
  shrinkbatch history --limit 5 --results ~/Videos/compressed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 10, "number of runs to show")
	historyCmd.Flags().Bool("results", false, "list per-file results of each run")
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	withResults, _ := cmd.Flags().GetBool("results")

	outputRoot := ""
	if len(args) == 1 {
		outputRoot = args[0]
	}
	if outputRoot == "" && cfg.HistoryPath == "" {
		return errors.New("history: pass the output path or set history_path")
	}

	path := cfg.ResolveHistoryPath(outputRoot)
	out := cmd.OutOrStdout()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(out, "No history at %s\n", path)
		return nil
	}

	db, err := store.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	saved, err := db.LifetimeSaved()
	if err != nil {
		return fmt.Errorf("reading lifetime stats: %w", err)
	}

	printRuns(out, runs, saved)

	if withResults {
		for _, run := range runs {
			results, err := db.GetResults(run.ID)
			if err != nil {
				return fmt.Errorf("listing results: %w", err)
			}
			printResults(out, run, results)
		}
	}
	return nil
}

func printRuns(w io.Writer, runs []*store.Run, lifetimeSaved int64) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	for _, run := range runs {
		status := "unfinished"
		if run.Finished() {
			status = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s  %-12s q=%-2d %3d total  %3d encoded  %3d remuxed  %3d skipped  %3d failed  saved %-8s %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Engine,
			run.Quality,
			run.Total, run.Encoded, run.Remuxed, run.Skipped, run.Failed,
			signedBytes(run.SpaceSaved()),
			status,
		)
	}
	fmt.Fprintf(w, "Lifetime saved: %s\n", humanize.Bytes(uint64(max(lifetimeSaved, 0))))
}

func printResults(w io.Writer, run *store.Run, results []*store.ResultRecord) {
	fmt.Fprintf(w, "\nRun %s (%s → %s)\n", run.ID, run.InputRoot, run.OutputRoot)
	for _, rec := range results {
		line := fmt.Sprintf("  %-8s %s", rec.Outcome, rec.InputPath)
		if rec.Error != "" {
			line += ": " + rec.Error
		}
		fmt.Fprintln(w, line)
	}
}

// signedBytes formats n with a leading minus when the outputs grew.
func signedBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}
