package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"triage/internal/format"
	"triage/internal/history"
	"triage/internal/reconcile"
	"triage/internal/store"
)

var recurringFlags struct {
	build       string
	scanBuilds  int
	window      int
	minFailures int
	formatMode  string
}

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Show tests that keep failing across recent builds",
	Long: `Recurring reconciles the newest builds, then walks the stored history
of their failing tests and reports every test whose failure count within
the history window crosses the threshold, with its pass/fail vector and
failure pattern.`,
	RunE: runRecurring,
}

func init() {
	f := recurringCmd.Flags()
	f.StringVar(&recurringFlags.build, "build", "", "Single build tag to anchor on (default: newest in store)")
	f.IntVar(&recurringFlags.scanBuilds, "scan-builds", 1, "How many recent builds to reconcile for failure candidates")
	f.IntVar(&recurringFlags.window, "window", 0, "History window size (default: config history_window)")
	f.IntVar(&recurringFlags.minFailures, "min-failures", 0, "Failure threshold (default: config min_failures)")
	f.StringVar(&recurringFlags.formatMode, "format", "ascii", "Table format: ascii or markdown")
}

func runRecurring(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	window := recurringFlags.window
	if window <= 0 {
		window = cfg.HistoryWindow
	}
	minFailures := recurringFlags.minFailures
	if minFailures <= 0 {
		minFailures = cfg.MinFailures
	}

	builds, err := candidateBuilds(st)
	if err != nil {
		return err
	}

	results, err := history.ReconcileBuilds(cmd.Context(), builds, cfg.Parallelism,
		func(_ context.Context, build string) (*reconcile.Result, error) {
			rows, err := st.RowsByBuild(build)
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				return nil, fmt.Errorf("no rows for build %q", build)
			}
			return reconcile.New().Reconcile(rowsAsRecordRows(rows), nil)
		})
	if err != nil {
		return err
	}

	candidates := history.FailingTests(results)
	if len(candidates) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No failures in the last %d build(s).\n", len(builds))
		return nil
	}
	// The newest build anchors the in-current-run flag.
	current := history.FailingTests(map[string]*reconcile.Result{builds[0]: results[builds[0]]})

	historyRows, err := st.HistoryByTests(candidates, window)
	if err != nil {
		return err
	}
	testHistory := make(map[string][]history.Execution, len(historyRows))
	for name, hr := range historyRows {
		testHistory[name] = history.FromRows(hr)
	}

	found := history.NewDetector(window, minFailures).Detect(testHistory, current)
	if len(found) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No test crossed %d failures in the last %d runs.\n", minFailures, window)
		return nil
	}

	tbl := format.NewTable(format.ParseMode(recurringFlags.formatMode))
	tbl.Header("Test", "Fails", fmt.Sprintf("Last %d", window), "Pattern", "Class", "Flaky")
	for _, rf := range found {
		flaky := ""
		if rf.Flaky {
			flaky = "yes"
		}
		tbl.Row(rf.TestName, rf.Occurrences, format.VectorCell(rf.Vector), rf.Pattern, rf.Classification, flaky)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
	return nil
}

// candidateBuilds resolves which builds to reconcile, newest first.
func candidateBuilds(st store.Store) ([]string, error) {
	if recurringFlags.build != "" {
		return []string{recurringFlags.build}, nil
	}
	builds, err := st.Builds()
	if err != nil {
		return nil, err
	}
	if len(builds) == 0 {
		return nil, fmt.Errorf("store has no builds; run 'triage ingest' first")
	}
	n := recurringFlags.scanBuilds
	if n < 1 {
		n = 1
	}
	if n > len(builds) {
		n = len(builds)
	}
	return builds[:n], nil
}
