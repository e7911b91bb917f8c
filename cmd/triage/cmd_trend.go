package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"triage/internal/format"
	"triage/internal/history"
)

var trendFlags struct {
	builds     int
	formatMode string
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show the pass-rate trend across recent builds",
	RunE:  runTrend,
}

func init() {
	f := trendCmd.Flags()
	f.IntVar(&trendFlags.builds, "builds", 10, "Number of recent builds to compare")
	f.StringVar(&trendFlags.formatMode, "format", "ascii", "Table format: ascii or markdown")
}

func runTrend(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.BuildStats(trendFlags.builds)
	if err != nil {
		return err
	}
	trend := history.AnalyzeTrend(history.RatesFromStats(stats))

	out := cmd.OutOrStdout()
	if len(trend.Builds) == 0 {
		fmt.Fprintln(out, "Store has no builds.")
		return nil
	}

	tbl := format.NewTable(format.ParseMode(trendFlags.formatMode))
	tbl.Header("Build", "Tests", "Pass rate")
	for _, b := range trend.Builds {
		tbl.Row(b.Build, b.Total, format.FmtPercent(b.PassRate))
	}
	tbl.Footer("", "avg", format.FmtPercent(trend.Average))
	fmt.Fprintln(out, tbl.String())
	fmt.Fprintf(out, "Direction: %s (latest %s)\n", trend.Direction, format.FmtPercent(trend.Latest))
	return nil
}
