package main

import (
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"

	"triage/internal/category"
	"triage/internal/format"
	"triage/internal/isolate"
	"triage/internal/logging"
	"triage/internal/reconcile"
	"triage/internal/record"
	"triage/internal/rootcause"
	"triage/internal/store"
	"triage/internal/urlbuild"
)

var analyzeFlags struct {
	build      string
	report     string
	reportName string
	durations  string
	links      string
	rules      string
	output     string
	formatMode string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Reconcile one build's rows with report evidence and categorize failures",
	Long: `Analyze merges the stored result rows of one build with the execution
logs isolated from a report page, collapses duplicate rows into one
record per test, and categorizes every failure.`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.build, "build", "", "Build tag to analyze (default: newest in store)")
	f.StringVar(&analyzeFlags.report, "report", "", "Path to the report page to isolate per-test logs from")
	f.StringVar(&analyzeFlags.reportName, "report-name", "", "Report name for dashboard links, e.g. Regression-AccountOpening-Tests-420")
	f.StringVar(&analyzeFlags.durations, "durations", "", "Path to JSON map of test name to duration in seconds")
	f.StringVar(&analyzeFlags.links, "links", "", "Path to JSON map of test name to report html path")
	f.StringVar(&analyzeFlags.rules, "rules", "", "Category rule file overriding the built-in set")
	f.StringVarP(&analyzeFlags.output, "output", "o", "", "Write the full analysis as JSON to this path")
	f.StringVar(&analyzeFlags.formatMode, "format", "ascii", "Table format: ascii or markdown")
}

// analysisArtifact is the JSON shape written by -o.
type analysisArtifact struct {
	Build    string                `json:"build"`
	Summary  record.Summary        `json:"summary"`
	Diag     reconcile.Diagnostics `json:"diagnostics"`
	Failures []failureFinding      `json:"failures"`
}

type failureFinding struct {
	TestName string   `json:"test_name"`
	Status   string   `json:"status"`
	Reason   string   `json:"reason,omitempty"`
	Category string   `json:"category"`
	Endpoint string   `json:"endpoint,omitempty"`
	Rules    []string `json:"rules,omitempty"`
	Duration float64  `json:"duration_seconds,omitempty"`
	Link     string   `json:"link,omitempty"`
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	log := logging.New("analyze")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	build, err := resolveBuild(st, analyzeFlags.build)
	if err != nil {
		return err
	}
	rows, err := st.RowsByBuild(build)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no rows for build %q", build)
	}

	cache := reconcile.NewCache()
	degraded, err := isolateLogs(cache, rows)
	if err != nil {
		return err
	}
	if degraded > 0 {
		log.Warn("log isolation degraded to whole report", "tests", degraded)
	}

	if analyzeFlags.durations != "" {
		var durations map[string]float64
		if err := readJSONFile(analyzeFlags.durations, &durations); err != nil {
			return err
		}
		for name, d := range durations {
			cache.PutDuration(name, d)
		}
	}
	if err := cacheDashboardLinks(cache); err != nil {
		return err
	}

	res, err := reconcile.New().Reconcile(rowsAsRecordRows(rows), cache)
	if err != nil {
		return fmt.Errorf("reconcile build %q: %w", build, err)
	}

	engine, err := loadRuleEngine()
	if err != nil {
		return err
	}

	var findings []failureFinding
	for _, rec := range res.Records {
		if !rec.IsFailure() {
			continue
		}
		cat, matches := engine.Classify(category.Evidence{
			TestName:  rec.FullName(),
			RootCause: rec.ErrorMessage,
			Log:       rec.CombinedLog(),
		})
		endpoint := rootcause.ExtractAPIEndpoint(rec.ErrorMessage)
		if endpoint == "" {
			endpoint = rootcause.ExtractAPIEndpoint(rec.CombinedLog())
		}
		finding := failureFinding{
			TestName: rec.FullName(),
			Status:   string(rec.Status),
			Reason:   rec.ErrorMessage,
			Category: string(cat),
			Endpoint: endpoint,
			Duration: rec.Duration,
			Link:     rec.HTMLLink,
		}
		for _, m := range matches {
			finding.Rules = append(finding.Rules, m.Rule)
		}
		findings = append(findings, finding)
	}

	printAnalysis(cmd, build, res, findings)

	if analyzeFlags.output != "" {
		artifact := analysisArtifact{
			Build:    build,
			Summary:  res.Summary,
			Diag:     res.Diag,
			Failures: findings,
		}
		if err := writeJSONFile(analyzeFlags.output, artifact); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Artifact: %s\n", analyzeFlags.output)
	}
	return nil
}

func loadRuleEngine() (*category.Engine, error) {
	if analyzeFlags.rules != "" {
		return category.LoadFile(analyzeFlags.rules)
	}
	return category.Load()
}

// isolateLogs carves per-test spans out of the report page, when one was
// given, and feeds them into the cache. Returns how many spans fell back
// to the whole page.
func isolateLogs(cache *reconcile.Cache, rows []store.ResultRow) (int, error) {
	if analyzeFlags.report == "" {
		return 0, nil
	}
	data, err := os.ReadFile(analyzeFlags.report)
	if err != nil {
		return 0, fmt.Errorf("read report: %w", err)
	}
	text := isolate.ExtractLogText(string(data))
	if text == "" {
		// Plain-text report, no styled markup to strip.
		text = string(data)
	}

	iso := isolate.New(cfg.Isolate)
	seen := map[string]bool{}
	degraded := 0
	for _, row := range rows {
		name := row.TestcaseName()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		span := iso.Isolate(text, name)
		if span.Text == "" {
			continue
		}
		if span.Degraded {
			degraded++
		}
		cache.PutLog(name, span.Text)
	}
	return degraded, nil
}

// cacheDashboardLinks turns the raw html paths in the links file into
// full dashboard URLs.
func cacheDashboardLinks(cache *reconcile.Cache) error {
	if analyzeFlags.links == "" {
		return nil
	}
	var htmlPaths map[string]string
	if err := readJSONFile(analyzeFlags.links, &htmlPaths); err != nil {
		return err
	}
	for name, htmlPath := range htmlPaths {
		project, job := urlbuild.ProjectJobFromPath(path.Dir(urlbuild.NormalizePath(htmlPath)))
		cache.PutLink(name, urlbuild.DashboardURL(cfg.DashboardBaseURL, analyzeFlags.reportName, path.Base(urlbuild.NormalizePath(htmlPath)), project, job))
	}
	return nil
}

func printAnalysis(cmd *cobra.Command, build string, res *reconcile.Result, findings []failureFinding) {
	out := cmd.OutOrStdout()
	mode := format.ParseMode(analyzeFlags.formatMode)

	fmt.Fprintf(out, "Build %s: %d tests, %d passed, %d failed, %d errors, %s pass rate\n",
		build, res.Summary.Total, res.Summary.Passed, res.Summary.Failed, res.Summary.Errors,
		format.FmtPercent(res.Summary.PassRate()))
	if res.Diag.SkippedRows > 0 || res.Diag.DefaultedStatuses > 0 {
		fmt.Fprintf(out, "Diagnostics: %d rows skipped, %d statuses defaulted\n",
			res.Diag.SkippedRows, res.Diag.DefaultedStatuses)
	}
	if len(findings) == 0 {
		fmt.Fprintln(out, "No failures.")
		return
	}

	tbl := format.NewTable(mode)
	tbl.Header("Test", "Status", "Category", "Duration", "Reason")
	for _, f := range findings {
		mark := format.StatusMark(record.Status(f.Status))
		tbl.Row(f.TestName, mark+" "+f.Status, f.Category, format.FmtSeconds(f.Duration), format.Truncate(f.Reason, 60))
	}
	fmt.Fprintln(out, tbl.String())
}
