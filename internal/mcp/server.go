// Package mcp exposes the analysis engine over the Model Context
// Protocol so agent frontends can query builds, recurring failures and
// categories through stdio.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"triage/internal/category"
	"triage/internal/config"
	"triage/internal/history"
	"triage/internal/reconcile"
	"triage/internal/record"
	"triage/internal/store"
)

// Server wraps the MCP SDK server around a result store.
type Server struct {
	MCPServer *sdkmcp.Server

	cfg    config.Config
	st     store.Store
	engine *category.Engine
}

// NewServer creates an MCP server exposing the analysis tools.
func NewServer(cfg config.Config, st store.Store) (*Server, error) {
	engine, err := category.Load()
	if err != nil {
		return nil, fmt.Errorf("load category rules: %w", err)
	}
	s := &Server{cfg: cfg, st: st, engine: engine}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "triage", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "analyze_build",
		Description: "Reconcile one build's stored result rows into unique records and categorize the failures.",
	}, s.handleAnalyzeBuild)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "recurring_failures",
		Description: "Detect tests that keep failing across recent builds, with their pass/fail history vectors.",
	}, s.handleRecurringFailures)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "classify_failure",
		Description: "Run the category rule engine over one failure's evidence and return the winning category with matched rules.",
	}, s.handleClassifyFailure)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "build_trend",
		Description: "Compare pass rates across recent builds and report whether the suite is improving, declining or stable.",
	}, s.handleBuildTrend)
}

// Run serves MCP over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// --- Tool input/output types ---

type analyzeBuildInput struct {
	Build string `json:"build" jsonschema:"build tag whose stored rows to analyze"`
}

type analyzedFailure struct {
	Test      string `json:"test"`
	Status    string `json:"status"`
	Category  string `json:"category"`
	ErrorType string `json:"error_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

type analyzeBuildOutput struct {
	Build             string            `json:"build"`
	Total             int               `json:"total"`
	Passed            int               `json:"passed"`
	Failed            int               `json:"failed"`
	PassRate          float64           `json:"pass_rate"`
	Failures          []analyzedFailure `json:"failures,omitempty"`
	InputRows         int               `json:"input_rows"`
	SkippedRows       int               `json:"skipped_rows,omitempty"`
	DefaultedStatuses int               `json:"defaulted_statuses,omitempty"`
}

type recurringFailuresInput struct {
	Build       string `json:"build,omitempty" jsonschema:"build whose failures seed the search (default: newest build)"`
	Window      int    `json:"window,omitempty" jsonschema:"history window size (default from config)"`
	MinFailures int    `json:"min_failures,omitempty" jsonschema:"minimum failures within the window (default from config)"`
}

type recurringFailure struct {
	Test        string `json:"test"`
	Occurrences int    `json:"occurrences"`
	Vector      string `json:"vector"`
	Pattern     string `json:"pattern"`
	Flaky       bool   `json:"flaky"`
	InCurrent   bool   `json:"in_current_run"`
}

type recurringFailuresOutput struct {
	Build     string             `json:"build"`
	Window    int                `json:"window"`
	Threshold int                `json:"threshold"`
	Recurring []recurringFailure `json:"recurring"`
}

type classifyFailureInput struct {
	TestName          string `json:"test_name,omitempty" jsonschema:"test identity, for logging only"`
	RootCause         string `json:"root_cause" jsonschema:"failure reason or root cause text"`
	RecommendedAction string `json:"recommended_action,omitempty" jsonschema:"suggested fix text, if any"`
	Log               string `json:"log,omitempty" jsonschema:"isolated execution log"`
	PreTag            string `json:"pre_tag,omitempty" jsonschema:"upstream category to re-check"`
}

type matchedRule struct {
	Rule     string `json:"rule"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

type classifyFailureOutput struct {
	Category string        `json:"category"`
	Matches  []matchedRule `json:"matches,omitempty"`
}

type buildTrendInput struct {
	LastN int `json:"last_n,omitempty" jsonschema:"number of recent builds to compare (default from config)"`
}

type trendPoint struct {
	Build    string  `json:"build"`
	PassRate float64 `json:"pass_rate"`
	Total    int     `json:"total"`
}

type buildTrendOutput struct {
	Direction string       `json:"direction"`
	Average   float64      `json:"average_pass_rate"`
	Latest    float64      `json:"latest_pass_rate"`
	Builds    []trendPoint `json:"builds"`
}

// --- Handlers ---

func (s *Server) handleAnalyzeBuild(_ context.Context, _ *sdkmcp.CallToolRequest, in analyzeBuildInput) (*sdkmcp.CallToolResult, analyzeBuildOutput, error) {
	if in.Build == "" {
		return nil, analyzeBuildOutput{}, fmt.Errorf("build is required")
	}
	res, err := s.reconcileBuild(in.Build)
	if err != nil {
		return nil, analyzeBuildOutput{}, err
	}

	out := analyzeBuildOutput{
		Build:             in.Build,
		Total:             res.Summary.Total,
		Passed:            res.Summary.Passed,
		Failed:            res.Summary.Failed,
		PassRate:          res.Summary.PassRate(),
		InputRows:         res.Diag.InputRows,
		SkippedRows:       res.Diag.SkippedRows,
		DefaultedStatuses: res.Diag.DefaultedStatuses,
	}
	for _, rec := range res.Records {
		if !rec.IsFailure() {
			continue
		}
		cat, _ := s.engine.Classify(category.Evidence{
			TestName:  rec.FullName(),
			RootCause: rec.ErrorMessage,
			Log:       rec.CombinedLog(),
		})
		out.Failures = append(out.Failures, analyzedFailure{
			Test:      rec.FullName(),
			Status:    string(rec.Status),
			Category:  string(cat),
			ErrorType: rec.ErrorType,
			Message:   rec.ErrorMessage,
		})
	}
	return nil, out, nil
}

func (s *Server) handleRecurringFailures(_ context.Context, _ *sdkmcp.CallToolRequest, in recurringFailuresInput) (*sdkmcp.CallToolResult, recurringFailuresOutput, error) {
	build := in.Build
	if build == "" {
		builds, err := s.st.Builds()
		if err != nil {
			return nil, recurringFailuresOutput{}, fmt.Errorf("list builds: %w", err)
		}
		if len(builds) == 0 {
			return nil, recurringFailuresOutput{}, fmt.Errorf("no builds stored")
		}
		build = builds[0]
	}
	window := in.Window
	if window <= 0 {
		window = s.cfg.HistoryWindow
	}
	threshold := in.MinFailures
	if threshold <= 0 {
		threshold = s.cfg.MinFailures
	}

	res, err := s.reconcileBuild(build)
	if err != nil {
		return nil, recurringFailuresOutput{}, err
	}
	var failing []string
	for _, rec := range res.Records {
		if rec.IsFailure() {
			failing = append(failing, rec.FullName())
		}
	}

	rows, err := s.st.HistoryByTests(failing, window)
	if err != nil {
		return nil, recurringFailuresOutput{}, fmt.Errorf("load history: %w", err)
	}
	testHistory := make(map[string][]history.Execution, len(rows))
	for name, rr := range rows {
		testHistory[name] = history.FromRows(rr)
	}

	detected := history.NewDetector(window, threshold).Detect(testHistory, failing)
	out := recurringFailuresOutput{Build: build, Window: window, Threshold: threshold}
	for _, rf := range detected {
		out.Recurring = append(out.Recurring, recurringFailure{
			Test:        rf.TestName,
			Occurrences: rf.Occurrences,
			Vector:      rf.Vector.String(),
			Pattern:     rf.Pattern,
			Flaky:       rf.Flaky,
			InCurrent:   rf.InCurrentRun,
		})
	}
	return nil, out, nil
}

func (s *Server) handleClassifyFailure(_ context.Context, _ *sdkmcp.CallToolRequest, in classifyFailureInput) (*sdkmcp.CallToolResult, classifyFailureOutput, error) {
	cat, matches := s.engine.Classify(category.Evidence{
		TestName:          in.TestName,
		RootCause:         in.RootCause,
		RecommendedAction: in.RecommendedAction,
		Log:               in.Log,
		PreTag:            category.Category(in.PreTag),
	})
	out := classifyFailureOutput{Category: string(cat)}
	for _, m := range matches {
		out.Matches = append(out.Matches, matchedRule{
			Rule:     m.Rule,
			Category: string(m.Category),
			Priority: m.RulePriority,
		})
	}
	return nil, out, nil
}

func (s *Server) handleBuildTrend(_ context.Context, _ *sdkmcp.CallToolRequest, in buildTrendInput) (*sdkmcp.CallToolResult, buildTrendOutput, error) {
	lastN := in.LastN
	if lastN <= 0 {
		lastN = s.cfg.HistoryWindow
	}
	stats, err := s.st.BuildStats(lastN)
	if err != nil {
		return nil, buildTrendOutput{}, fmt.Errorf("build stats: %w", err)
	}
	trend := history.AnalyzeTrend(history.RatesFromStats(stats))
	out := buildTrendOutput{
		Direction: trend.Direction,
		Average:   trend.Average,
		Latest:    trend.Latest,
	}
	for _, b := range trend.Builds {
		out.Builds = append(out.Builds, trendPoint{Build: b.Build, PassRate: b.PassRate, Total: b.Total})
	}
	return nil, out, nil
}

func (s *Server) reconcileBuild(build string) (*reconcile.Result, error) {
	rows, err := s.st.RowsByBuild(build)
	if err != nil {
		return nil, fmt.Errorf("rows for build %s: %w", build, err)
	}
	in := make([]record.Row, len(rows))
	for i, r := range rows {
		in[i] = r
	}
	return reconcile.New().Reconcile(in, nil)
}
