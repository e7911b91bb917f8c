package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"triage/internal/reconcile"
	"triage/internal/record"
	"triage/internal/store"
)

// execs builds a newest-first execution list from status tokens given
// newest first.
func execs(statuses ...string) []Execution {
	out := make([]Execution, len(statuses))
	for i, s := range statuses {
		out[i] = Execution{ID: int64(len(statuses) - i), Build: fmt.Sprintf("b%d", len(statuses)-i), Status: s}
	}
	return out
}

func TestBuildVector_WidthInvariant(t *testing.T) {
	cases := []struct {
		name  string
		execs []Execution
	}{
		{"no executions", nil},
		{"three executions", execs("FAIL", "PASS", "FAIL")},
		{"fifty executions", execs(make([]string, 50)...)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vector, details := BuildVector(tc.execs, DefaultWindow)
			if len(vector) != DefaultWindow || len(details) != DefaultWindow {
				t.Fatalf("got vector %d details %d, want exactly %d each", len(vector), len(details), DefaultWindow)
			}
		})
	}
}

func TestBuildVector_PadsOldSideWithPasses(t *testing.T) {
	// Given three executions, newest first: FAIL, FAIL, PASS
	vector, details := BuildVector(execs("FAIL", "FAIL", "PASS"), DefaultWindow)

	// Then the vector reads oldest to newest with padded passes leading
	if got := vector.String(); got != "PPPPPPPPFF" {
		t.Fatalf("vector = %s, want PPPPPPPPFF", got)
	}
	for i := 0; i < 7; i++ {
		if !details[i].Padded {
			t.Fatalf("slot %d not marked padded", i)
		}
	}
	if details[7].Padded || details[7].Status != record.StatusPass {
		t.Fatalf("slot 7 = %+v, want real pass", details[7])
	}
	if details[9].Status != record.StatusFail || details[9].Build != "b3" {
		t.Fatalf("newest slot = %+v, want newest failure", details[9])
	}
}

func TestBuildVector_TruncatesToNewestWindow(t *testing.T) {
	// Given twelve executions, newest first: ten FAILs then two PASSes
	statuses := make([]string, 0, 12)
	for i := 0; i < 10; i++ {
		statuses = append(statuses, "FAIL")
	}
	statuses = append(statuses, "PASS", "PASS")

	vector, details := BuildVector(execs(statuses...), DefaultWindow)

	// Then only the newest ten survive, with no padding
	if got := vector.String(); got != "FFFFFFFFFF" {
		t.Fatalf("vector = %s, want all failures", got)
	}
	for _, det := range details {
		if det.Padded {
			t.Fatalf("slot %d padded despite full history", det.Index)
		}
	}
	if vector.Failures() != 10 {
		t.Fatalf("failures = %d, want 10", vector.Failures())
	}
}

func TestBuildVector_UnknownStatusCountsAsPass(t *testing.T) {
	vector, _ := BuildVector(execs("RUNNING", "FAIL"), 2)
	if got := vector.String(); got != "FP" {
		t.Fatalf("vector = %s, want FP", got)
	}
}

func TestDetect_RecomputedCountIsAuthoritative(t *testing.T) {
	// Given twelve executions of which ten failed, newest first:
	// PASS, PASS, then ten FAILs. The window keeps the newest ten, so
	// only eight failures remain countable.
	statuses := []string{"PASS", "PASS"}
	for i := 0; i < 10; i++ {
		statuses = append(statuses, "FAIL")
	}
	hist := map[string][]Execution{"Login.verifyLogin": execs(statuses...)}

	got := NewDetector(DefaultWindow, 5).Detect(hist, nil)
	if len(got) != 1 {
		t.Fatalf("got %d recurring, want 1", len(got))
	}
	rf := got[0]
	if rf.Occurrences != 8 {
		t.Fatalf("occurrences = %d, want 8 from the windowed vector", rf.Occurrences)
	}
	if rf.Occurrences != rf.Vector.Failures() {
		t.Fatal("occurrences disagrees with the vector it is shown next to")
	}
}

func TestDetect_ThresholdFilters(t *testing.T) {
	hist := map[string][]Execution{
		"Login.often":  execs("FAIL", "FAIL", "FAIL", "FAIL", "FAIL", "PASS"),
		"Login.rarely": execs("FAIL", "PASS", "PASS", "PASS", "PASS", "PASS"),
	}

	got := NewDetector(DefaultWindow, 5).Detect(hist, nil)
	if len(got) != 1 || got[0].TestName != "Login.often" {
		t.Fatalf("got %+v, want only Login.often", got)
	}
}

func TestDetect_PatternLabels(t *testing.T) {
	sameReason := "TimeoutException: 'HomePage' NOT loaded even after :- 40.071 seconds"
	otherReason := "AssertionError: expected 'A' but actual 'B'"

	fail := func(reason string) Execution {
		return Execution{Status: "FAIL", Reason: reason}
	}

	cases := []struct {
		name  string
		execs []Execution
		want  string
	}{
		{
			// All ten slots fail for one normalized cause.
			name: "continuous same",
			execs: []Execution{
				fail(sameReason), fail(sameReason), fail(sameReason), fail(sameReason), fail(sameReason),
				fail(sameReason), fail(sameReason), fail(sameReason), fail(sameReason),
				fail("TimeoutException: 'HomePage' NOT loaded even after :- 12.5 seconds"),
			},
			want: PatternContinuousSame,
		},
		{
			name: "intermittent different",
			execs: []Execution{
				fail(sameReason), {Status: "PASS"}, fail(otherReason),
				{Status: "PASS"}, fail(sameReason), fail(otherReason), fail(sameReason),
			},
			want: PatternIntermittentDiff,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewDetector(DefaultWindow, 5).Detect(map[string][]Execution{"t": tc.execs}, nil)
			if len(got) != 1 {
				t.Fatalf("got %d recurring, want 1", len(got))
			}
			if got[0].Pattern != tc.want {
				t.Fatalf("pattern = %q, want %q", got[0].Pattern, tc.want)
			}
		})
	}
}

func TestDetect_SortsByCountThenSeverity(t *testing.T) {
	reason := "NoSuchElementException: locator missing"
	hist := map[string][]Execution{
		"a.fiveIntermittent": {
			{Status: "FAIL", Reason: reason}, {Status: "PASS"}, {Status: "FAIL", Reason: reason},
			{Status: "FAIL", Reason: reason}, {Status: "FAIL", Reason: reason}, {Status: "FAIL", Reason: reason},
		},
		"b.sevenStraight": {
			{Status: "FAIL", Reason: reason}, {Status: "FAIL", Reason: reason}, {Status: "FAIL", Reason: reason},
			{Status: "FAIL", Reason: reason}, {Status: "FAIL", Reason: reason}, {Status: "FAIL", Reason: reason},
			{Status: "FAIL", Reason: reason},
		},
	}

	got := NewDetector(DefaultWindow, 5).Detect(hist, nil)
	if len(got) != 2 || got[0].TestName != "b.sevenStraight" {
		t.Fatalf("order = %v, want highest count first", names(got))
	}
}

func names(rfs []RecurringFailure) []string {
	out := make([]string, len(rfs))
	for i, rf := range rfs {
		out[i] = rf.TestName
	}
	return out
}

func TestDetect_CurrentFailurePlaceholderReason(t *testing.T) {
	hist := map[string][]Execution{
		"Login.verifyLogin": execs("FAIL", "FAIL", "FAIL", "FAIL", "FAIL"),
	}

	got := NewDetector(DefaultWindow, 5).Detect(hist, []string{"Login.verifyLogin"})
	if len(got) != 1 {
		t.Fatalf("got %d recurring, want 1", len(got))
	}
	newest := got[0].Details[DefaultWindow-1]
	if newest.Reason != "Test failed in current build" {
		t.Fatalf("newest reason = %q, want placeholder", newest.Reason)
	}
	if !got[0].InCurrentRun {
		t.Fatal("InCurrentRun not set")
	}
}

func TestClassifyReason(t *testing.T) {
	cases := []struct {
		reason string
		want   string
	}{
		{"AssertionError: expected 'A' but actual 'B'", "PRODUCT_BUG"},
		{"NoSuchElementException: locator missing", "AUTOMATION_ISSUE"},
		{"HTTP 500 from backend", "PRODUCT_BUG"},
		{"something odd happened", "UNKNOWN"},
		{"", "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := ClassifyReason(tc.reason); got != tc.want {
			t.Errorf("ClassifyReason(%q) = %s, want %s", tc.reason, got, tc.want)
		}
	}
}

func TestAnalyzeTrend(t *testing.T) {
	rate := func(build string, pct float64) BuildRate {
		return BuildRate{Build: build, PassRate: pct}
	}

	cases := []struct {
		name  string
		rates []BuildRate
		want  string
	}{
		{"no data", nil, TrendNoData},
		{"one build", []BuildRate{rate("b1", 90)}, TrendInsufficientData},
		{"improving", []BuildRate{rate("b1", 60), rate("b2", 65), rate("b3", 85), rate("b4", 90)}, TrendImproving},
		{"declining", []BuildRate{rate("b1", 95), rate("b2", 90), rate("b3", 70), rate("b4", 60)}, TrendDeclining},
		{"stable", []BuildRate{rate("b1", 88), rate("b2", 90), rate("b3", 89), rate("b4", 91)}, TrendStable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AnalyzeTrend(tc.rates)
			if got.Direction != tc.want {
				t.Fatalf("direction = %s, want %s", got.Direction, tc.want)
			}
		})
	}
}

func TestRatesFromStats(t *testing.T) {
	stats := []store.BuildStat{
		{Build: "b1", Total: 4, Failed: 1},
		{Build: "b2", Total: 10, Failed: 0},
	}
	got := RatesFromStats(stats)
	want := []BuildRate{
		{Build: "b1", PassRate: 75, Total: 4},
		{Build: "b2", PassRate: 100, Total: 10},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rates mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileBuilds(t *testing.T) {
	builds := []string{"b1", "b2", "b3"}

	results, err := ReconcileBuilds(context.Background(), builds, 2, func(_ context.Context, build string) (*reconcile.Result, error) {
		return &reconcile.Result{Records: []*record.Record{
			{Class: "Login", Method: "verify_" + build, Status: record.StatusFail},
		}}, nil
	})
	if err != nil {
		t.Fatalf("ReconcileBuilds: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	failing := FailingTests(results)
	if len(failing) != 3 {
		t.Fatalf("got %d failing tests, want 3", len(failing))
	}
}

func TestReconcileBuilds_FirstErrorWins(t *testing.T) {
	_, err := ReconcileBuilds(context.Background(), []string{"b1", "b2"}, 1, func(_ context.Context, build string) (*reconcile.Result, error) {
		if build == "b1" {
			return nil, fmt.Errorf("boom")
		}
		return &reconcile.Result{}, nil
	})
	if err == nil {
		t.Fatal("want error propagated")
	}
}

func TestSortNewestFirst(t *testing.T) {
	// Given executions out of order, some without ordinals
	in := []Execution{
		{ID: 2, Date: "2026-02-01T00:00:00Z"},
		{ID: 5, Date: "2026-05-01T00:00:00Z"},
		{ID: 0, Date: "2026-03-01T00:00:00Z"},
		{ID: 0, Date: "2026-01-01T00:00:00Z"},
	}

	SortNewestFirst(in)

	// Then ordinals win over dates, dates break ordinal ties
	got := make([]int64, len(in))
	for i, e := range in {
		got[i] = e.ID
	}
	want := []int64{5, 2, 0, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if in[2].Date != "2026-03-01T00:00:00Z" {
		t.Fatalf("ordinal-less executions not ordered by date: %+v", in)
	}
}
