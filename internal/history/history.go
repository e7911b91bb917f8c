// Package history builds fixed-width pass/fail vectors from stored
// executions and detects recurring failures across builds.
package history

import (
	"log/slog"
	"sort"
	"strings"

	"triage/internal/logging"
	"triage/internal/record"
	"triage/internal/rootcause"
	"triage/internal/store"
)

// DefaultWindow is the number of most recent executions a vector covers.
const DefaultWindow = 10

// Execution is one stored run of a test. Slices are newest first, the
// order the store returns them.
type Execution struct {
	ID     int64
	Build  string
	Date   string
	Status string
	Reason string
}

// FromRows converts store rows (newest first) into executions.
func FromRows(rows []store.ResultRow) []Execution {
	execs := make([]Execution, len(rows))
	for i, r := range rows {
		execs[i] = Execution{ID: r.ID, Build: r.Build, Date: r.CreatedAt, Status: r.Status, Reason: r.Reason}
	}
	return execs
}

// SortNewestFirst orders executions newest first, preferring the explicit
// ordinal, then the date, then the given order. Stable, so sources that
// carry neither keep their insertion order.
func SortNewestFirst(execs []Execution) {
	sort.SliceStable(execs, func(i, j int) bool {
		a, b := execs[i], execs[j]
		if a.ID != b.ID {
			return a.ID > b.ID
		}
		return a.Date > b.Date
	})
}

// Vector is a fixed-width pass/fail history, oldest first. True is pass.
type Vector []bool

// Failures counts the failing slots.
func (v Vector) Failures() int {
	n := 0
	for _, pass := range v {
		if !pass {
			n++
		}
	}
	return n
}

// Intermittent reports whether the vector mixes passes and failures.
func (v Vector) Intermittent() bool {
	return v.Failures() > 0 && v.Failures() < len(v)
}

// String renders the vector oldest to newest, P for pass, F for fail.
func (v Vector) String() string {
	var b strings.Builder
	for _, pass := range v {
		if pass {
			b.WriteByte('P')
		} else {
			b.WriteByte('F')
		}
	}
	return b.String()
}

// ExecutionDetail is one vector slot joined back to its execution.
// Padded slots have no execution behind them.
type ExecutionDetail struct {
	Index  int
	Status record.Status
	Padded bool
	ID     int64
	Build  string
	Date   string
	Reason string
}

// BuildVector turns executions (newest first) into a vector of exactly
// window slots, oldest first. Short histories are padded with passes on
// the old side; long ones keep the newest window executions. Unknown
// status tokens count as passes.
func BuildVector(execs []Execution, window int) (Vector, []ExecutionDetail) {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(execs) > window {
		execs = execs[:window]
	}
	// Oldest first from here on.
	ordered := make([]Execution, len(execs))
	for i, e := range execs {
		ordered[len(execs)-1-i] = e
	}

	padding := window - len(ordered)
	vector := make(Vector, 0, window)
	details := make([]ExecutionDetail, 0, window)
	for i := 0; i < padding; i++ {
		vector = append(vector, true)
		details = append(details, ExecutionDetail{Index: i, Status: record.StatusPass, Padded: true})
	}
	for i, e := range ordered {
		st, ok := record.ParseStatus(e.Status)
		pass := !ok || !st.IsFailure()
		status := record.StatusPass
		if !pass {
			status = record.StatusFail
		}
		vector = append(vector, pass)
		details = append(details, ExecutionDetail{
			Index:  padding + i,
			Status: status,
			ID:     e.ID,
			Build:  e.Build,
			Date:   e.Date,
			Reason: e.Reason,
		})
	}
	return vector, details
}

// Failure pattern labels.
const (
	PatternContinuousSame   = "Continuously failing due to same reason"
	PatternContinuousDiff   = "Continuously failing but different reasons"
	PatternIntermittentSame = "Intermittently failing due to same reason"
	PatternIntermittentDiff = "Intermittently failing but different reasons"
)

// patternSeverity ranks labels for sorting: steady same-cause failures
// are the strongest signal of a real defect.
func patternSeverity(pattern string) int {
	switch pattern {
	case PatternContinuousSame:
		return 4
	case PatternContinuousDiff:
		return 3
	case PatternIntermittentSame:
		return 2
	default:
		return 1
	}
}

// Pattern labels a failure history. sameReason means every failing run
// shares one normalized root cause.
func Pattern(intermittent, sameReason bool) string {
	switch {
	case intermittent && sameReason:
		return PatternIntermittentSame
	case intermittent:
		return PatternIntermittentDiff
	case sameReason:
		return PatternContinuousSame
	default:
		return PatternContinuousDiff
	}
}

// RecurringFailure is one test crossing the failure threshold within
// the vector window.
type RecurringFailure struct {
	TestName         string
	Occurrences      int
	Vector           Vector
	Pattern          string
	Classification   string
	Consistency      float64
	Flaky            bool
	InCurrentRun     bool
	UniqueRootCauses int
	Details          []ExecutionDetail
}

// Detector finds recurring failures in per-test execution history.
type Detector struct {
	window      int
	minFailures int
	log         *slog.Logger
}

// NewDetector returns a Detector with the given vector window and
// minimum failure threshold.
func NewDetector(window, minFailures int) *Detector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Detector{window: window, minFailures: minFailures, log: logging.New("history")}
}

// Detect builds a vector for every test and keeps those whose recomputed
// failure count meets the threshold. The count derived from the vector
// is authoritative, not the raw history length. currentFailures marks
// tests failing in the build under analysis.
func (d *Detector) Detect(testHistory map[string][]Execution, currentFailures []string) []RecurringFailure {
	current := make(map[string]bool, len(currentFailures))
	for _, name := range currentFailures {
		current[name] = true
	}

	var out []RecurringFailure
	for name, execs := range testHistory {
		SortNewestFirst(execs)
		vector, details := BuildVector(execs, d.window)
		occurrences := vector.Failures()
		if occurrences < d.minFailures {
			continue
		}
		d.fillNewestReason(name, current, details)

		reasons, classes := failureEvidence(details)
		unique := uniqueNormalized(reasons)
		classification, consistency := dominantClass(classes)
		intermittent := vector.Intermittent()
		pattern := Pattern(intermittent, unique == 1)

		out = append(out, RecurringFailure{
			TestName:         name,
			Occurrences:      occurrences,
			Vector:           vector,
			Pattern:          pattern,
			Classification:   classification,
			Consistency:      consistency,
			Flaky:            intermittent || consistency < 0.8,
			InCurrentRun:     current[name],
			UniqueRootCauses: unique,
			Details:          details,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		si, sj := patternSeverity(out[i].Pattern), patternSeverity(out[j].Pattern)
		if si != sj {
			return si > sj
		}
		return out[i].TestName < out[j].TestName
	})

	d.log.Info("recurring failure detection done",
		"tests", len(testHistory), "recurring", len(out),
		"window", d.window, "min_failures", d.minFailures)
	return out
}

// fillNewestReason backfills a placeholder reason on the newest slot
// when the test fails in the current build but the row carried none.
func (d *Detector) fillNewestReason(name string, current map[string]bool, details []ExecutionDetail) {
	if len(details) == 0 || !current[name] {
		return
	}
	last := &details[len(details)-1]
	if last.Status.IsFailure() && strings.TrimSpace(last.Reason) == "" {
		last.Reason = "Test failed in current build"
	}
}

// failureEvidence collects reasons and coarse classifications from the
// failing slots.
func failureEvidence(details []ExecutionDetail) (reasons, classes []string) {
	for _, det := range details {
		if !det.Status.IsFailure() {
			continue
		}
		if det.Reason != "" {
			reasons = append(reasons, det.Reason)
		}
		classes = append(classes, ClassifyReason(det.Reason))
	}
	return reasons, classes
}

// uniqueNormalized counts distinct root causes after normalization, so
// the same defect with different dynamic values counts once.
func uniqueNormalized(reasons []string) int {
	seen := map[string]bool{}
	for _, r := range reasons {
		seen[rootcause.Normalize(r)] = true
	}
	return len(seen)
}

// dominantClass returns the most common classification and its share.
func dominantClass(classes []string) (string, float64) {
	if len(classes) == 0 {
		return "UNKNOWN", 0
	}
	counts := map[string]int{}
	for _, c := range classes {
		counts[c]++
	}
	best, bestN := "UNKNOWN", 0
	for c, n := range counts {
		if n > bestN || (n == bestN && c < best) {
			best, bestN = c, n
		}
	}
	return best, float64(bestN) / float64(len(classes))
}

// ClassifyReason buckets an error message into a coarse failure class.
func ClassifyReason(reason string) string {
	if reason == "" {
		return "UNKNOWN"
	}
	upper := strings.ToUpper(reason)
	for _, kw := range []string{"ASSERTION", "EXPECTED", "ACTUAL", "MISMATCH", "VALIDATION"} {
		if strings.Contains(upper, kw) {
			return "PRODUCT_BUG"
		}
	}
	for _, kw := range []string{"NOSUCHELEMENT", "TIMEOUT", "STALE", "WEBDRIVER", "LOCATOR"} {
		if strings.Contains(upper, kw) {
			return "AUTOMATION_ISSUE"
		}
	}
	for _, kw := range []string{"API", "HTTP", "STATUS CODE", "500", "404", "403"} {
		if strings.Contains(upper, kw) {
			return "PRODUCT_BUG"
		}
	}
	return "UNKNOWN"
}
