// Package store persists raw test result rows and answers the history
// queries the analysis layers run against them.
package store

import "triage/internal/identity"

// DefaultDBPath is the default relative path for the SQLite DB
// (per-workspace). Open() creates the parent dir (e.g. .triage).
const DefaultDBPath = ".triage/triage.db"

// ResultRow is one stored execution of one test in one build. Field
// names stay close to the column names; the accessor methods satisfy
// the reconciler's row contract.
type ResultRow struct {
	ID        int64
	Name      string
	Status    string
	Reason    string
	Build     string
	CreatedAt string
}

func (r ResultRow) TestcaseName() string  { return r.Name }
func (r ResultRow) StatusToken() string   { return r.Status }
func (r ResultRow) FailureReason() string { return r.Reason }
func (r ResultRow) BuildTag() string      { return r.Build }

// BuildStat is the per-build aggregate used for trend analysis.
type BuildStat struct {
	Build  string
	Total  int
	Failed int
}

// PassRate returns the fraction of non-failing executions in the build.
func (b BuildStat) PassRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Total-b.Failed) / float64(b.Total)
}

// queriedTest adapts a history query name to the identity matcher so
// stored spellings can be folded back onto the name the caller asked for.
type queriedTest string

func (q queriedTest) FullName() string { return string(q) }

func (q queriedTest) ClassName() string {
	class, _ := identity.SplitClassMethod(string(q))
	return class
}

func (q queriedTest) MethodName() string {
	_, method := identity.SplitClassMethod(string(q))
	return method
}

// resolveQueried maps a stored row name onto the queried name it belongs
// to, exact canonical match first, then the trailing class.method form.
func resolveQueried(stored string, queried []queriedTest) (string, bool) {
	q, ok := identity.FindMatching(stored, queried)
	if !ok {
		return "", false
	}
	return string(q), true
}

// Store is the persistence facade. CLI and analysis use only this
// interface; implementation is SQLite or in-memory.
type Store interface {
	// InsertRows appends rows and returns how many were written.
	InsertRows(rows []ResultRow) (int64, error)
	// RowsByBuild returns every row recorded for the build, in insert order.
	RowsByBuild(build string) ([]ResultRow, error)
	// Builds returns distinct build tags, newest first.
	Builds() ([]string, error)
	// HistoryByTests returns up to perTest most recent rows for each
	// named test, newest first, keyed by the queried name. Stored
	// spellings are folded onto the queried name by canonical identity,
	// so doubled class segments and bare class.method rows still count.
	HistoryByTests(names []string, perTest int) (map[string][]ResultRow, error)
	// BuildStats returns per-build aggregates for the lastN most recent
	// builds, ordered oldest first.
	BuildStats(lastN int) ([]BuildStat, error)
	Close() error
}
