// Package reconcile merges raw result rows with execution logs and
// durations harvested from report pages, collapsing duplicate rows into
// one record per test identity.
package reconcile

import (
	"fmt"
	"log/slog"

	"triage/internal/identity"
	"triage/internal/logging"
	"triage/internal/record"
)

// Diagnostics counts what happened during one reconciliation pass.
// Counts are reported, never fatal: partial evidence still produces
// usable records.
type Diagnostics struct {
	InputRows         int
	SkippedRows       int
	Unique            int
	MatchedLogs       int
	MatchedDurations  int
	DefaultedStatuses int
}

// Result is the reconciled view of one build.
type Result struct {
	Records []*record.Record
	Summary record.Summary
	Diag    Diagnostics
}

// Reconciler merges rows, logs and durations for one build.
type Reconciler struct {
	log *slog.Logger
}

// New returns a Reconciler.
func New() *Reconciler {
	return &Reconciler{log: logging.New("reconcile")}
}

// Reconcile collapses rows into one record per normalized test identity
// and attaches the best-matching execution log, duration and report link
// from the cache to each. A nil cache reconciles rows alone.
//
// An error is returned only when a non-empty input yields no usable
// identity at all. Everything softer is a Diagnostics count.
func (rc *Reconciler) Reconcile(rows []record.Row, cache *Cache) (*Result, error) {
	res := &Result{Diag: Diagnostics{InputRows: len(rows)}}
	byIdentity := map[string]*record.Record{}
	var order []string

	for _, row := range rows {
		name := row.TestcaseName()
		if name == "" {
			res.Diag.SkippedRows++
			continue
		}
		rec := rc.rowToRecord(row, &res.Diag)
		if cache != nil {
			if log, ok := cache.Log(name); ok {
				rec.ExecutionLog = log
			}
			if d, ok := cache.Duration(name); ok {
				rec.Duration = d
			}
			if link, ok := cache.Link(name); ok {
				rec.HTMLLink = link
			}
		}

		key := identity.Normalize(name)
		existing, seen := byIdentity[key]
		if !seen {
			c := rec
			byIdentity[key] = &c
			order = append(order, key)
			continue
		}
		if shouldReplace(rec, *existing) {
			merge(&rec, *existing)
			*existing = rec
		}
	}

	if len(order) == 0 {
		if len(rows) == 0 {
			return res, nil
		}
		return nil, fmt.Errorf("no usable test identity in %d rows", len(rows))
	}

	res.Records = make([]*record.Record, 0, len(order))
	for _, key := range order {
		rec := byIdentity[key]
		res.Records = append(res.Records, rec)
		if rec.ExecutionLog != "" {
			res.Diag.MatchedLogs++
		}
		if rec.Duration > 0 {
			res.Diag.MatchedDurations++
		}
	}
	res.Diag.Unique = len(res.Records)
	res.Summary = record.Summarize(res.Records)

	rc.log.Info("reconciled build rows",
		"rows", res.Diag.InputRows,
		"unique", res.Diag.Unique,
		"matched_logs", res.Diag.MatchedLogs,
		"matched_durations", res.Diag.MatchedDurations,
		"defaulted_statuses", res.Diag.DefaultedStatuses)
	return res, nil
}

// shouldReplace decides whether candidate wins the identity over the
// already-kept record. A failing record is never displaced by a passing
// one; below that guard, owning an execution log outranks status.
func shouldReplace(candidate, existing record.Record) bool {
	if !candidate.IsFailure() && existing.IsFailure() {
		return false
	}
	if candidate.ExecutionLog != "" && existing.ExecutionLog == "" {
		return true
	}
	if candidate.IsFailure() && !existing.IsFailure() {
		return true
	}
	return false
}

// merge carries evidence the loser had and the winner lacks.
func merge(winner *record.Record, loser record.Record) {
	if winner.ExecutionLog == "" {
		winner.ExecutionLog = loser.ExecutionLog
	}
	if winner.Duration == 0 {
		winner.Duration = loser.Duration
	}
	if winner.HTMLLink == "" {
		winner.HTMLLink = loser.HTMLLink
	}
}

// rowToRecord converts one raw row into a Record, splitting the failure
// reason into error type, message and stack trace. The class keeps the
// full package qualification so the record's identity survives intact.
func (rc *Reconciler) rowToRecord(row record.Row, diag *Diagnostics) record.Record {
	name := row.TestcaseName()
	class, method := identity.SplitQualified(name)

	status, known := record.ParseStatus(row.StatusToken())
	if !known {
		rc.log.Warn("unknown status token, defaulting to PASS",
			"test", name, "status", row.StatusToken())
		diag.DefaultedStatuses++
	}

	reason := record.CleanFailureReason(row.FailureReason())
	errType, errMsg, stack := record.SplitFailureReason(reason)

	return record.Record{
		Class:        class,
		Method:       method,
		Status:       status,
		ErrorType:    errType,
		ErrorMessage: errMsg,
		StackTrace:   stack,
		Platform:     record.DerivePlatform(class),
		Build:        row.BuildTag(),
	}
}
