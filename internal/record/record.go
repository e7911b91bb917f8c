// Package record defines the domain types shared by the reconciliation
// pipeline: raw persisted rows, canonical reconciled records, and the
// collapsed status vocabulary.
package record

import (
	"strings"

	"triage/internal/identity"
)

// Status is the collapsed execution status of a test.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
	StatusSkip  Status = "SKIP"
)

// ParseStatus collapses the free-text status vocabulary the persisted store
// emits into one of the four statuses. ok is false for unrecognized tokens;
// the caller applies the optimistic PASS default and logs it.
func ParseStatus(token string) (Status, bool) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "PASS", "PASSED", "SUCCESS", "OK":
		return StatusPass, true
	case "FAIL", "FAILED", "FAILURE":
		return StatusFail, true
	case "ERROR", "ERRORED":
		return StatusError, true
	case "SKIP", "SKIPPED":
		return StatusSkip, true
	default:
		return StatusPass, false
	}
}

// IsFailure reports whether the status counts as a failed execution.
func (s Status) IsFailure() bool { return s == StatusFail || s == StatusError }

// Row is the narrow capability the reconciler needs from a persisted row.
// The store's concrete row type satisfies it; components never see the
// richer underlying shape.
type Row interface {
	TestcaseName() string
	StatusToken() string
	FailureReason() string
	BuildTag() string
}

// Record is one canonical, reconciled test result. Constructed once by the
// reconciler and immutable afterward.
type Record struct {
	Class    string
	Method   string
	Status   Status
	Duration float64 // seconds; zero when no duration matched

	ErrorType    string
	ErrorMessage string
	StackTrace   string

	Platform     Platform
	ExecutionLog string
	Description  string
	HTMLLink     string
	Build        string
}

// FullName returns the package-qualified name with duplicate segments
// collapsed, the record's canonical identity.
func (r *Record) FullName() string {
	cleaned := identity.CollapseDuplicateSegments(r.Class)
	if cleaned == "" {
		return r.Method
	}
	return cleaned + "." + r.Method
}

// ClassName implements identity.Named.
func (r *Record) ClassName() string { return r.Class }

// MethodName implements identity.Named.
func (r *Record) MethodName() string { return r.Method }

// IsFailure reports whether the record failed or errored.
func (r *Record) IsFailure() bool { return r.Status.IsFailure() }

// CombinedLog joins execution log, error message and stack trace, skipping
// parts already contained in the log. Classification rules match against
// this combined text so no diagnostic evidence is lost.
func (r *Record) CombinedLog() string {
	combined := r.ExecutionLog
	for _, part := range []string{r.ErrorMessage, r.StackTrace} {
		if part == "" || strings.Contains(combined, part) {
			continue
		}
		if combined == "" {
			combined = part
		} else {
			combined = combined + "\n\n" + part
		}
	}
	return combined
}

// Summary holds batch-level counts for one reconciled build.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Errors   int
	Skipped  int
	Duration float64
}

// PassRate returns the pass percentage, zero for an empty batch.
func (s Summary) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

// Summarize computes summary statistics over reconciled records.
func Summarize(records []*Record) Summary {
	var s Summary
	for _, r := range records {
		s.Total++
		s.Duration += r.Duration
		switch r.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusError:
			s.Errors++
		case StatusSkip:
			s.Skipped++
		}
	}
	return s
}
