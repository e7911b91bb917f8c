// Package isolate extracts the contiguous log slice belonging to one test
// case out of a concatenated multi-test blob. Report markup is inconsistent
// across generator versions, so boundary detection is a layered set of
// fallbacks; the terminal fallback is the whole blob, flagged degraded,
// never an error.
package isolate

import (
	"log/slog"
	"regexp"
	"strings"

	"triage/internal/config"
	"triage/internal/identity"
	"triage/internal/logging"
)

// Start markers in priority order. The first marker pattern that occurs
// anywhere in the blob wins, not the earliest-appearing phrase type:
// "Method arguments:" precedes the execution banner in well-formed logs.
var startMarkers = []string{
	"method arguments:",
	"execution started for testcase",
	"execution started for test",
	"test case details",
}

const endMarker = "execution of testcase ends here"

// Completion phrases used when no exception signature follows the end
// marker, and as end-boundary fallbacks when the end marker is absent.
var completionMarkers = []string{
	"failure occurred in test",
	"total time taken by test",
}

// Exception signatures. The true failure detail commonly appears after the
// generic end marker, so the span extends to cover the nearest signature.
var exceptionSignatures = []*regexp.Regexp{
	regexp.MustCompile(`org\.openqa\.selenium\.\w+Exception:`),
	regexp.MustCompile(`java\.lang\.\w+Exception:`),
	regexp.MustCompile(`java\.lang\.\w+Error:`),
	regexp.MustCompile(`AssertionError:`),
	regexp.MustCompile(`at [\w.]+\([\w.]+\.java:\d+\)`),
}

// nextTestStart bounds the post-exception tail so one test's span never
// swallows the next test's opening lines.
var nextTestStart = regexp.MustCompile(`(?i)Method arguments:|Execution started for testcase`)

// sectionBanner delimits one test's region of a multi-test blob: the
// banner lines carry the test name, unlike the method-arguments header.
var sectionBanner = regexp.MustCompile(`execution started for test(case)?|test case details`)

// Span is the isolated slice for one test.
type Span struct {
	Text string
	// Degraded marks the whole-blob fallback: no boundary was recognized.
	Degraded bool
}

// Isolator performs boundary detection with configured lookahead and
// trailing-buffer sizes.
type Isolator struct {
	cfg config.Isolate
	log *slog.Logger
}

// New returns an Isolator using the given bounds.
func New(cfg config.Isolate) *Isolator {
	return &Isolator{cfg: cfg, log: logging.New("isolate")}
}

// Isolate returns the substring of blob belonging to the named test.
// When the test's method name can be located in the blob, boundary
// detection is confined to that test's own section, so every test in a
// concatenated report gets its own span. The result is never truncated
// by total length: downstream classification must see every occurrence
// of diagnostic evidence in the span.
func (iso *Isolator) Isolate(blob, testName string) Span {
	if blob == "" {
		return Span{}
	}
	lower := strings.ToLower(blob)
	secStart, secEnd := iso.section(lower, testName)

	start := secStart
	startFound := false
	for _, m := range startMarkers {
		if idx := strings.Index(lower[secStart:secEnd], m); idx >= 0 {
			start = secStart + idx
			startFound = true
			break
		}
	}

	end, endFound := iso.findEnd(blob[:secEnd], lower[:secEnd], start)

	if !startFound && !endFound {
		iso.log.Debug("no test case boundaries found, using full blob", "test", testName)
		return Span{Text: blob, Degraded: true}
	}
	if end > secEnd {
		end = secEnd
	}
	if end < start {
		end = secEnd
	}
	return Span{Text: blob[start:end]}
}

// section narrows boundary detection to the named test's own region of
// the blob. The anchor is the first occurrence of the test's method
// name; the region runs from that test's banner, backed up over the
// method-arguments header that precedes it in well-formed logs, to the
// next test's banner. When the name cannot be located the whole blob is
// the region.
func (iso *Isolator) section(lower, testName string) (int, int) {
	method := strings.TrimSpace(testName)
	if _, m := identity.SplitClassMethod(testName); m != "" {
		method = m
	}
	method = strings.ToLower(method)
	if method == "" {
		return 0, len(lower)
	}
	anchor := strings.Index(lower, method)
	if anchor < 0 {
		return 0, len(lower)
	}

	banners := sectionBanner.FindAllStringIndex(lower, -1)
	start, end := 0, len(lower)
	prevEnd := 0
	for i, loc := range banners {
		if loc[0] > anchor {
			end = loc[0]
			break
		}
		start = loc[0]
		if i > 0 {
			prevEnd = banners[i-1][1]
		}
	}
	if idx := strings.LastIndex(lower[:start], "method arguments:"); idx >= prevEnd {
		start = idx
	}
	return start, end
}

// findEnd locates the end boundary from start onward. Returns the end
// offset in blob and whether any boundary was recognized.
func (iso *Isolator) findEnd(blob, lower string, start int) (int, bool) {
	endIdx := strings.Index(lower[start:], endMarker)
	if endIdx < 0 {
		return iso.fallbackEnd(blob, lower, start)
	}
	execEnd := start + endIdx + len(endMarker)

	// Bounded lookahead past the end marker for the exception signature.
	remaining := blob[execEnd:]
	region := remaining
	if iso.cfg.ExceptionLookahead > 0 && len(region) > iso.cfg.ExceptionLookahead {
		region = region[:iso.cfg.ExceptionLookahead]
	}

	for _, sig := range exceptionSignatures {
		loc := sig.FindStringIndex(region)
		if loc == nil {
			continue
		}
		end := min(execEnd+loc[1]+iso.cfg.ExceptionTail, len(blob))
		// Stop short of the next test's opening lines.
		if next := nextTestStart.FindStringIndex(remaining[loc[1]:]); next != nil {
			end = execEnd + loc[1] + next[0]
		}
		return end, true
	}

	// No exception: bound the span a fixed distance past a completion
	// phrase, or past the end marker itself.
	lowerRemaining := lower[execEnd:]
	for _, m := range completionMarkers {
		if idx := strings.Index(lowerRemaining, m); idx >= 0 {
			return min(execEnd+idx+len(m)+iso.cfg.FailureTail, len(blob)), true
		}
	}
	return min(execEnd+iso.cfg.CompletionTail, len(blob)), true
}

// fallbackEnd handles blobs that never carry the explicit end marker:
// older generator versions emit only the completion phrase or go straight
// to the exception.
func (iso *Isolator) fallbackEnd(blob, lower string, start int) (int, bool) {
	for _, m := range []string{"total time taken by test", "failure occurred in test"} {
		if idx := strings.Index(lower[start:], m); idx >= 0 {
			return min(start+idx+len(m)+iso.cfg.ExceptionTail, len(blob)), true
		}
	}
	if loc := exceptionSignatures[0].FindStringIndex(blob[start:]); loc != nil {
		return min(start+loc[1]+iso.cfg.ExceptionTail, len(blob)), true
	}
	return len(blob), false
}
