package record

import (
	"regexp"
	"strings"
)

var (
	resultsURLLine   = regexp.MustCompile(`(?i)^\s*Results\s*Url\s*:`)
	testcaseNameLine = regexp.MustCompile(`(?i)^\s*Testcase\s*Name\s*:`)
	errorTypeToken   = regexp.MustCompile(`(\w+Exception|\w+Error)`)
)

// errorMessageCap limits the extracted error message to its first line's
// leading characters; everything else lives in the stack trace.
const errorMessageCap = 500

// CleanFailureReason strips the boilerplate lines the upstream reporter
// appends to every failure reason ("Results Url:", "Testcase Name:").
func CleanFailureReason(reason string) string {
	if reason == "" {
		return ""
	}
	lines := strings.Split(reason, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if resultsURLLine.MatchString(line) || testcaseNameLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// SplitFailureReason decomposes a cleaned failure reason into an error type
// token, a capped error message, and (for long multi-line reasons) the full
// stack trace.
func SplitFailureReason(reason string) (errorType, message, stackTrace string) {
	reason = CleanFailureReason(reason)
	if reason == "" {
		return "", "", ""
	}

	firstLine := reason
	if i := strings.IndexByte(reason, '\n'); i >= 0 {
		firstLine = reason[:i]
	}
	if m := errorTypeToken.FindString(firstLine); m != "" {
		errorType = m
	}

	if strings.Contains(reason, "\n") && len(reason) > 500 {
		stackTrace = reason
		message = capString(firstLine, errorMessageCap)
	} else {
		message = reason
	}
	return errorType, message, stackTrace
}

func capString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
