package format

import (
	"fmt"
	"strings"

	"triage/internal/history"
	"triage/internal/record"
)

// FmtPercent formats a percentage with one decimal place.
func FmtPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FmtSeconds formats a duration measured in seconds.
func FmtSeconds(sec float64) string {
	if sec >= 60 {
		return fmt.Sprintf("%dm %02.0fs", int(sec)/60, sec-float64(int(sec)/60*60))
	}
	return fmt.Sprintf("%.2fs", sec)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// StatusMark returns "✓" for a passing status and "✗" otherwise.
func StatusMark(st record.Status) string {
	if st.IsFailure() {
		return "✗"
	}
	return "✓"
}

// VectorCell renders a history vector as dots, oldest to newest:
// "·" pass, "✗" fail.
func VectorCell(v history.Vector) string {
	var b strings.Builder
	for _, pass := range v {
		if pass {
			b.WriteString("·")
		} else {
			b.WriteString("✗")
		}
	}
	return b.String()
}
