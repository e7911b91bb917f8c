package history

import "triage/internal/store"

// Trend direction labels.
const (
	TrendImproving        = "IMPROVING"
	TrendDeclining        = "DECLINING"
	TrendStable           = "STABLE"
	TrendInsufficientData = "INSUFFICIENT_DATA"
	TrendNoData           = "NO_DATA"
)

// BuildRate is one build's pass rate, in percent.
type BuildRate struct {
	Build    string
	PassRate float64
	Total    int
}

// Trend summarizes pass rate movement across builds, oldest first.
type Trend struct {
	Builds    []BuildRate
	Average   float64
	Latest    float64
	Direction string
}

// AnalyzeTrend compares the average pass rate of the older half of the
// builds against the newer half; a swing beyond five percentage points
// either way counts as movement.
func AnalyzeTrend(rates []BuildRate) Trend {
	t := Trend{Builds: rates}
	if len(rates) == 0 {
		t.Direction = TrendNoData
		return t
	}

	var sum float64
	for _, r := range rates {
		sum += r.PassRate
	}
	t.Average = sum / float64(len(rates))
	t.Latest = rates[len(rates)-1].PassRate

	if len(rates) < 2 {
		t.Direction = TrendInsufficientData
		return t
	}

	mid := len(rates) / 2
	var older, newer float64
	for _, r := range rates[:mid] {
		older += r.PassRate
	}
	for _, r := range rates[mid:] {
		newer += r.PassRate
	}
	older /= float64(mid)
	newer /= float64(len(rates) - mid)

	switch {
	case newer > older+5:
		t.Direction = TrendImproving
	case newer < older-5:
		t.Direction = TrendDeclining
	default:
		t.Direction = TrendStable
	}
	return t
}

// RatesFromStats converts store aggregates into per-build pass rates.
func RatesFromStats(stats []store.BuildStat) []BuildRate {
	rates := make([]BuildRate, len(stats))
	for i, s := range stats {
		rates[i] = BuildRate{Build: s.Build, PassRate: s.PassRate() * 100, Total: s.Total}
	}
	return rates
}
