// Package rootcause normalizes failure-reason text so that messages
// differing only in dynamic values (URLs, UUIDs, dates, numeric IDs, page
// element descriptions) collapse to one string. The history engine groups
// failures by the normalized form to decide "same reason" vs "different
// reasons".
package rootcause

import (
	"regexp"
	"strings"
)

// normalizedCap keeps enough context to discriminate defects without
// letting one giant stack trace dominate grouping.
const normalizedCap = 200

var (
	reURL = regexp.MustCompile(`https?://[^\s)]+`)

	reDateDayMonthYear = regexp.MustCompile(`\b\d{1,2}\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{4}\b`)
	reDateMonthDayYear = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2},?\s+\d{4}\b`)
	reDateISO          = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	reDateSlash        = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	reDateDash         = regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`)

	reTime     = regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?\s*(am|pm)?\b`)
	reDuration = regexp.MustCompile(`\b\d+\.?\d*\s*(seconds?|minutes?|hours?|ms|milliseconds?)\b`)

	// Candidate Class.method references. Page-object references are kept so
	// element failures on the same page still group together; the exclusion
	// is applied in the replace func since RE2 has no lookahead.
	reTestcaseRef = regexp.MustCompile(`\b[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*\b`)

	rePageElementQuoteEnd = regexp.MustCompile(`([a-z][a-z0-9_]*page[a-z0-9_]*):([^']+)'`)
	rePageElementQuoted   = regexp.MustCompile(`'([a-z][a-z0-9_]*page[a-z0-9_]*):([^']+)'`)
	rePageElementBare     = regexp.MustCompile(`\b([a-z][a-z0-9_]*page[a-z0-9_]*):([^\s']+)`)

	reActualJSONKeys  = regexp.MustCompile(`actual\s+json\s+doesn['"]?t\s+contain\s+all\s+expected\s+keys`)
	reMissingKeysWord = regexp.MustCompile(`missing\s+keys?`)
	reMissingKeysList = regexp.MustCompile(`missing\s+keys?:\s*\[[^\]]+\]`)
	reExpectedHasList = regexp.MustCompile(`expected\s+has:\s*['"]?\[[^\]]+\]['"]?`)

	rePathUUID    = regexp.MustCompile(`/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	rePathSegment = regexp.MustCompile(`/\{?[a-zA-Z0-9_-]+\}?`)
	rePathNumeric = regexp.MustCompile(`/\d+`)

	reAPINameVerb     = regexp.MustCompile(`api\s+name:\s*(get|post|put|delete|patch)\s+[^\s,.]+`)
	reAPINamePath     = regexp.MustCompile(`api\s+name:\s*/[^\s,.]+`)
	reAPINameResponse = regexp.MustCompile(`api\s+name:\s*[a-z][a-z0-9_]*response`)
	reAPINameAny      = regexp.MustCompile(`api\s+name:\s*[^\s,.]+`)

	reStatusCode = regexp.MustCompile(`\b(40[0-9]|50[0-9]|30[0-9])\b`)

	reCSSID  = regexp.MustCompile(`#[a-zA-Z0-9_-]+`)
	reDataCy = regexp.MustCompile(`data-cy=['"][^'"]+['"]`)

	reUUID      = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	reNumericID = regexp.MustCompile(`\b\d{6,}\b`)
	reEmail     = regexp.MustCompile(`\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)
)

// Normalize replaces dynamic values in a failure reason with placeholders
// and collapses whitespace. The result is capped at 200 characters. An
// empty input yields an empty string.
func Normalize(rootCause string) string {
	if rootCause == "" {
		return ""
	}

	n := strings.ToLower(rootCause)

	n = reURL.ReplaceAllString(n, "[URL]")

	n = reDateDayMonthYear.ReplaceAllString(n, "[DATE]")
	n = reDateMonthDayYear.ReplaceAllString(n, "[DATE]")
	n = reDateISO.ReplaceAllString(n, "[DATE]")
	n = reDateSlash.ReplaceAllString(n, "[DATE]")
	n = reDateDash.ReplaceAllString(n, "[DATE]")

	n = reTime.ReplaceAllString(n, "[TIME]")
	n = reDuration.ReplaceAllString(n, "[DURATION]")

	n = reTestcaseRef.ReplaceAllStringFunc(n, func(m string) string {
		if strings.Contains(m, "page") {
			return m
		}
		return "[TESTCASE]"
	})

	n = rePageElementQuoteEnd.ReplaceAllString(n, "$1:[ELEMENT]'")
	n = rePageElementQuoted.ReplaceAllString(n, "'$1:[ELEMENT]'")
	n = rePageElementBare.ReplaceAllString(n, "$1:[ELEMENT]")

	// Key-mismatch failures group together regardless of which API emitted
	// them, so their phrasing variants are canonicalized first.
	n = reActualJSONKeys.ReplaceAllString(n, "missing keys")
	n = reMissingKeysWord.ReplaceAllString(n, "missing keys")
	n = reMissingKeysList.ReplaceAllString(n, "missing keys: [keys_list]")
	n = reExpectedHasList.ReplaceAllString(n, "missing keys: [keys_list]")

	n = rePathUUID.ReplaceAllString(n, "/{uuid}")
	n = rePathSegment.ReplaceAllString(n, "/{id}")
	n = rePathNumeric.ReplaceAllString(n, "/{id}")

	n = reAPINameVerb.ReplaceAllString(n, "api name: [endpoint]")
	n = reAPINamePath.ReplaceAllString(n, "api name: [endpoint]")
	n = reAPINameResponse.ReplaceAllString(n, "api name: [api_response]")
	n = reAPINameAny.ReplaceAllString(n, "api name: [api_name]")

	n = reStatusCode.ReplaceAllString(n, "[status_code]")

	n = reCSSID.ReplaceAllString(n, "#[id]")
	n = reDataCy.ReplaceAllString(n, "data-cy=[attr]")

	n = reUUID.ReplaceAllString(n, "[UUID]")
	n = reNumericID.ReplaceAllString(n, "[NUMERIC_ID]")
	n = reEmail.ReplaceAllString(n, "[EMAIL]")

	n = strings.Join(strings.Fields(n), " ")

	if hasMissingKeys(n) {
		if strings.Contains(n, "[status_code]") {
			n = "api name: [api_name], status code: [status_code], missing keys: [keys_list]"
		} else {
			n = "api name: [api_name], missing keys: [keys_list]"
		}
	}

	if len(n) > normalizedCap {
		n = n[:normalizedCap]
	}
	return strings.TrimSpace(n)
}

func hasMissingKeys(n string) bool {
	return strings.Contains(n, "missing keys") ||
		strings.Contains(n, "[keys_list]") ||
		strings.Contains(n, "expected has") ||
		strings.Contains(n, "actual json")
}

var apiEndpointPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(API Name|Endpoint|api name|api url|url)[:\s]+([^\s,<>\n]+)`),
	regexp.MustCompile(`(?i)(/api/[^\s,<>\n]+|/dashboard/[^\s,<>\n]+)`),
}

// ExtractAPIEndpoint pulls the API endpoint referenced in a failure reason,
// or "" when none is present.
func ExtractAPIEndpoint(rootCause string) string {
	if rootCause == "" {
		return ""
	}
	for _, p := range apiEndpointPatterns {
		m := p.FindStringSubmatch(rootCause)
		if m == nil {
			continue
		}
		api := m[len(m)-1]
		if len(m) >= 3 {
			api = m[2]
		}
		api = strings.TrimSpace(api)
		api = strings.ReplaceAll(api, "http://", "")
		api = strings.ReplaceAll(api, "https://", "")
		if strings.HasPrefix(api, "/") {
			if i := strings.IndexByte(api, ' '); i >= 0 {
				return api[:i]
			}
			return api
		}
		return api
	}
	return ""
}
