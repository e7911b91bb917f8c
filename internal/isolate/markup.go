package isolate

import (
	"regexp"
	"strings"
)

// Report pages wrap execution log lines in font tags styled at 110%.
// Only those carry log text; everything else in the cell is chrome.
var (
	logFontTag = regexp.MustCompile(`(?is)<font[^>]*font-size:\s*110%[^>]*>(.*?)</font>`)
	anyTag     = regexp.MustCompile(`<[^>]+>`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&nbsp", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#x27;", "'",
	"&#39;", "'",
	"&amp;", "&",
)

// ExtractLogText pulls the execution log lines out of a report markup
// fragment. Each styled line becomes one line of output with its inner
// markup stripped and whitespace collapsed. Fragments without styled
// lines return empty, which the isolator treats as an absent log.
func ExtractLogText(markup string) string {
	matches := logFontTag.FindAllStringSubmatch(markup, -1)
	if len(matches) == 0 {
		return ""
	}
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		text := anyTag.ReplaceAllString(m[1], " ")
		text = entityReplacer.Replace(text)
		text = strings.Join(strings.Fields(text), " ")
		if text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}
