package workflow

import (
	"regexp"
	"strings"
)

// ============================================================================
// OUTPUT FORMATTING
// ============================================================================

var (
	headerLine   = regexp.MustCompile(`^#{1,6}\s`)
	boldNoSpaceL = regexp.MustCompile(`([^\s*])(\*\*[^*\n]+\*\*)`)
	boldNoSpaceR = regexp.MustCompile(`(\*\*[^*\n]+\*\*)([^\s*])`)
	newlineRun   = regexp.MustCompile(`\n{3,}`)
)

// FormatOutput shapes the model's answer for terminal rendering. It is
// a pure transform and idempotent: formatting an already formatted
// answer changes nothing.
//
// Applied in order: trim outer whitespace, blank lines around Markdown
// headers, blank line before list items that open a bold run (and
// before the first item of a plain list), whitespace around bold runs,
// a blank line between adjacent bold runs, and collapsing runs of
// three or more newlines to exactly two.
func FormatOutput(s string) string {
	s = strings.TrimSpace(s)
	s = blankAroundHeaders(s)
	s = blankBeforeListItems(s)
	s = boldNoSpaceL.ReplaceAllString(s, "$1 $2")
	s = boldNoSpaceR.ReplaceAllString(s, "$1 $2")
	s = strings.ReplaceAll(s, "****", "**\n\n**")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return s
}

func blankAroundHeaders(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for i, line := range lines {
		if headerLine.MatchString(line) {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			out = append(out, line)
			if i+1 < len(lines) && lines[i+1] != "" {
				out = append(out, "")
			}
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func blankBeforeListItems(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		if strings.HasPrefix(line, "- ") && len(out) > 0 {
			prev := out[len(out)-1]
			boldItem := strings.HasPrefix(line, "- **")
			// Bold items always get a separating blank line; plain
			// items only at the start of a list block.
			if prev != "" && (boldItem || !strings.HasPrefix(prev, "- ")) {
				out = append(out, "")
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
