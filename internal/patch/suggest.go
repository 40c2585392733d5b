package patch

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxSuggestions caps the candidate snippets attached to an anchor-not-found
// diagnostic.
const maxSuggestions = 3

// anchorNotFound renders the failure context for a missing anchor: the search
// text plus up to maxSuggestions windows of the buffer whose first line
// contains the search's first line. The suggestions aid operator or model
// self-correction; the engine never retries on its own.
func anchorNotFound(buffer, search string) string {
	var b strings.Builder
	first := firstLine(search)
	fmt.Fprintf(&b, "%q", truncate(search, 120))

	sug := suggestions(buffer, first, len(splitLines(search)))
	for i, s := range sug {
		fmt.Fprintf(&b, "\n  candidate %d:\n%s", i+1, indent(s, "    "))
	}
	return b.String()
}

// suggestions scans the buffer for lines containing needle as a substring and
// returns up to maxSuggestions windows of window lines starting there.
func suggestions(buffer, needle string, window int) []string {
	if strings.TrimSpace(needle) == "" {
		return nil
	}
	if window < 1 {
		window = 1
	}
	lines := splitLines(buffer)
	var out []string
	for i, line := range lines {
		if !strings.Contains(line, needle) {
			continue
		}
		end := i + window
		if end > len(lines) {
			end = len(lines)
		}
		out = append(out, strings.Join(lines[i:end], "\n"))
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// mismatchContext renders an expected-vs-found summary for a line erase whose
// target text does not match the current buffer, including a compact
// character diff of the two spans.
func mismatchContext(expected, found string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, found, false)
	dmp.DiffCleanupSemantic(diffs)

	var d strings.Builder
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			fmt.Fprintf(&d, "[-%s]", diff.Text)
		case diffmatchpatch.DiffInsert:
			fmt.Fprintf(&d, "[+%s]", diff.Text)
		default:
			d.WriteString(diff.Text)
		}
	}
	return fmt.Sprintf("  expected: %q\n  found:    %q\n  diff:     %s",
		truncate(expected, 200), truncate(found, 200), truncate(d.String(), 200))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary so the cut never yields invalid UTF-8.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func indent(s, prefix string) string {
	lines := splitLines(s)
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
