package patch

import (
	"sort"
	"strings"
)

// splitLines splits text on \n without dropping a trailing empty element, so
// that join(split(s)) == s and the spec'd 1-based line arithmetic holds.
func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

// applyLineOps applies a batch of line-addressed operations against a single
// baseline. Operations are sorted by (line, priority) descending: bottom-up
// application keeps every operation's line number valid against the original
// numbering, and the priority tie-break makes an erase+insert pair on the
// same line act as a clean replacement (erase first).
func applyLineOps(lines []string, ops []Operation, diags *diagnostics) []string {
	sorted := make([]Operation, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line > sorted[j].Line
		}
		return sorted[i].priority() > sorted[j].priority()
	})

	for _, op := range sorted {
		idx := op.Line - 1
		switch op.Action {
		case ActionInsert:
			if idx < 0 || idx > len(lines)+1 {
				diags.addf("out of bounds: insert at line %d (file has %d lines)", op.Line, len(lines))
				continue
			}
			if idx > len(lines) {
				idx = len(lines)
			}
			ins := splitLines(op.Content)
			lines = append(lines[:idx], append(ins, lines[idx:]...)...)

		case ActionErase:
			target := splitLines(op.Content)
			span := len(target)
			if idx < 0 || idx+span > len(lines) {
				diags.addf("out of bounds: erase of %d line(s) at line %d (file has %d lines)", span, op.Line, len(lines))
				continue
			}
			current := lines[idx : idx+span]
			if !equalLines(current, target) {
				diags.addf("content mismatch: erase at line %d skipped\n%s", op.Line,
					mismatchContext(strings.Join(target, "\n"), strings.Join(current, "\n")))
				continue
			}
			lines = append(lines[:idx], lines[idx+span:]...)
		}
	}
	return lines
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
