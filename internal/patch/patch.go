// Package patch applies ordered lists of symbolic edit operations to file
// text. Operations address either absolute 1-based line numbers or fuzzy
// content anchors; failed operations are skipped with a diagnostic and never
// abort the rest of the set.
package patch

import (
	"fmt"
	"strings"

	"repo-patch-server/internal/models"
)

// Outcome is the result of applying one file's patch set.
type Outcome struct {
	// Deleted signals the caller should remove the file; Content is
	// meaningless when set.
	Deleted bool
	// Content is the fully mutated file text.
	Content string
	// Diagnostics lists skipped sub-operations in the order they were
	// encountered. Non-empty diagnostics do not imply failure.
	Diagnostics []string
}

type diagnostics struct {
	entries []string
}

func (d *diagnostics) addf(format string, args ...interface{}) {
	d.entries = append(d.entries, fmt.Sprintf(format, args...))
}

// Apply runs the wire operations for a single file, in arrival order, against
// the file's current content. Absent files are passed as "" (a valid baseline
// for write and start/end inserts).
//
// Addressing rules:
//   - line-addressed operations are interpreted against the baseline
//     numbering, not against intermediate states; they are batched and
//     applied bottom-up so earlier splices cannot shift later targets;
//   - anchor-addressed operations fold over the cumulatively mutated buffer
//     in arrival order;
//   - a write resets the buffer and becomes the new baseline for everything
//     after it;
//   - a delete_file short-circuits: nothing after it executes and the outcome
//     is Deleted regardless of its position in the set.
func Apply(original string, changes []models.ChangeOp) Outcome {
	var diags diagnostics

	ops := make([]Operation, 0, len(changes))
	deleted := false
	for _, c := range changes {
		op, err := ParseOperation(c)
		if err != nil {
			diags.addf("skipped operation: %v", err)
			continue
		}
		if op.Action == ActionDeleteFile {
			deleted = true
			break
		}
		ops = append(ops, op)
	}
	if deleted {
		// Delete wins outright: no other operation in the set executes.
		return Outcome{Deleted: true, Diagnostics: diags.entries}
	}

	buffer := original
	// Segments are separated by write operations; within a segment the
	// line-addressed batch runs first against the segment baseline, then
	// anchor operations fold in order.
	for len(ops) > 0 {
		seg := ops
		var write *Operation
		for i := range ops {
			if ops[i].Action == ActionWrite {
				seg = ops[:i]
				write = &ops[i]
				ops = ops[i+1:]
				break
			}
		}
		if write == nil {
			ops = nil
		}

		buffer = applySegment(buffer, seg, &diags)
		if write != nil {
			buffer = write.Content
		}
	}

	return Outcome{Content: buffer, Diagnostics: diags.entries}
}

func applySegment(baseline string, ops []Operation, diags *diagnostics) string {
	var lineOps []Operation
	for _, op := range ops {
		if op.LineAddressed() {
			lineOps = append(lineOps, op)
		}
	}

	buffer := baseline
	if len(lineOps) > 0 {
		buffer = strings.Join(applyLineOps(splitLines(baseline), lineOps, diags), "\n")
	}
	for _, op := range ops {
		if op.LineAddressed() {
			continue
		}
		buffer = applyAnchorOp(buffer, op, diags)
	}
	return buffer
}
