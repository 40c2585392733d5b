package patch

// applyAnchorOp applies one anchor-addressed operation to the buffer and
// returns the new buffer. Anchor operations see the cumulative effect of all
// prior operations, so the caller folds them in arrival order. A missing
// anchor leaves the buffer unchanged and logs a diagnostic with candidate
// context snippets.
func applyAnchorOp(buffer string, op Operation, diags *diagnostics) string {
	switch op.Action {
	case ActionReplace:
		return replaceAnchor(buffer, op.Search, op.Replace, diags)

	case ActionErase:
		return replaceAnchor(buffer, op.Search, "", diags)

	case ActionInsert:
		switch op.Position {
		case PositionStart:
			return op.Insert + buffer
		case PositionEnd:
			return buffer + op.Insert
		case PositionBefore, PositionAfter:
			m, ok := findAnchor(buffer, op.Search)
			if !ok {
				diags.addf("anchor not found for insert: %s", anchorNotFound(buffer, op.Search))
				return buffer
			}
			if m.count > 1 {
				diags.addf("ambiguous anchor: %d occurrences, edited the first", m.count)
			}
			at := m.start
			if op.Position == PositionAfter {
				at = m.end
			}
			return buffer[:at] + op.Insert + buffer[at:]
		}
	}
	return buffer
}

func replaceAnchor(buffer, search, replacement string, diags *diagnostics) string {
	m, ok := findAnchor(buffer, search)
	if !ok {
		diags.addf("anchor not found: %s", anchorNotFound(buffer, search))
		return buffer
	}
	if m.count > 1 {
		diags.addf("ambiguous anchor: %d occurrences, edited the first", m.count)
	}
	return buffer[:m.start] + replacement + buffer[m.end:]
}
