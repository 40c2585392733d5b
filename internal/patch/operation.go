package patch

import (
	"fmt"
	"strings"

	"repo-patch-server/internal/models"
)

// Action identifies the kind of edit an Operation performs.
type Action int

const (
	ActionWrite Action = iota
	ActionDeleteFile
	ActionInsert
	ActionErase
	ActionReplace
)

// String returns the wire name of the action.
func (a Action) String() string {
	switch a {
	case ActionWrite:
		return "write"
	case ActionDeleteFile:
		return "delete_file"
	case ActionInsert:
		return "insert"
	case ActionErase:
		return "erase"
	case ActionReplace:
		return "replace"
	}
	return "unknown"
}

// Position controls where an anchored insert lands relative to its anchor.
type Position int

const (
	PositionNone Position = iota
	PositionBefore
	PositionAfter
	PositionStart
	PositionEnd
)

// Operation is a validated, typed edit instruction. Line-addressed operations
// carry a 1-based Line; anchor-addressed operations carry Search (except
// start/end inserts, which need no anchor).
type Operation struct {
	Action   Action
	Line     int
	Content  string
	Search   string
	Replace  string
	Insert   string
	Position Position

	// lineAddressed records that the wire record carried a line number, even
	// an invalid one: out-of-range lines must reach the line applier so they
	// are skipped with an out-of-bounds diagnostic, not misread as anchors.
	lineAddressed bool
}

// LineAddressed reports whether the operation targets an absolute line
// number rather than a content anchor.
func (op Operation) LineAddressed() bool {
	return op.lineAddressed
}

// Sort priority for line-addressed application: on the same line an erase
// must land before an insert so the pair acts as a clean replacement.
func (op Operation) priority() int {
	switch op.Action {
	case ActionDeleteFile:
		return 3
	case ActionErase:
		return 2
	case ActionInsert:
		return 1
	}
	return 0
}

// ParseOperation validates a wire change record and produces a typed
// Operation. Unknown actions and records missing a field their action
// requires are rejected; callers are expected to skip such operations with a
// diagnostic rather than abort the set.
func ParseOperation(c models.ChangeOp) (Operation, error) {
	action := strings.ToLower(strings.TrimSpace(c.Action))
	switch action {
	case "write":
		if c.Content == nil {
			return Operation{}, fmt.Errorf("malformed operation: 'write' requires 'content'")
		}
		return Operation{Action: ActionWrite, Content: *c.Content}, nil

	case "delete_file":
		return Operation{Action: ActionDeleteFile}, nil

	case "insert":
		if c.Line != nil {
			if c.Content == nil {
				return Operation{}, fmt.Errorf("malformed operation: line 'insert' requires 'content'")
			}
			return Operation{Action: ActionInsert, Line: *c.Line, Content: *c.Content, lineAddressed: true}, nil
		}
		pos, err := parsePosition(c.Position)
		if err != nil {
			return Operation{}, err
		}
		if c.Insert == nil {
			return Operation{}, fmt.Errorf("malformed operation: 'insert' requires 'insert' text")
		}
		op := Operation{Action: ActionInsert, Insert: *c.Insert, Position: pos}
		if pos == PositionBefore || pos == PositionAfter {
			if c.Search == nil {
				return Operation{}, fmt.Errorf("malformed operation: 'insert' with position %q requires 'search'", c.Position)
			}
			op.Search = *c.Search
		}
		return op, nil

	case "erase":
		if c.Line != nil {
			if c.Content == nil {
				return Operation{}, fmt.Errorf("malformed operation: line 'erase' requires 'content'")
			}
			return Operation{Action: ActionErase, Line: *c.Line, Content: *c.Content, lineAddressed: true}, nil
		}
		if c.Search == nil {
			return Operation{}, fmt.Errorf("malformed operation: 'erase' requires 'search'")
		}
		return Operation{Action: ActionErase, Search: *c.Search}, nil

	case "replace":
		if c.Search == nil {
			return Operation{}, fmt.Errorf("malformed operation: 'replace' requires 'search'")
		}
		if c.Replace == nil {
			return Operation{}, fmt.Errorf("malformed operation: 'replace' requires 'replace'")
		}
		return Operation{Action: ActionReplace, Search: *c.Search, Replace: *c.Replace}, nil

	default:
		return Operation{}, fmt.Errorf("unknown action %q", c.Action)
	}
}

func parsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "before":
		return PositionBefore, nil
	case "after":
		return PositionAfter, nil
	case "start":
		return PositionStart, nil
	case "end":
		return PositionEnd, nil
	case "":
		return PositionNone, fmt.Errorf("malformed operation: 'insert' requires 'position'")
	default:
		return PositionNone, fmt.Errorf("malformed operation: invalid position %q", s)
	}
}
