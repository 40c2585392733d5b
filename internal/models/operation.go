package models

// ChangeOp is the wire representation of a single edit operation as produced
// by the operation source (typically a language model). Which fields are
// required depends on Action; absence is significant, so optional fields are
// pointers.
type ChangeOp struct {
	// Action is one of "write", "delete_file", "insert", "erase", "replace".
	Action string `json:"action"`
	// File is the repository path of the target file.
	File string `json:"file"`
	// Line is the 1-based line number for line-addressed operations.
	// When present, "insert" and "erase" address lines; when absent they
	// address content anchors via Search.
	Line *int `json:"line,omitempty"`
	// Content is the payload for "write" and for line-addressed
	// "insert"/"erase" (for erase it is the exact text of the span to remove).
	Content *string `json:"content,omitempty"`
	// Search is the anchor text for "replace", "erase" and anchored "insert".
	Search *string `json:"search,omitempty"`
	// Replace is the substitution text for "replace".
	Replace *string `json:"replace,omitempty"`
	// Insert is the text to splice for anchor-addressed "insert".
	Insert *string `json:"insert,omitempty"`
	// Position is "before", "after", "start" or "end" for anchored "insert".
	Position string `json:"position,omitempty"`
}

// ApplyRequest asks the server to apply a flat list of change operations.
// Operations are grouped per file in first-seen order; within a file the
// arrival order is preserved.
type ApplyRequest struct {
	Changes []ChangeOp `json:"changes"`
}

// File result status values.
const (
	StatusUpdated = "updated"
	StatusDeleted = "deleted"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// FileResult reports the outcome of applying one file's patch set.
type FileResult struct {
	File string `json:"file"`
	// Status is one of the Status* constants.
	Status string `json:"status"`
	// Revision is the content store revision after a successful push.
	Revision string `json:"revision,omitempty"`
	// Diagnostics lists skipped or failed sub-operations. Entries here are
	// non-fatal; the rest of the set still applied.
	Diagnostics []string `json:"diagnostics,omitempty"`
	// Error is set when the file's pipeline failed at the store boundary.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ApplyResponse reports per-file results, one entry per distinct target file.
type ApplyResponse struct {
	Results []FileResult `json:"results"`
}

// ChatMessage is one turn of the conversation history.
type ChatMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// ChatRequest drives the full pipeline: query the model with the repository
// context, then apply whatever changes it proposes.
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
}

// ChatResponse carries the assistant reply plus the apply outcome.
type ChatResponse struct {
	Response     string       `json:"response"`
	ExecutionLog []string     `json:"execution_log"`
	Results      []FileResult `json:"results,omitempty"`
}
