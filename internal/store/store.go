// Package store abstracts where repository files live. Implementations keep
// content addressable by path and guard writes with revision tokens so two
// callers cannot silently clobber each other.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the path has no content.
	ErrNotFound = errors.New("file not found")
	// ErrRevisionConflict is returned when the revision token presented to a
	// write no longer matches the stored content.
	ErrRevisionConflict = errors.New("revision conflict")
)

// Entry describes one file visible in the store.
type Entry struct {
	Path string
	Size int64
}

// ContentStore is the repository backend. Revisions are opaque tokens: a
// Fetch returns the token for the content it read, and a Push or Delete must
// present that token back. An empty token on Push means "create, the file
// must not exist yet".
type ContentStore interface {
	// Fetch returns the content and revision for path. A missing file is not
	// an error: exists is false and content and rev are empty.
	Fetch(ctx context.Context, path string) (content string, rev string, exists bool, err error)

	// Push replaces the content at path and returns the new revision.
	Push(ctx context.Context, path string, content string, rev string) (newRev string, err error)

	// Delete removes the file at path.
	Delete(ctx context.Context, path string, rev string) error

	// List enumerates the files in the store.
	List(ctx context.Context) ([]Entry, error)
}
