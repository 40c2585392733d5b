package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"repo-patch-server/internal/filesystem"
	"repo-patch-server/internal/lock"
)

// LocalStore serves files from a working directory on disk. Revisions are
// SHA-1 digests of the content: a write re-hashes the file under an exclusive
// flock and rejects the push if the digest no longer matches the caller's
// token.
type LocalStore struct {
	root        string
	fs          filesystem.Adapter
	locks       lock.Manager
	logger      *zap.Logger
	maxFileSize int64
	lockTimeout time.Duration
}

// LocalOptions configures a LocalStore.
type LocalOptions struct {
	// Root is the working directory all paths are resolved against.
	Root string
	// MaxFileSize caps readable and writable file sizes in bytes.
	MaxFileSize int64
	// LockTimeout bounds how long a write waits for the file lock.
	LockTimeout time.Duration
}

// NewLocalStore creates a store rooted at opts.Root.
func NewLocalStore(opts LocalOptions, fs filesystem.Adapter, locks lock.Manager, logger *zap.Logger) (*LocalStore, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory %s: %w", opts.Root, err)
	}
	stats, err := fs.GetFileStats(root)
	if err != nil {
		return nil, fmt.Errorf("working directory is not accessible: %w", err)
	}
	if !stats.IsDir {
		return nil, fmt.Errorf("working directory is not a directory: %s", root)
	}
	return &LocalStore{
		root:        root,
		fs:          fs,
		locks:       locks,
		logger:      logger,
		maxFileSize: opts.MaxFileSize,
		lockTimeout: opts.LockTimeout,
	}, nil
}

var _ ContentStore = (*LocalStore)(nil)

// resolve validates a store path and maps it under the root. Absolute paths
// and traversal outside the root are rejected.
func (s *LocalStore) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	cleaned := filepath.ToSlash(filepath.Clean(path))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path escapes working directory: %s", path)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// revision is the content hash used as the optimistic concurrency token.
func revision(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

func (s *LocalStore) Fetch(ctx context.Context, path string) (string, string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", "", false, err
	}
	abs, err := s.resolve(path)
	if err != nil {
		return "", "", false, err
	}

	exists, err := s.fs.FileExists(abs)
	if err != nil {
		return "", "", false, err
	}
	if !exists {
		return "", "", false, nil
	}

	stats, err := s.fs.GetFileStats(abs)
	if err != nil {
		return "", "", false, err
	}
	if stats.IsDir {
		return "", "", false, fmt.Errorf("path is a directory: %s", path)
	}
	if s.maxFileSize > 0 && stats.Size > s.maxFileSize {
		return "", "", false, fmt.Errorf("file %s exceeds maximum size (%d > %d bytes)", path, stats.Size, s.maxFileSize)
	}

	content, err := s.fs.ReadFileBytes(abs)
	if err != nil {
		return "", "", false, err
	}
	if !s.fs.IsValidUTF8(content) {
		return "", "", false, fmt.Errorf("file %s is not valid UTF-8", path)
	}
	return string(content), revision(content), true, nil
}

func (s *LocalStore) Push(ctx context.Context, path string, content string, rev string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	abs, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if s.maxFileSize > 0 && int64(len(content)) > s.maxFileSize {
		return "", fmt.Errorf("content for %s exceeds maximum size (%d > %d bytes)", path, len(content), s.maxFileSize)
	}

	// The flock lives next to the target, so the parent directory must exist
	// before the lock can be taken.
	if err := s.fs.EnsureDir(filepath.Dir(abs)); err != nil {
		return "", err
	}

	fl, err := s.locks.AcquireLock(abs, s.lockTimeout)
	if err != nil {
		return "", fmt.Errorf("could not lock %s: %w", path, err)
	}
	defer func() { _ = s.locks.ReleaseLock(fl) }()

	if err := s.checkRevision(abs, path, rev); err != nil {
		return "", err
	}

	data := []byte(content)
	if err := s.fs.WriteFileBytesAtomic(abs, data, 0o644); err != nil {
		return "", err
	}
	newRev := revision(data)
	s.logger.Debug("pushed file",
		zap.String("path", path),
		zap.String("revision", newRev),
		zap.Int("bytes", len(data)))
	return newRev, nil
}

func (s *LocalStore) Delete(ctx context.Context, path string, rev string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := s.fs.EnsureDir(filepath.Dir(abs)); err != nil {
		return err
	}

	fl, err := s.locks.AcquireLock(abs, s.lockTimeout)
	if err != nil {
		return fmt.Errorf("could not lock %s: %w", path, err)
	}
	defer func() { _ = s.locks.ReleaseLock(fl) }()

	exists, err := s.fs.FileExists(abs)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err := s.checkRevision(abs, path, rev); err != nil {
		return err
	}
	if err := s.fs.RemoveFile(abs); err != nil {
		return err
	}
	s.logger.Debug("deleted file", zap.String("path", path))
	return nil
}

// checkRevision compares the caller's token against the current content hash.
// Must be called with the file lock held.
func (s *LocalStore) checkRevision(abs, path, rev string) error {
	exists, err := s.fs.FileExists(abs)
	if err != nil {
		return err
	}
	if rev == "" {
		if exists {
			return fmt.Errorf("%w: %s already exists", ErrRevisionConflict, path)
		}
		return nil
	}
	if !exists {
		return fmt.Errorf("%w: %s was removed", ErrRevisionConflict, path)
	}
	current, err := s.fs.ReadFileBytes(abs)
	if err != nil {
		return err
	}
	if revision(current) != rev {
		return fmt.Errorf("%w: %s changed since it was read", ErrRevisionConflict, path)
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := s.fs.WalkFiles(s.root)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f.Path, ".lock") {
			continue
		}
		entries = append(entries, Entry{Path: f.Path, Size: f.Size})
	}
	return entries, nil
}
