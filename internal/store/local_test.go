package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repo-patch-server/internal/filesystem"
	"repo-patch-server/internal/lock"
)

func newTestStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewLocalStore(LocalOptions{
		Root:        root,
		MaxFileSize: 1 << 20,
		LockTimeout: 2 * time.Second,
	}, filesystem.NewOSAdapter(), lock.NewFlockManager(), zap.NewNop())
	require.NoError(t, err)
	return s, root
}

func TestLocalFetchMissing(t *testing.T) {
	s, _ := newTestStore(t)
	content, rev, exists, err := s.Fetch(context.Background(), "nope.txt")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, content)
	assert.Empty(t, rev)
}

func TestLocalPushCreateAndFetch(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rev, err := s.Push(ctx, "dir/a.txt", "hello\n", "")
	require.NoError(t, err)
	require.NotEmpty(t, rev)

	content, gotRev, exists, err := s.Fetch(ctx, "dir/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "hello\n", content)
	assert.Equal(t, rev, gotRev)
}

func TestLocalPushCreatesNestedDirectories(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	// No part of the directory chain exists yet; Push must create it before
	// taking the file lock.
	rev, err := s.Push(ctx, "a/b/c/deep.txt", "payload", "")
	require.NoError(t, err)
	require.NotEmpty(t, rev)

	data, err := os.ReadFile(filepath.Join(root, "a", "b", "c", "deep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, s.Delete(ctx, "a/b/c/deep.txt", rev))
}

func TestLocalPushCreateOverExisting(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Push(ctx, "a.txt", "v1", "")
	require.NoError(t, err)

	_, err = s.Push(ctx, "a.txt", "v2", "")
	require.ErrorIs(t, err, ErrRevisionConflict)
}

func TestLocalPushStaleRevision(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rev, err := s.Push(ctx, "a.txt", "v1", "")
	require.NoError(t, err)
	_, err = s.Push(ctx, "a.txt", "v2", rev)
	require.NoError(t, err)

	// The first revision is now stale.
	_, err = s.Push(ctx, "a.txt", "v3", rev)
	require.ErrorIs(t, err, ErrRevisionConflict)
}

func TestLocalPushRevisionAgainstRemovedFile(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	rev, err := s.Push(ctx, "a.txt", "v1", "")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))

	_, err = s.Push(ctx, "a.txt", "v2", rev)
	require.ErrorIs(t, err, ErrRevisionConflict)
}

func TestLocalDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rev, err := s.Push(ctx, "a.txt", "v1", "")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "a.txt", rev))

	_, _, exists, err := s.Fetch(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalDeleteMissing(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Delete(context.Background(), "nope.txt", "deadbeef")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalDeleteStaleRevision(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rev, err := s.Push(ctx, "a.txt", "v1", "")
	require.NoError(t, err)
	_, err = s.Push(ctx, "a.txt", "v2", rev)
	require.NoError(t, err)

	err = s.Delete(ctx, "a.txt", rev)
	require.ErrorIs(t, err, ErrRevisionConflict)
}

func TestLocalPathEscapeRejected(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"../outside.txt", "/etc/passwd", "a/../../b"} {
		_, _, _, err := s.Fetch(ctx, p)
		assert.Error(t, err, p)
	}
}

func TestLocalListSkipsHiddenAndLockFiles(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	_, err := s.Push(ctx, "a.txt", "a", "")
	require.NoError(t, err)
	_, err = s.Push(ctx, "sub/b.txt", "b", "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt.lock"), []byte(""), 0o644))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.ElementsMatch(t, []string{"a.txt", "sub/b.txt"}, paths)
}

func TestLocalMaxFileSize(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(LocalOptions{
		Root:        root,
		MaxFileSize: 4,
		LockTimeout: time.Second,
	}, filesystem.NewOSAdapter(), lock.NewFlockManager(), zap.NewNop())
	require.NoError(t, err)

	_, err = s.Push(context.Background(), "a.txt", "too large", "")
	assert.Error(t, err)
}
