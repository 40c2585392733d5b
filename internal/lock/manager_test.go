package lock

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	m := NewFlockManager()
	target := filepath.Join(t.TempDir(), "file.txt")

	fl, err := m.AcquireLock(target, time.Second)
	require.NoError(t, err)
	require.NotNil(t, fl)
	assert.Equal(t, target, fl.FilePath)
	require.NoError(t, m.ReleaseLock(fl))
}

func TestAcquireContendedTimesOut(t *testing.T) {
	m := NewFlockManager()
	target := filepath.Join(t.TempDir(), "file.txt")

	fl, err := m.AcquireLock(target, time.Second)
	require.NoError(t, err)
	defer func() { _ = m.ReleaseLock(fl) }()

	_, err = m.AcquireLock(target, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestAcquireAfterRelease(t *testing.T) {
	m := NewFlockManager()
	target := filepath.Join(t.TempDir(), "file.txt")

	fl, err := m.AcquireLock(target, time.Second)
	require.NoError(t, err)
	require.NoError(t, m.ReleaseLock(fl))

	fl2, err := m.AcquireLock(target, time.Second)
	require.NoError(t, err)
	require.NoError(t, m.ReleaseLock(fl2))
}

func TestAcquireEmptyFilename(t *testing.T) {
	m := NewFlockManager()
	_, err := m.AcquireLock("", time.Second)
	assert.ErrorIs(t, err, ErrFilenameRequired)
}

func TestReleaseNil(t *testing.T) {
	m := NewFlockManager()
	assert.ErrorIs(t, m.ReleaseLock(nil), ErrNilLock)
}
