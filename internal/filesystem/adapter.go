// Package filesystem wraps the os-level operations the local content store
// needs behind a small interface, so the store can be tested against an
// in-memory fake.
package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// FileStats holds basic statistics about a file.
type FileStats struct {
	Size    int64
	IsDir   bool
	ModTime time.Time
	Mode    os.FileMode
}

// WalkEntry describes one regular file found under a root, with its path
// relative to that root using forward slashes.
type WalkEntry struct {
	Path string
	Size int64
}

// Adapter is the file system surface used by the local content store.
type Adapter interface {
	ReadFileBytes(filePath string) ([]byte, error)
	WriteFileBytesAtomic(filePath string, content []byte, perm os.FileMode) error
	FileExists(filePath string) (bool, error)
	EnsureDir(dirPath string) error
	RemoveFile(filePath string) error
	GetFileStats(filePath string) (*FileStats, error)
	IsValidUTF8(content []byte) bool
	// WalkFiles lists all regular files under root recursively, skipping
	// dot-prefixed files and directories.
	WalkFiles(root string) ([]WalkEntry, error)
}

// OSAdapter is the standard implementation of Adapter using the os package.
type OSAdapter struct{}

// NewOSAdapter creates a new OSAdapter.
func NewOSAdapter() *OSAdapter {
	return &OSAdapter{}
}

var _ Adapter = (*OSAdapter)(nil)

// ReadFileBytes reads the entire file into a byte slice.
func (a *OSAdapter) ReadFileBytes(filePath string) ([]byte, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s: %w", filePath, err)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied reading file: %s: %w", filePath, err)
		}
		return nil, fmt.Errorf("failed to read file: %s: %w", filePath, err)
	}
	return content, nil
}

// WriteFileBytesAtomic writes content to a file atomically: a temporary file
// in the same directory is written and closed, then renamed over the target.
// Parent directories are created as needed.
func (a *OSAdapter) WriteFileBytesAtomic(filePath string, content []byte, finalPerm os.FileMode) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(filePath)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	// Fails harmlessly once the rename below has happened.
	defer os.Remove(tempFile.Name())

	if _, errWrite := tempFile.Write(content); errWrite != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write to temporary file %s: %w", tempFile.Name(), errWrite)
	}
	if errClose := tempFile.Close(); errClose != nil {
		return fmt.Errorf("failed to close temporary file %s: %w", tempFile.Name(), errClose)
	}
	if errRename := os.Rename(tempFile.Name(), filePath); errRename != nil {
		return fmt.Errorf("failed to rename temporary file %s to %s: %w", tempFile.Name(), filePath, errRename)
	}
	// os.Rename can carry over the temp file's 0600 mode.
	if errChmod := os.Chmod(filePath, finalPerm); errChmod != nil {
		return fmt.Errorf("file written to %s, but failed to set final permissions to %o: %w", filePath, finalPerm, errChmod)
	}
	return nil
}

// FileExists checks if a file exists.
func (a *OSAdapter) FileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("error checking if file exists %s: %w", filePath, err)
}

// EnsureDir creates the directory and any missing parents.
func (a *OSAdapter) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// RemoveFile deletes a file. Removing a missing file is an error.
func (a *OSAdapter) RemoveFile(filePath string) error {
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to remove file %s: %w", filePath, err)
	}
	return nil
}

// GetFileStats retrieves statistics for a given file.
func (a *OSAdapter) GetFileStats(filePath string) (*FileStats, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found for stats: %s: %w", filePath, err)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied getting stats for file: %s: %w", filePath, err)
		}
		return nil, fmt.Errorf("failed to get file stats for %s: %w", filePath, err)
	}

	return &FileStats{
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
		Mode:    info.Mode().Perm(),
	}, nil
}

// IsValidUTF8 checks if the byte slice is valid UTF-8.
func (a *OSAdapter) IsValidUTF8(content []byte) bool {
	return utf8.Valid(content)
}

// WalkFiles lists regular files under root recursively. Hidden entries are
// skipped; hidden directories are not descended into.
func (a *OSAdapter) WalkFiles(root string) ([]WalkEntry, error) {
	var entries []WalkEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return fmt.Errorf("failed to get info for %s: %w", path, infoErr)
		}
		entries = append(entries, WalkEntry{
			Path: filepath.ToSlash(rel),
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", root, err)
	}
	return entries, nil
}
