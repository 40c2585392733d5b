package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"repo-patch-server/internal/store"
)

// Files included in the context even without a recognized extension.
var contextConfigFiles = map[string]bool{
	"Procfile":         true,
	"Dockerfile":       true,
	"Makefile":         true,
	".gitignore":       true,
	"requirements.txt": true,
	"go.mod":           true,
}

var contextExtensions = []string{
	".py", ".md", ".txt", ".js", ".html", ".css", ".json",
	".go", ".yaml", ".yml", ".toml",
}

// contextFileLimit caps how many bytes of a single file go into the context.
const contextFileLimit = 256 << 10

// BuildRepoContext renders the text-file contents of the store as one prompt
// block. Each file gets a header and 1-based line numbers so the model can
// address edits by line. Files that fail to fetch are skipped with a warning.
func BuildRepoContext(ctx context.Context, st store.ContentStore, logger *zap.Logger) (string, error) {
	entries, err := st.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list repository: %w", err)
	}

	var sb strings.Builder
	for _, entry := range entries {
		if !contextEligible(entry.Path) {
			continue
		}
		if entry.Size > contextFileLimit {
			logger.Debug("skipping oversized context file",
				zap.String("path", entry.Path), zap.Int64("size", entry.Size))
			continue
		}
		content, _, exists, err := st.Fetch(ctx, entry.Path)
		if err != nil {
			logger.Warn("skipping unreadable context file",
				zap.String("path", entry.Path), zap.Error(err))
			continue
		}
		if !exists || content == "" {
			continue
		}

		sb.WriteString(fmt.Sprintf("\n--- FILE: %s ---\n", entry.Path))
		for i, line := range strings.Split(content, "\n") {
			sb.WriteString(fmt.Sprintf("%d | %s\n", i+1, line))
		}
	}
	return sb.String(), nil
}

func contextEligible(path string) bool {
	base := path
	if idx := strings.LastIndex(path, "/"); idx != -1 {
		base = path[idx+1:]
	}
	if contextConfigFiles[base] {
		return true
	}
	for _, ext := range contextExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
