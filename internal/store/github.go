package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
)

// GitHubStore serves files from a branch of a GitHub repository through the
// contents API. The blob SHA doubles as the revision token: the API itself
// rejects an update whose SHA is stale, which this store surfaces as
// ErrRevisionConflict.
type GitHubStore struct {
	client *github.Client
	owner  string
	repo   string
	branch string
	logger *zap.Logger
}

// GitHubOptions configures a GitHubStore.
type GitHubOptions struct {
	Owner  string
	Repo   string
	Branch string
	// Token is a personal access token with contents read/write scope.
	Token string
}

// NewGitHubStore creates a store bound to one repository branch.
func NewGitHubStore(opts GitHubOptions, httpClient *http.Client, logger *zap.Logger) (*GitHubStore, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}
	if opts.Branch == "" {
		return nil, fmt.Errorf("github branch is required")
	}
	client := github.NewClient(httpClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	return &GitHubStore{
		client: client,
		owner:  opts.Owner,
		repo:   opts.Repo,
		branch: opts.Branch,
		logger: logger,
	}, nil
}

var _ ContentStore = (*GitHubStore)(nil)

func (s *GitHubStore) Fetch(ctx context.Context, path string) (string, string, bool, error) {
	file, _, resp, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, path,
		&github.RepositoryContentGetOptions{Ref: s.branch})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("failed to fetch %s from github: %w", path, err)
	}
	if file == nil {
		// GetContents returns a directory listing instead of a file here.
		return "", "", false, fmt.Errorf("path is a directory: %s", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", "", false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return content, file.GetSHA(), true, nil
}

func (s *GitHubStore) Push(ctx context.Context, path string, content string, rev string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("Update %s", path)),
		Content: []byte(content),
		Branch:  github.String(s.branch),
	}

	var result *github.RepositoryContentResponse
	var err error
	if rev == "" {
		opts.Message = github.String(fmt.Sprintf("Create %s", path))
		result, _, err = s.client.Repositories.CreateFile(ctx, s.owner, s.repo, path, opts)
	} else {
		opts.SHA = github.String(rev)
		result, _, err = s.client.Repositories.UpdateFile(ctx, s.owner, s.repo, path, opts)
	}
	if err != nil {
		if isConflict(err) {
			return "", fmt.Errorf("%w: %s", ErrRevisionConflict, path)
		}
		return "", fmt.Errorf("failed to push %s to github: %w", path, err)
	}

	newRev := result.GetContent().GetSHA()
	s.logger.Debug("pushed file to github",
		zap.String("path", path),
		zap.String("revision", newRev),
		zap.String("commit", result.GetSHA()))
	return newRev, nil
}

func (s *GitHubStore) Delete(ctx context.Context, path string, rev string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("Delete %s", path)),
		SHA:     github.String(rev),
		Branch:  github.String(s.branch),
	}
	_, resp, err := s.client.Repositories.DeleteFile(ctx, s.owner, s.repo, path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if isConflict(err) {
			return fmt.Errorf("%w: %s", ErrRevisionConflict, path)
		}
		return fmt.Errorf("failed to delete %s from github: %w", path, err)
	}
	s.logger.Debug("deleted file from github", zap.String("path", path))
	return nil
}

func (s *GitHubStore) List(ctx context.Context) ([]Entry, error) {
	tree, _, err := s.client.Git.GetTree(ctx, s.owner, s.repo, s.branch, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list repository tree: %w", err)
	}
	entries := make([]Entry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.GetType() != "blob" {
			continue
		}
		entries = append(entries, Entry{Path: e.GetPath(), Size: int64(e.GetSize())})
	}
	if tree.GetTruncated() {
		s.logger.Warn("repository tree listing was truncated by the API",
			zap.Int("entries", len(entries)))
	}
	return entries, nil
}

// isConflict reports whether a contents API error means the presented blob
// SHA is stale. GitHub answers 409 for branch-level races and 422 when the
// SHA does not match the current file.
func isConflict(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return false
	}
	code := ghErr.Response.StatusCode
	return code == http.StatusConflict || code == http.StatusUnprocessableEntity
}
