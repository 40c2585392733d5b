// Package service orchestrates the patch pipeline: grouping wire operations
// per file, running them through the patch engine, and committing the results
// to the content store. It also drives the chat flow that asks a language
// model to propose the operations in the first place.
package service

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"repo-patch-server/internal/errors"
	"repo-patch-server/internal/llm"
	"repo-patch-server/internal/models"
	"repo-patch-server/internal/patch"
	"repo-patch-server/internal/store"
)

const (
	maxChangesAllowed    = 1000
	defaultHistoryWindow = 10
	defaultConcurrency   = 4
)

// PatchService defines the operations the transports expose.
type PatchService interface {
	Apply(ctx context.Context, req models.ApplyRequest) (*models.ApplyResponse, *models.ErrorDetail)
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, *models.ErrorDetail)
}

// Options tunes a DefaultPatchService.
type Options struct {
	// Prompt is the system prompt sent to the model.
	Prompt string
	// HistoryWindow is how many trailing history turns are forwarded; 0 means
	// the default of 10.
	HistoryWindow int
	// MaxConcurrentFiles bounds parallel per-file pipelines; 0 means the
	// default of 4.
	MaxConcurrentFiles int
	// OperationTimeout bounds one Apply or Chat call; 0 disables the bound.
	OperationTimeout time.Duration
}

// DefaultPatchService implements PatchService.
type DefaultPatchService struct {
	store         store.ContentStore
	provider      llm.Provider
	logger        *zap.Logger
	prompt        string
	historyWindow int
	maxConcurrent int
	opTimeout     time.Duration
}

// NewDefaultPatchService creates a service over the given store and provider.
// The provider may be nil when only Apply is served.
func NewDefaultPatchService(st store.ContentStore, provider llm.Provider, opts Options, logger *zap.Logger) (*DefaultPatchService, error) {
	if st == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	historyWindow := opts.HistoryWindow
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	maxConcurrent := opts.MaxConcurrentFiles
	if maxConcurrent <= 0 {
		maxConcurrent = defaultConcurrency
	}
	return &DefaultPatchService{
		store:         st,
		provider:      provider,
		logger:        logger,
		prompt:        opts.Prompt,
		historyWindow: historyWindow,
		maxConcurrent: maxConcurrent,
		opTimeout:     opts.OperationTimeout,
	}, nil
}

var _ PatchService = (*DefaultPatchService)(nil)

// fileGroup keeps one file's operations in arrival order.
type fileGroup struct {
	file string
	ops  []models.ChangeOp
}

// groupByFile partitions operations per target file, preserving both the
// first-seen order of files and the arrival order within each file.
func groupByFile(changes []models.ChangeOp) []fileGroup {
	index := make(map[string]int, len(changes))
	var groups []fileGroup
	for _, c := range changes {
		i, ok := index[c.File]
		if !ok {
			i = len(groups)
			index[c.File] = i
			groups = append(groups, fileGroup{file: c.File})
		}
		groups[i].ops = append(groups[i].ops, c)
	}
	return groups
}

// Apply runs every operation in the request. Files are independent: a
// failure in one never aborts the others, it is reported in that file's
// result instead.
func (s *DefaultPatchService) Apply(ctx context.Context, req models.ApplyRequest) (*models.ApplyResponse, *models.ErrorDetail) {
	if len(req.Changes) > maxChangesAllowed {
		return nil, errors.NewInvalidParamsError(
			fmt.Sprintf("too many changes: %d exceeds the maximum of %d", len(req.Changes), maxChangesAllowed), nil)
	}

	if s.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
	}

	groups := groupByFile(req.Changes)
	results := make([]models.FileResult, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, grp := range groups {
		i, grp := i, grp
		g.Go(func() error {
			results[i] = s.processFile(gctx, grp.file, grp.ops)
			// Per-file failures live in the result, never in the group error,
			// so sibling files keep running.
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("apply finished",
		zap.Int("changes", len(req.Changes)),
		zap.Int("files", len(groups)))
	return &models.ApplyResponse{Results: results}, nil
}

// processFile runs one file's pipeline: fetch, patch, push or delete.
func (s *DefaultPatchService) processFile(ctx context.Context, file string, ops []models.ChangeOp) models.FileResult {
	if file == "" {
		return models.FileResult{
			Status: models.StatusFailed,
			Error:  errors.NewInvalidParamsError("operation is missing 'file'", nil),
		}
	}

	content, rev, exists, err := s.store.Fetch(ctx, file)
	if err != nil {
		return models.FileResult{
			File:   file,
			Status: models.StatusFailed,
			Error:  s.storeError(file, "fetch", err),
		}
	}

	outcome := patch.Apply(content, ops)
	if len(outcome.Diagnostics) > 0 {
		s.logger.Warn("patch produced diagnostics",
			zap.String("file", file),
			zap.Strings("diagnostics", outcome.Diagnostics))
	}

	if outcome.Deleted {
		if !exists {
			return models.FileResult{
				File:        file,
				Status:      models.StatusSkipped,
				Diagnostics: append(outcome.Diagnostics, "file does not exist"),
			}
		}
		if err := s.store.Delete(ctx, file, rev); err != nil {
			return models.FileResult{
				File:        file,
				Status:      models.StatusFailed,
				Diagnostics: outcome.Diagnostics,
				Error:       s.storeError(file, "delete", err),
			}
		}
		return models.FileResult{
			File:        file,
			Status:      models.StatusDeleted,
			Diagnostics: outcome.Diagnostics,
		}
	}

	newRev, err := s.store.Push(ctx, file, outcome.Content, rev)
	if err != nil {
		return models.FileResult{
			File:        file,
			Status:      models.StatusFailed,
			Diagnostics: outcome.Diagnostics,
			Error:       s.storeError(file, "push", err),
		}
	}
	return models.FileResult{
		File:        file,
		Status:      models.StatusUpdated,
		Revision:    newRev,
		Diagnostics: outcome.Diagnostics,
	}
}

func (s *DefaultPatchService) storeError(file, operation string, err error) *models.ErrorDetail {
	if stdErrors.Is(err, store.ErrRevisionConflict) {
		return errors.NewRevisionConflictError(file, "")
	}
	return errors.NewStoreError(file, operation, err.Error())
}

// Chat runs the full pipeline: build the repository context, query the
// model, then apply whatever changes it proposed.
func (s *DefaultPatchService) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, *models.ErrorDetail) {
	if s.provider == nil {
		return nil, errors.NewInternalError("no model provider is configured")
	}
	if req.Message == "" {
		return nil, errors.NewInvalidParamsError("message is required", nil)
	}

	if s.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
	}

	repoContext, err := llm.BuildRepoContext(ctx, s.store, s.logger)
	if err != nil {
		return nil, errors.NewStoreError("", "list", err.Error())
	}

	messages := llm.BuildMessages(s.prompt, req.History, s.historyWindow, repoContext, req.Message)
	raw, err := s.provider.Complete(ctx, messages)
	if err != nil {
		return nil, errors.NewProviderError(err.Error())
	}
	proposal, err := llm.ParseProposal(raw)
	if err != nil {
		return nil, errors.NewProviderError(err.Error())
	}

	resp := &models.ChatResponse{
		Response:     proposal.Message,
		ExecutionLog: []string{},
	}
	if len(proposal.Changes) == 0 {
		return resp, nil
	}

	applyResp, errDetail := s.Apply(ctx, models.ApplyRequest{Changes: proposal.Changes})
	if errDetail != nil {
		return nil, errDetail
	}
	resp.Results = applyResp.Results
	resp.ExecutionLog = executionLog(applyResp.Results)
	return resp, nil
}

// executionLog renders per-file results as the human-readable log lines the
// chat response carries.
func executionLog(results []models.FileResult) []string {
	log := make([]string, 0, len(results))
	for _, r := range results {
		switch r.Status {
		case models.StatusUpdated:
			log = append(log, fmt.Sprintf("Updated %s", r.File))
		case models.StatusDeleted:
			log = append(log, fmt.Sprintf("Deleted %s", r.File))
		case models.StatusSkipped:
			log = append(log, fmt.Sprintf("Skipped delete %s (file not found)", r.File))
		case models.StatusFailed:
			msg := "unknown error"
			if r.Error != nil {
				msg = r.Error.Message
			}
			log = append(log, fmt.Sprintf("Failed to update %s: %s", r.File, msg))
		}
	}
	return log
}
