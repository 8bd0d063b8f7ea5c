// Package git provides adapters for interacting with local Git repositories.
// This package implements the domain.ScratchInspector interface using go-git/v5.
package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// Logger defines the logging interface for the git adapter.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// Inspector reads HEAD of a cloned scratch repository with go-git, without
// invoking the git executable.
type Inspector struct {
	logger Logger
}

// NewInspector creates a new Inspector.
func NewInspector(log Logger) *Inspector {
	return &Inspector{logger: log}
}

var _ domain.ScratchInspector = (*Inspector)(nil)

// Inspect opens dir and returns the HEAD commit and branch.
// Returns domain.ErrNotFound if dir is not a Git repository.
// A detached HEAD is logged and reported with an empty branch.
func (i *Inspector) Inspect(ctx context.Context, dir string) (*domain.ScratchState, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, dir)
		}
		return nil, fmt.Errorf("failed to open repository %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	state := &domain.ScratchState{HeadSHA: head.Hash().String()}

	if head.Name().IsBranch() {
		state.Branch = head.Name().Short()
	} else {
		i.logger.Warn(ctx, "HEAD is detached; branch name will be empty", map[string]interface{}{
			"head_sha": state.HeadSHA,
			"path":     dir,
		})
	}

	i.logger.Debug(ctx, "inspected scratch repository", map[string]interface{}{
		"head_sha": state.HeadSHA,
		"branch":   state.Branch,
		"path":     dir,
	})

	return state, nil
}
