package usecases

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// RepositorySyncer copies a source repository to a destination by cloning it
// into a scratch directory and pushing from there. Each phase is retried up
// to the input's retry limit and the scratch directory is removed on every
// exit path.
type RepositorySyncer struct {
	runner      domain.ProcessRunner
	fs          domain.ScratchFileSystem
	inspector   domain.ScratchInspector
	logger      Logger
	scratchRoot string
	locks       *keyedMutex
}

// SyncerOption configures a RepositorySyncer.
type SyncerOption func(*RepositorySyncer)

// WithScratchRoot sets the parent directory of scratch clones.
// The default is os.TempDir().
func WithScratchRoot(root string) SyncerOption {
	return func(s *RepositorySyncer) {
		if root != "" {
			s.scratchRoot = root
		}
	}
}

// WithInspector reports HEAD information of the clone in the sync output.
func WithInspector(inspector domain.ScratchInspector) SyncerOption {
	return func(s *RepositorySyncer) {
		s.inspector = inspector
	}
}

// NewRepositorySyncer creates a new RepositorySyncer with the given dependencies.
func NewRepositorySyncer(
	runner domain.ProcessRunner,
	fs domain.ScratchFileSystem,
	log Logger,
	opts ...SyncerOption,
) *RepositorySyncer {
	s := &RepositorySyncer{
		runner:      runner,
		fs:          fs,
		logger:      log,
		scratchRoot: os.TempDir(),
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.Syncer = (*RepositorySyncer)(nil)

// Sync validates both endpoints, clones the source and pushes it to the
// destination.
//
// Validation failures return domain.ErrValidation before the executable is
// invoked. A phase that exhausts its attempts returns a
// *domain.ExternalProcessError. Errors removing the scratch directory that
// are not "not found" are propagated.
func (s *RepositorySyncer) Sync(ctx context.Context, input domain.SyncInput) (output *domain.SyncOutput, err error) {
	if !input.Source.Available() {
		return nil, fmt.Errorf("%w: source is not a recognized repository URL", domain.ErrValidation)
	}
	if !input.Destination.Available() {
		return nil, fmt.Errorf("%w: destination is not a recognized repository URL", domain.ErrValidation)
	}

	identifier := input.Source.Repository()
	scratch, err := scratchPath(s.scratchRoot, identifier)
	if err != nil {
		return nil, err
	}

	retryLimit := input.RetryLimit
	if retryLimit < 1 {
		retryLimit = domain.DefaultRetryLimit
	}

	fields := map[string]interface{}{
		"source":      input.Source.URL(),
		"destination": input.Destination.URL(),
		"branch":      input.Branch,
		"retry_limit": retryLimit,
	}
	s.logger.Info(ctx, "starting repository sync", fields)

	cloneURL, err := authenticatedURL(input.Source, input.SourceCredential)
	if err != nil {
		return nil, fmt.Errorf("failed to read source credential: %w", err)
	}
	pushURL, err := authenticatedURL(input.Destination, input.DestinationCredential)
	if err != nil {
		return nil, fmt.Errorf("failed to read destination credential: %w", err)
	}

	if err := s.runner.EnableTerminalPrompt(); err != nil {
		return nil, fmt.Errorf("failed to enable terminal prompt: %w", err)
	}

	unlock := s.locks.Lock(identifier)
	defer unlock()

	attempt := &domain.SyncAttempt{}

	defer func() {
		cleanupErr := s.fs.RemoveAll(scratch, true)
		if cleanupErr == nil {
			s.logger.Debug(ctx, "removed scratch directory", map[string]interface{}{"path": scratch})
			return
		}
		s.logger.Error(ctx, "failed to remove scratch directory", cleanupErr, map[string]interface{}{"path": scratch})
		cleanupErr = fmt.Errorf("failed to remove scratch directory: %w", cleanupErr)
		if err == nil {
			output = nil
			err = cleanupErr
			return
		}
		err = errors.Join(err, cleanupErr)
	}()

	cloneReq := domain.CloneRequest{
		URL:          cloneURL,
		Destination:  scratch,
		WorkDir:      s.scratchRoot,
		Branch:       input.Branch,
		SingleBranch: true,
	}
	cloneAttempts, err := s.runPhase(ctx, domain.PhaseClone, retryLimit, attempt,
		func() (*domain.ProcessResult, error) {
			if err := s.fs.RemoveAll(scratch, true); err != nil {
				return nil, fmt.Errorf("failed to clear scratch directory: %w", err)
			}
			return s.runner.Clone(ctx, cloneReq)
		})
	if err != nil {
		return nil, err
	}

	state := s.inspect(ctx, scratch)

	pushReq := domain.PushRequest{
		WorkDir: scratch,
		Remotes: []string{pushURL},
	}
	pushAttempts, err := s.runPhase(ctx, domain.PhasePush, retryLimit, attempt,
		func() (*domain.ProcessResult, error) {
			return s.runner.Push(ctx, pushReq)
		})
	if err != nil {
		return nil, err
	}

	output = &domain.SyncOutput{
		Source:        input.Source.URL(),
		Destination:   input.Destination.URL(),
		Branch:        input.Branch,
		HeadSHA:       state.HeadSHA,
		CloneAttempts: cloneAttempts,
		PushAttempts:  pushAttempts,
		Attempt:       attempt,
	}
	if state.Branch != "" {
		output.Branch = state.Branch
	}

	s.logger.Info(ctx, "repository sync completed", map[string]interface{}{
		"source":         output.Source,
		"destination":    output.Destination,
		"branch":         output.Branch,
		"head_sha":       output.HeadSHA,
		"clone_attempts": cloneAttempts,
		"push_attempts":  pushAttempts,
	})

	return output, nil
}

// scratchPath returns the clone directory for identifier. The result must be
// a direct child of root since the whole directory is removed recursively.
func scratchPath(root, identifier string) (string, error) {
	scratch := filepath.Join(root, identifier)
	if identifier == "" || filepath.Dir(scratch) != filepath.Clean(root) {
		return "", fmt.Errorf("%w: repository name %q is not a single directory name", domain.ErrValidation, identifier)
	}
	return scratch, nil
}

// runPhase invokes run until it succeeds or limit attempts have been made.
// An error from run means the process could not be started and ends the
// phase immediately.
func (s *RepositorySyncer) runPhase(
	ctx context.Context,
	phase string,
	limit int,
	attempt *domain.SyncAttempt,
	run func() (*domain.ProcessResult, error),
) (int, error) {
	var last *domain.ProcessResult

	for n := 1; n <= limit; n++ {
		if err := ctx.Err(); err != nil {
			return n - 1, fmt.Errorf("%w: %s: %w", domain.ErrCancelled, phase, err)
		}

		s.logger.Debug(ctx, "starting attempt", map[string]interface{}{
			"phase":   phase,
			"attempt": n,
			"limit":   limit,
		})

		result, err := run()
		if err != nil {
			return n, fmt.Errorf("%s attempt %d: %w", phase, n, err)
		}
		attempt.Append(result)

		if result.Succeeded() {
			s.logger.Info(ctx, "phase succeeded", map[string]interface{}{
				"phase":    phase,
				"attempts": n,
			})
			return n, nil
		}

		last = result
		s.logger.Warn(ctx, "attempt failed", map[string]interface{}{
			"phase":     phase,
			"attempt":   n,
			"limit":     limit,
			"exit_code": result.ExitCode,
		})
	}

	procErr := &domain.ExternalProcessError{
		Phase:    phase,
		Attempts: limit,
		Attempt:  attempt,
	}
	if last != nil {
		procErr.ExitCode = last.ExitCode
		procErr.Stderr = domain.RedactCredentials(last.Stderr)
	}
	s.logger.Error(ctx, "phase exhausted retries", procErr, map[string]interface{}{
		"phase":    phase,
		"attempts": limit,
	})
	return limit, procErr
}

func (s *RepositorySyncer) inspect(ctx context.Context, scratch string) domain.ScratchState {
	if s.inspector == nil {
		return domain.ScratchState{}
	}

	state, err := s.inspector.Inspect(ctx, scratch)
	if err != nil || state == nil {
		s.logger.Warn(ctx, "could not read clone HEAD", map[string]interface{}{
			"path":  scratch,
			"error": fmt.Sprint(err),
		})
		return domain.ScratchState{}
	}

	s.logger.Debug(ctx, "inspected clone", map[string]interface{}{
		"head_sha": state.HeadSHA,
		"branch":   state.Branch,
	})
	return *state
}

// authenticatedURL reveals secret and builds the URL in one step so the plain
// text is not kept anywhere else.
func authenticatedURL(endpoint domain.Endpoint, secret domain.Secret) (string, error) {
	if secret == nil {
		return endpoint.AuthenticatedURL(""), nil
	}
	plain, err := secret.Reveal()
	if err != nil {
		return "", err
	}
	return endpoint.AuthenticatedURL(plain), nil
}
