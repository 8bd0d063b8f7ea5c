// Package process provides the ProcessRunner backed by the external git
// executable.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// DefaultExecutable is the git binary looked up on PATH.
const DefaultExecutable = "git"

// terminalPromptEnv makes git report authentication failures as output
// instead of waiting on a credential prompt that nobody answers.
const terminalPromptEnv = "GIT_TERMINAL_PROMPT"

var (
	promptOnce sync.Once
	promptErr  error
)

// GitRunner runs clone and push through the git executable.
type GitRunner struct {
	executable string
	env        []string
}

// Option configures a GitRunner.
type Option func(*GitRunner)

// WithExecutable sets the git binary to run.
func WithExecutable(path string) Option {
	return func(g *GitRunner) {
		if path != "" {
			g.executable = path
		}
	}
}

// WithEnv appends KEY=VALUE pairs to the environment of every invocation.
func WithEnv(pairs ...string) Option {
	return func(g *GitRunner) {
		g.env = append(g.env, pairs...)
	}
}

// NewGitRunner creates a GitRunner.
func NewGitRunner(opts ...Option) *GitRunner {
	g := &GitRunner{executable: DefaultExecutable}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ domain.ProcessRunner = (*GitRunner)(nil)

// Clone runs `git clone <url> [destination] [--branch <name>] [--single-branch]`.
func (g *GitRunner) Clone(ctx context.Context, req domain.CloneRequest) (*domain.ProcessResult, error) {
	return g.run(ctx, req.WorkDir, cloneArgs(req))
}

// Push runs `git push [remote...]` inside req.WorkDir.
func (g *GitRunner) Push(ctx context.Context, req domain.PushRequest) (*domain.ProcessResult, error) {
	return g.run(ctx, req.WorkDir, pushArgs(req))
}

// EnableTerminalPrompt sets GIT_TERMINAL_PROMPT=1 for this process. Only the
// first call touches the environment; later calls return its result.
func (g *GitRunner) EnableTerminalPrompt() error {
	promptOnce.Do(func() {
		promptErr = os.Setenv(terminalPromptEnv, "1")
	})
	return promptErr
}

func cloneArgs(req domain.CloneRequest) []string {
	args := []string{"clone", req.URL}
	if req.Destination != "" {
		args = append(args, req.Destination)
	}
	if req.Branch != "" {
		args = append(args, "--branch", req.Branch)
	}
	if req.SingleBranch {
		args = append(args, "--single-branch")
	}
	return args
}

func pushArgs(req domain.PushRequest) []string {
	return append([]string{"push"}, req.Remotes...)
}

// run executes git and captures its output. A process that starts and exits
// non-zero is a result, not an error.
func (g *GitRunner) run(ctx context.Context, dir string, args []string) (*domain.ProcessResult, error) {
	cmd := exec.CommandContext(ctx, g.executable, args...) // #nosec G204 -- arguments are built from parsed endpoints
	cmd.Dir = dir
	if len(g.env) > 0 {
		cmd.Env = append(os.Environ(), g.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &domain.ProcessResult{
		Stdout: strings.ToValidUTF8(stdout.String(), "\uFFFD"),
		Stderr: strings.ToValidUTF8(stderr.String(), "\uFFFD"),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("failed to start %s %s: %w", g.executable, args[0], err)
	}

	return result, nil
}
