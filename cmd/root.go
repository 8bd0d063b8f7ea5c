// Package cmd provides the CLI commands for repo-sync.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/repo-sync/internal/checksum"
	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// Logger defines the logging interface used by the commands.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// StreamOpener opens a remote object such as s3://bucket/key for reading.
type StreamOpener func(ctx context.Context, uri string) (io.ReadCloser, error)

// ProgressSink renders checksum progress for one input.
type ProgressSink interface {
	Func() checksum.ProgressFunc
	Finish() error
}

// SyncCredentials holds the tokens for one sync. Either secret may be nil.
type SyncCredentials struct {
	Source      domain.Secret
	Destination domain.Secret

	// Close scrubs any token that was not revealed. It may be nil.
	Close func() error
}

// Dependencies holds all injectable dependencies for the commands.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func() (*AppConfig, error)

	// CredentialLoader resolves repository tokens. When prompt is set,
	// missing tokens are read from the terminal.
	CredentialLoader func(ctx context.Context, prompt bool) (*SyncCredentials, error)

	// SyncerFactory creates a Syncer using the given config.
	SyncerFactory func(cfg *AppConfig, log Logger) domain.Syncer

	// ReleaseSourceFactory creates a ReleaseSource using the given config.
	ReleaseSourceFactory func(cfg *AppConfig, log Logger) (domain.ReleaseSource, error)

	// StreamOpenerFactory creates a StreamOpener for s3:// inputs.
	StreamOpenerFactory func(ctx context.Context, profile, region string) (StreamOpener, error)

	// ProgressFactory creates a progress sink for the named input.
	ProgressFactory func(name string) ProgressSink

	// OutputWriterFactory creates an OutputWriter.
	OutputWriterFactory func() domain.OutputWriter

	// Stdin is the reader used for the "-" checksum input.
	Stdin io.Reader

	// Stdout is the writer for standard output.
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// AppConfig holds application configuration loaded by ConfigLoader.
type AppConfig struct {
	// RetryLimit is the number of attempts per sync phase.
	RetryLimit int

	// Branch is the default branch to sync.
	Branch string

	// GitExecutable is the external git binary.
	GitExecutable string

	// ScratchRoot is the parent directory of scratch clones.
	ScratchRoot string

	// ChunkSize is the checksum read size.
	ChunkSize int

	// Algorithm is the default checksum algorithm.
	Algorithm checksum.Algorithm

	// GitHubToken authenticates release API calls.
	GitHubToken string

	// LogLevel is the log level setting.
	LogLevel string

	// LogAppName is the application name for logging.
	LogAppName string
}

// verbose is the persistent --verbose flag.
var verbose bool

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for repo-sync.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "repo-sync",
		Short: "Mirror git repositories and compute streaming checksums",
		Long: `repo-sync copies git repositories between hosts and computes
SHA-2 digests of files, streams, S3 objects and GitHub release assets.

Examples:
  # Mirror a GitHub repository into Azure DevOps
  repo-sync sync https://github.com/octo/widgets https://dev.azure.com/contoso/platform/_git/widgets

  # Hash every tarball below dist/
  repo-sync checksum 'dist/**/*.tar.gz'

  # Hash the assets of one release
  repo-sync releases https://github.com/octo/widgets --hash --tag v1.2.0`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	rootCmd.AddCommand(
		newSyncCmd(deps),
		newChecksumCmd(deps),
		newReleasesCmd(deps),
	)

	return rootCmd
}

// session holds what every subcommand needs after start-up.
type session struct {
	ctx    context.Context
	deps   *Dependencies
	log    Logger
	cfg    *AppConfig
	stdout io.Writer
	stderr io.Writer
}

// startSession validates deps, applies --verbose and loads configuration.
func startSession(cmd *cobra.Command, deps *Dependencies) (*session, error) {
	if deps == nil {
		return nil, errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// Set log level based on verbose flag (best-effort)
	if verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			writeWarningf(stderr, "warning: could not set log level: %v\n", err)
		}
	}

	log := deps.LoggerFactory()

	cfg, err := deps.ConfigLoader()
	if err != nil {
		log.Error(ctx, "failed to load configuration", err, nil)
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return &session{
		ctx:    ctx,
		deps:   deps,
		log:    log,
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running
// operation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}
