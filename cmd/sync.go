package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

type syncOptions struct {
	branch string
	retry  int
	prompt bool
}

func newSyncCmd(deps *Dependencies) *cobra.Command {
	opts := &syncOptions{}

	syncCmd := &cobra.Command{
		Use:   "sync <source> <destination>",
		Short: "Clone a repository and push it to another host",
		Long: `sync clones the source repository into a scratch directory and pushes
it to the destination. Each phase is retried up to --retry times and the
scratch directory is removed afterwards.

Supported URLs:
  https://github.com/{owner}/{repo}
  https://dev.azure.com/{org}/{project}/_git/{repo}
  file:///path/to/{repo}.git

Tokens are read from REPO_SYNC_SOURCE_TOKEN and REPO_SYNC_DESTINATION_TOKEN,
then from Vault at VAULT_CREDENTIALS_PATH, then from the terminal with --prompt.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args, deps, opts)
		},
	}

	syncCmd.Flags().StringVarP(&opts.branch, "branch", "b", "",
		"Branch to sync (defaults to REPO_SYNC_BRANCH or the remote default)")
	syncCmd.Flags().IntVarP(&opts.retry, "retry", "r", domain.DefaultRetryLimit,
		"Maximum attempts per clone and push phase")
	syncCmd.Flags().BoolVar(&opts.prompt, "prompt", false,
		"Prompt for tokens that are not found in the environment or Vault")

	return syncCmd
}

// runSync executes a repository sync with injected dependencies.
func runSync(cmd *cobra.Command, args []string, deps *Dependencies, opts *syncOptions) error {
	s, err := startSession(cmd, deps)
	if err != nil {
		return err
	}
	ctx, log := s.ctx, s.log

	input := domain.SyncInput{
		Source:      domain.ParseEndpoint(args[0]),
		Destination: domain.ParseEndpoint(args[1]),
		Branch:      s.cfg.Branch,
		RetryLimit:  s.cfg.RetryLimit,
	}
	if cmd.Flags().Changed("branch") {
		input.Branch = opts.branch
	}
	if cmd.Flags().Changed("retry") {
		input.RetryLimit = opts.retry
	}

	if !input.Source.Available() {
		return fmt.Errorf("unsupported source repository URL: %s", domain.RedactCredentials(args[0]))
	}
	if !input.Destination.Available() {
		return fmt.Errorf("unsupported destination repository URL: %s", domain.RedactCredentials(args[1]))
	}

	log.Info(ctx, "starting repo-sync", map[string]interface{}{
		"source":      input.Source.URL(),
		"destination": input.Destination.URL(),
		"branch":      input.Branch,
		"retry":       input.RetryLimit,
		"verbose":     verbose,
	})

	creds, err := deps.CredentialLoader(ctx, opts.prompt)
	if err != nil {
		log.Error(ctx, "failed to load credentials", err, nil)
		return fmt.Errorf("credential error: %w", err)
	}
	defer func() {
		if creds.Close == nil {
			return
		}
		if closeErr := creds.Close(); closeErr != nil {
			log.Warn(ctx, "failed to scrub credentials", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()
	input.SourceCredential = creds.Source
	input.DestinationCredential = creds.Destination

	if err := os.MkdirAll(s.cfg.ScratchRoot, 0o700); err != nil {
		log.Error(ctx, "failed to create scratch root", err, map[string]interface{}{
			"path": s.cfg.ScratchRoot,
		})
		return fmt.Errorf("scratch directory error: %w", err)
	}

	syncer := deps.SyncerFactory(s.cfg, log)
	result, err := syncer.Sync(ctx, input)
	if err != nil {
		return describeSyncError(err)
	}

	writer := deps.OutputWriterFactory()
	if err := writer.WriteSyncResult(result); err != nil {
		log.Error(ctx, "failed to write output", err, nil)
		return fmt.Errorf("output error: %w", err)
	}

	return nil
}

// describeSyncError maps sync failures to user-facing messages.
func describeSyncError(err error) error {
	var procErr *domain.ExternalProcessError
	if errors.As(err, &procErr) {
		msg := fmt.Sprintf("git %s failed after %d attempts (exit code %d)",
			procErr.Phase, procErr.Attempts, procErr.ExitCode)
		if stderr := strings.TrimSpace(procErr.Stderr); stderr != "" {
			msg += ": " + stderr
		}
		// Sync joins scratch cleanup failures onto the phase error.
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, other := range joined.Unwrap() {
				if other != nil && other != error(procErr) {
					msg += "; " + other.Error()
				}
			}
		}
		return errors.New(msg)
	}
	if errors.Is(err, domain.ErrCancelled) {
		return fmt.Errorf("sync cancelled: %w", err)
	}
	if errors.Is(err, domain.ErrValidation) {
		return fmt.Errorf("invalid repository: %w", err)
	}
	return err
}
