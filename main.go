// Package main is the entry point for the repo-sync CLI application.
// repo-sync mirrors git repositories between hosts and computes streaming
// checksums of files, S3 objects and GitHub release assets.
package main

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"
	"github.com/spf13/afero"

	"github.com/MyCarrier-DevOps/repo-sync/cmd"
	"github.com/MyCarrier-DevOps/repo-sync/internal/adapters/fs"
	"github.com/MyCarrier-DevOps/repo-sync/internal/adapters/git"
	"github.com/MyCarrier-DevOps/repo-sync/internal/adapters/github"
	logadapter "github.com/MyCarrier-DevOps/repo-sync/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/repo-sync/internal/adapters/output"
	"github.com/MyCarrier-DevOps/repo-sync/internal/adapters/process"
	"github.com/MyCarrier-DevOps/repo-sync/internal/adapters/progress"
	"github.com/MyCarrier-DevOps/repo-sync/internal/adapters/s3"
	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
	"github.com/MyCarrier-DevOps/repo-sync/internal/infrastructure/config"
	"github.com/MyCarrier-DevOps/repo-sync/internal/usecases"
)

func main() {
	// The zap logger reads LOG_LEVEL when it is built, so it is created on
	// first use, after --verbose has been applied.
	var (
		once    sync.Once
		adapter *logadapter.ZapAdapter
	)
	sharedLogger := func() *logadapter.ZapAdapter {
		once.Do(func() {
			adapter = logadapter.NewZapAdapter(logger.NewZapLoggerFromConfig())
		})
		return adapter
	}

	// Wire up production dependencies
	deps := &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			return sharedLogger()
		},

		ConfigLoader: func() (*cmd.AppConfig, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return toAppConfig(cfg), nil
		},

		CredentialLoader: loadCredentials,

		SyncerFactory: func(cfg *cmd.AppConfig, _ cmd.Logger) domain.Syncer {
			log := sharedLogger()
			return usecases.NewRepositorySyncer(
				process.NewGitRunner(process.WithExecutable(cfg.GitExecutable)),
				fs.NewScratchFS(afero.NewOsFs()),
				log,
				usecases.WithScratchRoot(cfg.ScratchRoot),
				usecases.WithInspector(git.NewInspector(log)),
			)
		},

		ReleaseSourceFactory: func(cfg *cmd.AppConfig, _ cmd.Logger) (domain.ReleaseSource, error) {
			client, err := github.NewReleaseClient(sharedLogger(), github.WithToken(cfg.GitHubToken))
			if err != nil {
				return nil, err
			}
			return client, nil
		},

		StreamOpenerFactory: func(ctx context.Context, profile, region string) (cmd.StreamOpener, error) {
			opener, err := s3.LoadObjectOpener(ctx, profile, region)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, uri string) (io.ReadCloser, error) {
				obj, err := opener.Open(ctx, uri)
				if err != nil {
					return nil, err
				}
				return obj, nil
			}, nil
		},

		ProgressFactory: func(name string) cmd.ProgressSink {
			return progress.New(os.Stderr, name)
		},

		OutputWriterFactory: func() domain.OutputWriter {
			return output.NewWriter()
		},

		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}

func toAppConfig(cfg *config.Config) *cmd.AppConfig {
	return &cmd.AppConfig{
		RetryLimit:    cfg.RetryLimit,
		Branch:        cfg.Branch,
		GitExecutable: cfg.GitExecutable,
		ScratchRoot:   cfg.ScratchRoot,
		ChunkSize:     cfg.ChunkSize,
		Algorithm:     cfg.Algorithm,
		GitHubToken:   cfg.GitHubToken,
		LogLevel:      cfg.LogLevel,
		LogAppName:    cfg.LogAppName,
	}
}

func loadCredentials(ctx context.Context, prompt bool) (*cmd.SyncCredentials, error) {
	var promptFn config.PromptFunc
	if prompt {
		promptFn = config.TerminalPrompt(os.Stdin, os.Stderr)
	}

	creds, err := config.LoadCredentials(ctx, config.DefaultVaultClientFactory, promptFn)
	if err != nil {
		return nil, err
	}
	return toSyncCredentials(creds), nil
}

// toSyncCredentials converts creds, leaving absent tokens as nil interfaces
// rather than typed nil pointers.
func toSyncCredentials(creds *config.Credentials) *cmd.SyncCredentials {
	out := &cmd.SyncCredentials{Close: creds.Close}
	if creds.Source != nil {
		out.Source = creds.Source
	}
	if creds.Destination != nil {
		out.Destination = creds.Destination
	}
	return out
}
