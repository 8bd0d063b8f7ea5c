package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/repo-sync/internal/checksum"
	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
	"github.com/MyCarrier-DevOps/repo-sync/internal/usecases"
)

type releasesOptions struct {
	hash      bool
	tag       string
	algorithm string
	format    string
}

func newReleasesCmd(deps *Dependencies) *cobra.Command {
	opts := &releasesOptions{}

	releasesCmd := &cobra.Command{
		Use:   "releases <github-url>",
		Short: "List GitHub releases or digest their assets",
		Long: `releases lists the releases of a GitHub repository as
"<tag>\t<name>\t<status>\t<assets>" lines.

With --hash every asset is downloaded as a stream and printed as
"<digest>  <tag>/<asset>". Set REPO_SYNC_GITHUB_TOKEN for private
repositories or higher rate limits.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReleases(cmd, args, deps, opts)
		},
	}

	releasesCmd.Flags().BoolVar(&opts.hash, "hash", false,
		"Download every asset and print its digest")
	releasesCmd.Flags().StringVarP(&opts.tag, "tag", "t", "",
		"Only digest the assets of this release tag")
	releasesCmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", "",
		"Digest algorithm: SHA256, SHA384 or SHA512 (defaults to REPO_SYNC_ALGORITHM)")
	releasesCmd.Flags().StringVarP(&opts.format, "format", "f", string(checksum.FormatHexLower),
		"Digest encoding: hex, HEX or base64")

	return releasesCmd
}

// runReleases lists or digests releases with injected dependencies.
func runReleases(cmd *cobra.Command, args []string, deps *Dependencies, opts *releasesOptions) error {
	s, err := startSession(cmd, deps)
	if err != nil {
		return err
	}
	ctx, log := s.ctx, s.log

	endpoint := domain.ParseEndpoint(args[0])
	if !endpoint.Available() || endpoint.Provider() != domain.ProviderGitHub {
		return fmt.Errorf("not a GitHub repository URL: %s", domain.RedactCredentials(args[0]))
	}

	algorithm := s.cfg.Algorithm
	if opts.algorithm != "" {
		if algorithm, err = checksum.ParseAlgorithm(opts.algorithm); err != nil {
			return err
		}
	}
	hasher, err := checksum.New(algorithm)
	if err != nil {
		return err
	}

	source, err := deps.ReleaseSourceFactory(s.cfg, log)
	if err != nil {
		log.Error(ctx, "failed to create GitHub client", err, nil)
		return fmt.Errorf("github error: %w", err)
	}

	digester := usecases.NewReleaseDigester(source, hasher, log)
	writer := deps.OutputWriterFactory()

	if !opts.hash {
		releases, err := digester.ListReleases(ctx, endpoint)
		if err != nil {
			return describeReleaseError(endpoint, err)
		}
		for _, release := range releases {
			if err := writer.WriteRelease(release); err != nil {
				log.Error(ctx, "failed to write output", err, nil)
				return fmt.Errorf("output error: %w", err)
			}
		}
		return nil
	}

	format, err := checksum.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	digests, err := digester.DigestAssets(ctx, endpoint, opts.tag, format,
		checksum.WithChunkSize(s.cfg.ChunkSize))
	if err != nil {
		return describeReleaseError(endpoint, err)
	}
	for _, digest := range digests {
		if err := writer.WriteDigest(digest.Digest, digest.TagName+"/"+digest.Asset); err != nil {
			log.Error(ctx, "failed to write output", err, nil)
			return fmt.Errorf("output error: %w", err)
		}
	}

	return nil
}

// describeReleaseError maps release failures to user-facing messages.
func describeReleaseError(endpoint domain.Endpoint, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("not found in %s: %w", endpoint.URL(), err)
	}
	return err
}
