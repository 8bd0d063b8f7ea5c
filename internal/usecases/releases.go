package usecases

import (
	"context"
	"fmt"

	"github.com/MyCarrier-DevOps/repo-sync/internal/checksum"
	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// ReleaseDigester lists releases of a GitHub repository and digests their
// assets as network streams.
type ReleaseDigester struct {
	source domain.ReleaseSource
	hasher *checksum.Hasher
	logger Logger
}

// NewReleaseDigester creates a new ReleaseDigester with the given dependencies.
func NewReleaseDigester(source domain.ReleaseSource, hasher *checksum.Hasher, log Logger) *ReleaseDigester {
	return &ReleaseDigester{
		source: source,
		hasher: hasher,
		logger: log,
	}
}

// ListReleases returns the releases of endpoint, which must be a GitHub
// repository.
func (d *ReleaseDigester) ListReleases(ctx context.Context, endpoint domain.Endpoint) ([]domain.Release, error) {
	if err := requireGitHub(endpoint); err != nil {
		return nil, err
	}

	releases, err := d.source.ListReleases(ctx, endpoint.Owner(), endpoint.Repository())
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}

	d.logger.Debug(ctx, "listed releases", map[string]interface{}{
		"repository": endpoint.URL(),
		"count":      len(releases),
	})
	return releases, nil
}

// DigestAssets downloads every asset of every release, or only of the release
// tagged tag when tag is non-empty, and returns the digest of each in format.
// The format is checked before anything is downloaded.
func (d *ReleaseDigester) DigestAssets(
	ctx context.Context,
	endpoint domain.Endpoint,
	tag string,
	format checksum.Format,
	opts ...checksum.Option,
) ([]domain.AssetDigest, error) {
	if err := checksum.ValidateStringFormat(format); err != nil {
		return nil, err
	}

	releases, err := d.ListReleases(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if tag != "" {
		releases = filterByTag(releases, tag)
		if len(releases) == 0 {
			return nil, fmt.Errorf("%w: release %q in %s", domain.ErrNotFound, tag, endpoint.URL())
		}
	}

	var digests []domain.AssetDigest
	for _, release := range releases {
		for _, asset := range release.Assets {
			digest, err := d.digestAsset(ctx, endpoint, asset, format, opts)
			if err != nil {
				return nil, fmt.Errorf("failed to digest %s/%s: %w", release.TagName, asset.Name, err)
			}

			d.logger.Info(ctx, "digested release asset", map[string]interface{}{
				"tag":   release.TagName,
				"asset": asset.Name,
				"size":  asset.Size,
			})

			digests = append(digests, domain.AssetDigest{
				TagName: release.TagName,
				Asset:   asset.Name,
				Size:    asset.Size,
				Digest:  digest,
			})
		}
	}

	return digests, nil
}

func (d *ReleaseDigester) digestAsset(
	ctx context.Context,
	endpoint domain.Endpoint,
	asset domain.ReleaseAsset,
	format checksum.Format,
	opts []checksum.Option,
) (string, error) {
	body, err := d.source.DownloadAsset(ctx, endpoint.Owner(), endpoint.Repository(), asset.ID)
	if err != nil {
		return "", err
	}
	defer body.Close()

	return d.hasher.HashStreamString(ctx, body, format, opts...)
}

func requireGitHub(endpoint domain.Endpoint) error {
	if !endpoint.Available() || endpoint.Provider() != domain.ProviderGitHub {
		return fmt.Errorf("%w: releases are only available for GitHub repositories", domain.ErrValidation)
	}
	return nil
}

func filterByTag(releases []domain.Release, tag string) []domain.Release {
	var matched []domain.Release
	for _, release := range releases {
		if release.TagName == tag {
			matched = append(matched, release)
		}
	}
	return matched
}
