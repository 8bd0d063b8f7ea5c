// Package github provides the release source backed by the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v79/github"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

const (
	defaultPageSize   = 100
	defaultRetryMax   = 3
	defaultRetryWait  = 500 * time.Millisecond
	defaultRetryLimit = 5 * time.Second
)

// Logger defines the logging interface for the GitHub adapter.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// ReleaseClient lists releases and downloads assets through go-github. Calls
// go through a retrying transport that backs off on 5xx and rate limiting.
type ReleaseClient struct {
	client     *github.Client
	downloader *http.Client
	logger     Logger
}

// Option configures a ReleaseClient.
type Option func(*options)

type options struct {
	token    string
	baseURL  string
	retryMax int
}

// WithToken authenticates API calls with a personal access token.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithRetryMax sets the number of retries per HTTP request.
func WithRetryMax(n int) Option {
	return func(o *options) {
		o.retryMax = n
	}
}

// NewReleaseClient creates a ReleaseClient.
func NewReleaseClient(log Logger, opts ...Option) (*ReleaseClient, error) {
	o := &options{retryMax: defaultRetryMax}
	for _, opt := range opts {
		opt(o)
	}

	retrying := retryablehttp.NewClient()
	retrying.RetryMax = o.retryMax
	retrying.RetryWaitMin = defaultRetryWait
	retrying.RetryWaitMax = defaultRetryLimit
	retrying.Logger = nil
	httpClient := retrying.StandardClient()

	client := github.NewClient(httpClient)
	if o.token != "" {
		client = client.WithAuthToken(o.token)
	}
	if o.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		client.BaseURL = base
	}

	return &ReleaseClient{
		client:     client,
		downloader: httpClient,
		logger:     log,
	}, nil
}

var _ domain.ReleaseSource = (*ReleaseClient)(nil)

// ListReleases returns every release of owner/repo, following pagination.
func (c *ReleaseClient) ListReleases(ctx context.Context, owner, repo string) ([]domain.Release, error) {
	var releases []domain.Release

	opts := &github.ListOptions{PerPage: defaultPageSize}
	for {
		page, resp, err := c.client.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			return nil, c.translate(ctx, err, owner, repo)
		}

		for _, release := range page {
			releases = append(releases, toRelease(release))
		}

		c.logger.Debug(ctx, "fetched release page", map[string]interface{}{
			"repository": owner + "/" + repo,
			"page":       opts.Page,
			"count":      len(page),
		})

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return releases, nil
}

// DownloadAsset opens the binary content of a release asset. Redirects to
// the storage host are followed with the same retrying transport.
func (c *ReleaseClient) DownloadAsset(ctx context.Context, owner, repo string, assetID int64) (io.ReadCloser, error) {
	body, redirect, err := c.client.Repositories.DownloadReleaseAsset(ctx, owner, repo, assetID, c.downloader)
	if err != nil {
		return nil, c.translate(ctx, err, owner, repo)
	}
	if body == nil {
		return nil, fmt.Errorf("asset %d of %s/%s returned no content (redirect %q)", assetID, owner, repo, redirect)
	}
	return body, nil
}

func (c *ReleaseClient) translate(ctx context.Context, err error, owner, repo string) error {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s/%s", domain.ErrNotFound, owner, repo)
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		c.logger.Warn(ctx, "GitHub rate limit reached", map[string]interface{}{
			"reset": rateErr.Rate.Reset.Time,
		})
	}

	return fmt.Errorf("GitHub API request for %s/%s failed: %w", owner, repo, err)
}

func toRelease(release *github.RepositoryRelease) domain.Release {
	out := domain.Release{
		ID:         release.GetID(),
		TagName:    release.GetTagName(),
		Name:       release.GetName(),
		Draft:      release.GetDraft(),
		Prerelease: release.GetPrerelease(),
	}
	for _, asset := range release.Assets {
		out.Assets = append(out.Assets, domain.ReleaseAsset{
			ID:          asset.GetID(),
			Name:        asset.GetName(),
			ContentType: asset.GetContentType(),
			Size:        int64(asset.GetSize()),
			DownloadURL: asset.GetBrowserDownloadURL(),
		})
	}
	return out
}
