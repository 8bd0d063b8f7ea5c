// Package domain defines the core business entities and interfaces for repo-sync.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"io"
)

// Secret is an opaque credential that can be converted to plain text once.
type Secret interface {
	// Reveal returns the plain text and scrubs the container.
	// A second call returns ErrCredentialConsumed.
	Reveal() (string, error)
}

// ProcessRunner invokes the external version-control executable.
// A non-nil error means the process could not be run at all; a process that
// ran and failed is reported through ProcessResult.ExitCode.
type ProcessRunner interface {
	// Clone runs a clone of req.URL into req.Destination.
	Clone(ctx context.Context, req CloneRequest) (*ProcessResult, error)

	// Push runs a push from req.WorkDir to req.Remotes.
	Push(ctx context.Context, req PushRequest) (*ProcessResult, error)

	// EnableTerminalPrompt sets the process-wide prompt toggle for the
	// executable. It is safe to call repeatedly and concurrently.
	EnableTerminalPrompt() error
}

// ScratchFileSystem removes scratch directories.
type ScratchFileSystem interface {
	// RemoveAll deletes path recursively. When the path does not exist it
	// returns nil if allowNotFound is set and ErrNotFound otherwise.
	RemoveAll(path string, allowNotFound bool) error
}

// ScratchInspector reads the state of a finished clone.
type ScratchInspector interface {
	Inspect(ctx context.Context, dir string) (*ScratchState, error)
}

// Syncer copies a source repository to a destination repository.
type Syncer interface {
	Sync(ctx context.Context, input SyncInput) (*SyncOutput, error)
}

// ReleaseSource lists and downloads releases of a hosted repository.
type ReleaseSource interface {
	// ListReleases returns every release of the repository, newest first.
	ListReleases(ctx context.Context, owner, repo string) ([]Release, error)

	// DownloadAsset opens the content of a release asset. The caller closes it.
	DownloadAsset(ctx context.Context, owner, repo string, assetID int64) (io.ReadCloser, error)
}

// OutputWriter writes command results to an output destination.
type OutputWriter interface {
	// WriteDigest writes one "<digest>  <name>" line.
	WriteDigest(digest, name string) error

	// WriteSyncResult writes a summary of a finished sync.
	WriteSyncResult(result *SyncOutput) error

	// WriteRelease writes one release summary line.
	WriteRelease(release Release) error
}
