// Package domain defines the core business entities and interfaces for repo-sync.
package domain

import (
	"fmt"
	"strings"
)

// DefaultRetryLimit is the number of attempts per sync phase when the caller
// does not supply a positive limit.
const DefaultRetryLimit = 5

// SyncInput contains the parameters for a repository synchronization.
type SyncInput struct {
	// Source is the repository to clone from.
	Source Endpoint

	// Destination is the repository to push to.
	Destination Endpoint

	// SourceCredential authenticates the clone. It is revealed once.
	SourceCredential Secret

	// DestinationCredential authenticates the push. It is revealed once.
	DestinationCredential Secret

	// Branch restricts the clone to a single branch. Empty clones the
	// remote's default branch.
	Branch string

	// RetryLimit is the maximum number of attempts per phase.
	// Values below 1 are replaced by DefaultRetryLimit.
	RetryLimit int
}

// SyncOutput contains the result of a successful synchronization.
type SyncOutput struct {
	// Source is the canonical URL of the source repository.
	Source string

	// Destination is the canonical URL of the destination repository.
	Destination string

	// Branch is the branch checked out in the scratch clone, if known.
	Branch string

	// HeadSHA is the commit that was pushed, if it could be read from the clone.
	HeadSHA string

	// CloneAttempts is the number of clone invocations performed.
	CloneAttempts int

	// PushAttempts is the number of push invocations performed.
	PushAttempts int

	// Attempt holds the accumulated process diagnostics of every attempt.
	Attempt *SyncAttempt
}

// ProcessResult is the captured outcome of one external process invocation.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports whether the process exited with code zero.
func (r *ProcessResult) Succeeded() bool {
	return r != nil && r.ExitCode == 0
}

// SyncAttempt accumulates process results across retries. The exit code of
// the most recent result is authoritative; output and error text are the
// concatenation of every result.
type SyncAttempt struct {
	ExitCode int
	Output   string
	Error    string
}

// Append records a process result. Captured text is redacted before it is
// accumulated so that authenticated URLs echoed by git do not survive.
func (a *SyncAttempt) Append(result *ProcessResult) {
	if result == nil {
		return
	}
	a.ExitCode = result.ExitCode
	a.Output += RedactCredentials(result.Stdout)
	a.Error += RedactCredentials(result.Stderr)
}

// String renders the attempt for diagnostics. It is not JSON.
func (a *SyncAttempt) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ExitCode: %d\n", a.ExitCode)
	fmt.Fprintf(&b, "Output:\n%s\n", a.Output)
	fmt.Fprintf(&b, "Error:\n%s", a.Error)
	return b.String()
}

// CloneRequest describes a single clone invocation.
type CloneRequest struct {
	// URL is the authenticated source URL.
	URL string

	// Destination is the directory to clone into.
	Destination string

	// WorkDir is the working directory of the process.
	WorkDir string

	// Branch is passed as --branch when non-empty.
	Branch string

	// SingleBranch adds --single-branch.
	SingleBranch bool
}

// PushRequest describes a single push invocation.
type PushRequest struct {
	// WorkDir is the repository to push from.
	WorkDir string

	// Remotes are passed positionally after "push".
	Remotes []string
}

// ScratchState is what the scratch inspector can learn about a clone.
type ScratchState struct {
	HeadSHA string
	Branch  string
}

// Release is a published release of a hosted repository.
type Release struct {
	ID         int64
	TagName    string
	Name       string
	Draft      bool
	Prerelease bool
	Assets     []ReleaseAsset
}

// ReleaseAsset is a downloadable file attached to a release.
type ReleaseAsset struct {
	ID          int64
	Name        string
	ContentType string
	Size        int64
	DownloadURL string
}

// AssetDigest is the computed digest of one release asset.
type AssetDigest struct {
	TagName string
	Asset   string
	Size    int64
	Digest  string
}
