package domain

import (
	"errors"
	"fmt"
)

// Domain errors for checksum computation and repository synchronization.
var (
	// ErrNotFound indicates a file or directory was absent when it was required.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a repository endpoint failed its availability check.
	ErrValidation = errors.New("endpoint validation failed")

	// ErrExternalProcess indicates the external executable exhausted its retries.
	ErrExternalProcess = errors.New("external process failed")

	// ErrCancelled indicates a computation observed cancellation and stopped.
	ErrCancelled = errors.New("operation cancelled")

	// ErrUnsupportedFormat indicates a digest representation with no string encoding.
	ErrUnsupportedFormat = errors.New("unsupported digest format")

	// ErrUnsupportedAlgorithm indicates an unknown digest algorithm name.
	ErrUnsupportedAlgorithm = errors.New("unsupported digest algorithm")

	// ErrNilArgument indicates a required argument was nil.
	ErrNilArgument = errors.New("argument must not be nil")

	// ErrInvalidChunkSize indicates a chunk size that is not a positive integer.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrCredentialConsumed indicates a one-time credential was already revealed or closed.
	ErrCredentialConsumed = errors.New("credential has already been consumed")
)

// Sync phases reported by ExternalProcessError.
const (
	PhaseClone = "clone"
	PhasePush  = "push"
)

// ExternalProcessError is returned when a sync phase exhausts its retry budget.
type ExternalProcessError struct {
	// Phase is PhaseClone or PhasePush.
	Phase string

	// Attempts is the number of invocations made in the phase.
	Attempts int

	// ExitCode is the exit code of the last invocation.
	ExitCode int

	// Stderr is the captured standard error of the last invocation.
	Stderr string

	// Attempt is the accumulated diagnostics of every invocation in the sync.
	Attempt *SyncAttempt
}

func (e *ExternalProcessError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s) with exit code %d: %s",
		e.Phase, e.Attempts, e.ExitCode, e.Stderr)
}

// Is makes errors.Is(err, ErrExternalProcess) match.
func (e *ExternalProcessError) Is(target error) bool {
	return target == ErrExternalProcess
}
