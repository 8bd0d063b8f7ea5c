// Package output provides adapters for writing application output.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// Writer writes command results to the configured output destination.
// By default, it writes to stdout.
type Writer struct {
	out io.Writer
}

// NewWriter creates a new Writer that writes to stdout.
func NewWriter() *Writer {
	return &Writer{out: os.Stdout}
}

// NewWriterWithOutput creates a new Writer with a custom output destination.
// This is useful for testing.
func NewWriterWithOutput(out io.Writer) *Writer {
	return &Writer{out: out}
}

var _ domain.OutputWriter = (*Writer)(nil)

// WriteDigest writes "<digest>  <name>", the layout read by sha256sum -c.
func (w *Writer) WriteDigest(digest, name string) error {
	_, err := fmt.Fprintf(w.out, "%s  %s\n", digest, name)
	return err
}

// WriteSyncResult writes one "key: value" line per field of result.
// Empty optional fields are omitted.
func (w *Writer) WriteSyncResult(result *domain.SyncOutput) error {
	if result == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "source: %s\n", result.Source)
	fmt.Fprintf(&b, "destination: %s\n", result.Destination)
	if result.Branch != "" {
		fmt.Fprintf(&b, "branch: %s\n", result.Branch)
	}
	if result.HeadSHA != "" {
		fmt.Fprintf(&b, "head: %s\n", result.HeadSHA)
	}
	fmt.Fprintf(&b, "clone_attempts: %d\n", result.CloneAttempts)
	fmt.Fprintf(&b, "push_attempts: %d\n", result.PushAttempts)

	_, err := io.WriteString(w.out, b.String())
	return err
}

// WriteRelease writes a tab separated summary line for release.
func (w *Writer) WriteRelease(release domain.Release) error {
	var flags []string
	if release.Draft {
		flags = append(flags, "draft")
	}
	if release.Prerelease {
		flags = append(flags, "prerelease")
	}
	status := "published"
	if len(flags) > 0 {
		status = strings.Join(flags, ",")
	}

	_, err := fmt.Fprintf(w.out, "%s\t%s\t%s\t%d\n", release.TagName, release.Name, status, len(release.Assets))
	return err
}
