// Package progress renders checksum progress records as a terminal bar.
package progress

import (
	"io"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/MyCarrier-DevOps/repo-sync/internal/checksum"
)

// Bar consumes checksum.Progress records for one input. Sources with an
// unknown length render as a spinner.
type Bar struct {
	writer io.Writer
	name   string
	bar    *progressbar.ProgressBar
}

// New returns a Bar that writes to w and labels itself with name.
func New(w io.Writer, name string) *Bar {
	return &Bar{writer: w, name: name}
}

// Observe is a checksum.ProgressFunc.
func (b *Bar) Observe(p checksum.Progress) {
	if p.File != nil {
		b.start(p.File.Size, filepath.Base(p.File.Path))
		return
	}
	if b.bar == nil {
		b.start(p.Length, b.name)
	}
	_ = b.bar.Set64(p.Position)
}

// Func returns Observe as a checksum.ProgressFunc.
func (b *Bar) Func() checksum.ProgressFunc {
	return b.Observe
}

// Finish completes the bar. It is a no-op if nothing was observed.
func (b *Bar) Finish() error {
	if b.bar == nil {
		return nil
	}
	return b.bar.Finish()
}

func (b *Bar) start(length int64, description string) {
	if length < 0 {
		length = -1
	}
	b.bar = progressbar.NewOptions64(
		length,
		progressbar.OptionSetWriter(b.writer),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
