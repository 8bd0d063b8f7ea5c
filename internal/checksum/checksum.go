package checksum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// DefaultChunkSize is the read size used when no chunk size is given.
const DefaultChunkSize = 64 * 1024

// UnknownLength is reported as Progress.Length when the source cannot seek.
const UnknownLength int64 = -1

// FileInfo describes the file being hashed.
type FileInfo struct {
	Path string
	Size int64
}

// Progress is reported synchronously to a ProgressFunc. HashFile emits one
// record carrying File before the first chunk; every chunk after that
// carries the cumulative Position.
type Progress struct {
	Position int64
	Length   int64
	File     *FileInfo
}

// ProgressFunc receives progress records. It runs on the hashing goroutine.
type ProgressFunc func(Progress)

// Options configures a hash computation.
type Options struct {
	ChunkSize int
	Progress  ProgressFunc
}

// Option modifies Options.
type Option func(*Options)

// WithChunkSize sets the maximum number of bytes requested per read.
func WithChunkSize(size int) Option {
	return func(o *Options) {
		o.ChunkSize = size
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Options) {
		o.Progress = fn
	}
}

func buildOptions(opts []Option) (*Options, error) {
	o := &Options{ChunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(o)
	}
	if o.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidChunkSize, o.ChunkSize)
	}
	return o, nil
}

func (o *Options) report(p Progress) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

// Hasher computes digests with one algorithm. It holds no mutable state and
// may be shared between goroutines.
type Hasher struct {
	algorithm Algorithm
}

// New returns a Hasher for algorithm.
func New(algorithm Algorithm) (*Hasher, error) {
	if _, err := algorithm.newHash(); err != nil {
		return nil, err
	}
	return &Hasher{algorithm: algorithm}, nil
}

// Algorithm returns the digest algorithm of the Hasher.
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// HashBytes digests a fully resident buffer. A nil buffer hashes as empty.
func (h *Hasher) HashBytes(data []byte) ([]byte, error) {
	acc, err := h.algorithm.newHash()
	if err != nil {
		return nil, err
	}
	acc.Write(data)
	return acc.Sum(nil), nil
}

// HashStream reads r in chunks until EOF and returns the digest. Short reads
// are normal and simply continue the loop. If r implements io.Seeker the
// remaining length is reported with each chunk; otherwise Length is
// UnknownLength. Cancellation of ctx is observed between reads.
func (h *Hasher) HashStream(ctx context.Context, r io.Reader, opts ...Option) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: reader", domain.ErrNilArgument)
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return h.hashReader(ctx, r, o)
}

// HashFile digests the file at path. The file is opened read-only and never
// locked, so other readers are unaffected.
func (h *Hasher) HashFile(ctx context.Context, path string, opts ...Option) ([]byte, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, pathError("stat", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("hash %s: is a directory", path)
	}

	resolved, err := filepath.Abs(path)
	if err != nil {
		resolved = path
	}
	o.report(Progress{Length: info.Size(), File: &FileInfo{Path: resolved, Size: info.Size()}})

	file, err := os.Open(path) // #nosec G304 -- hashing caller-selected files is the purpose
	if err != nil {
		// The file can vanish between the stat and the open.
		return nil, pathError("open", path, err)
	}
	defer file.Close()

	return h.hashReader(ctx, file, o)
}

func pathError(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}

func (h *Hasher) hashReader(ctx context.Context, r io.Reader, o *Options) ([]byte, error) {
	acc, err := h.algorithm.newHash()
	if err != nil {
		return nil, err
	}

	length, err := remainingLength(r)
	if err != nil {
		return nil, err
	}

	buf, release := rentChunk(o.ChunkSize)
	defer release()

	var position int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCancelled, err)
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			acc.Write(buf[:n])
			position += int64(n)
			o.report(Progress{Position: position, Length: length})
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("read: %w", rerr)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}

	return acc.Sum(nil), nil
}

// remainingLength returns the bytes between the current offset and the end
// of a seekable reader, leaving the offset unchanged.
func remainingLength(r io.Reader) (int64, error) {
	seeker, ok := r.(io.Seeker)
	if !ok {
		return UnknownLength, nil
	}

	current, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		// Pipes and terminals satisfy io.Seeker through *os.File but cannot seek.
		return UnknownLength, nil
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return UnknownLength, nil
	}
	if _, err := seeker.Seek(current, io.SeekStart); err != nil {
		return 0, fmt.Errorf("restore stream offset: %w", err)
	}
	return end - current, nil
}

// HashFileString is HashFile followed by FormatDigest. An unsupported format
// fails before the file is touched.
func (h *Hasher) HashFileString(ctx context.Context, path string, f Format, opts ...Option) (string, error) {
	if err := ValidateStringFormat(f); err != nil {
		return "", err
	}
	digest, err := h.HashFile(ctx, path, opts...)
	if err != nil {
		return "", err
	}
	return FormatDigest(digest, f)
}

// HashStreamString is HashStream followed by FormatDigest.
func (h *Hasher) HashStreamString(ctx context.Context, r io.Reader, f Format, opts ...Option) (string, error) {
	if err := ValidateStringFormat(f); err != nil {
		return "", err
	}
	digest, err := h.HashStream(ctx, r, opts...)
	if err != nil {
		return "", err
	}
	return FormatDigest(digest, f)
}

// HashBytesString is HashBytes followed by FormatDigest.
func (h *Hasher) HashBytesString(data []byte, f Format) (string, error) {
	if err := ValidateStringFormat(f); err != nil {
		return "", err
	}
	digest, err := h.HashBytes(data)
	if err != nil {
		return "", err
	}
	return FormatDigest(digest, f)
}

// HashObjectString is HashObject followed by FormatDigest.
func (h *Hasher) HashObjectString(ctx context.Context, value any, f Format, opts ...Option) (string, error) {
	if err := ValidateStringFormat(f); err != nil {
		return "", err
	}
	digest, err := h.HashObject(ctx, value, opts...)
	if err != nil {
		return "", err
	}
	return FormatDigest(digest, f)
}
