package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/repo-sync/internal/checksum"
	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// stdinInput names standard input on the command line.
const stdinInput = "-"

// ErrChecksumMismatch indicates a digest differs from the --expect value.
var ErrChecksumMismatch = errors.New("checksum mismatch")

type checksumOptions struct {
	algorithm  string
	format     string
	chunkSize  int
	progress   bool
	expect     string
	awsProfile string
	awsRegion  string
}

type inputKind int

const (
	inputFile inputKind = iota
	inputStdin
	inputObject
)

type checksumInput struct {
	name string
	kind inputKind
}

func newChecksumCmd(deps *Dependencies) *cobra.Command {
	opts := &checksumOptions{}

	checksumCmd := &cobra.Command{
		Use:   "checksum <input>...",
		Short: "Compute SHA-2 digests of files, stdin or S3 objects",
		Long: `checksum reads each input in fixed-size chunks and prints
"<digest>  <input>" per line.

An input is a file path, a doublestar glob such as 'dist/**/*.zip',
"-" for standard input, or s3://bucket/key.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecksum(cmd, args, deps, opts)
		},
	}

	checksumCmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", "",
		"Digest algorithm: SHA256, SHA384 or SHA512 (defaults to REPO_SYNC_ALGORITHM)")
	checksumCmd.Flags().StringVarP(&opts.format, "format", "f", string(checksum.FormatHexLower),
		"Digest encoding: hex, HEX or base64")
	checksumCmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0,
		"Bytes read per step (defaults to REPO_SYNC_CHUNK_SIZE)")
	checksumCmd.Flags().BoolVarP(&opts.progress, "progress", "p", false,
		"Show a progress bar on stderr")
	checksumCmd.Flags().StringVar(&opts.expect, "expect", "",
		"Fail unless the digest of the single input equals this value")
	checksumCmd.Flags().StringVar(&opts.awsProfile, "aws-profile", "",
		"AWS shared config profile for s3:// inputs")
	checksumCmd.Flags().StringVar(&opts.awsRegion, "aws-region", "",
		"AWS region for s3:// inputs")

	return checksumCmd
}

// runChecksum hashes every input with injected dependencies.
func runChecksum(cmd *cobra.Command, args []string, deps *Dependencies, opts *checksumOptions) error {
	s, err := startSession(cmd, deps)
	if err != nil {
		return err
	}
	ctx, log := s.ctx, s.log

	algorithm := s.cfg.Algorithm
	if opts.algorithm != "" {
		if algorithm, err = checksum.ParseAlgorithm(opts.algorithm); err != nil {
			return err
		}
	}
	format, err := checksum.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if err := checksum.ValidateStringFormat(format); err != nil {
		return err
	}
	chunkSize := s.cfg.ChunkSize
	if opts.chunkSize != 0 {
		chunkSize = opts.chunkSize
	}

	hasher, err := checksum.New(algorithm)
	if err != nil {
		return err
	}

	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}
	if opts.expect != "" && len(inputs) != 1 {
		return fmt.Errorf("--expect requires exactly one input, got %d", len(inputs))
	}

	var objects StreamOpener
	writer := deps.OutputWriterFactory()

	for _, input := range inputs {
		if input.kind == inputObject && objects == nil {
			if objects, err = deps.StreamOpenerFactory(ctx, opts.awsProfile, opts.awsRegion); err != nil {
				log.Error(ctx, "failed to create S3 client", err, nil)
				return fmt.Errorf("s3 error: %w", err)
			}
		}

		digest, err := hashInput(cmd, s, hasher, objects, input, format, chunkSize, opts.progress)
		if err != nil {
			log.Error(ctx, "failed to compute checksum", err, map[string]interface{}{
				"input": input.name,
			})
			return describeChecksumError(input.name, err)
		}

		log.Debug(ctx, "computed checksum", map[string]interface{}{
			"input":     input.name,
			"algorithm": string(algorithm),
		})

		if err := writer.WriteDigest(digest, input.name); err != nil {
			log.Error(ctx, "failed to write output", err, nil)
			return fmt.Errorf("output error: %w", err)
		}

		if opts.expect != "" && !digestsEqual(format, digest, opts.expect) {
			return fmt.Errorf("%w: %s: got %s, want %s", ErrChecksumMismatch, input.name, digest, opts.expect)
		}
	}

	return nil
}

func hashInput(
	cmd *cobra.Command,
	s *session,
	hasher *checksum.Hasher,
	objects StreamOpener,
	input checksumInput,
	format checksum.Format,
	chunkSize int,
	showProgress bool,
) (string, error) {
	hashOpts := []checksum.Option{checksum.WithChunkSize(chunkSize)}

	if showProgress && s.deps.ProgressFactory != nil {
		sink := s.deps.ProgressFactory(input.name)
		hashOpts = append(hashOpts, checksum.WithProgress(sink.Func()))
		defer func() {
			if err := sink.Finish(); err != nil {
				s.log.Warn(s.ctx, "failed to finish progress bar", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	switch input.kind {
	case inputStdin:
		stdin := s.deps.Stdin
		if stdin == nil {
			stdin = cmd.InOrStdin()
		}
		// Wrapping hides any Seek so stdin is always treated as non-seekable.
		return hasher.HashStreamString(s.ctx, io.NopCloser(stdin), format, hashOpts...)
	case inputObject:
		body, err := objects(s.ctx, input.name)
		if err != nil {
			return "", err
		}
		defer body.Close()
		return hasher.HashStreamString(s.ctx, body, format, hashOpts...)
	default:
		return hasher.HashFileString(s.ctx, input.name, format, hashOpts...)
	}
}

// expandInputs resolves glob patterns and classifies each input.
func expandInputs(args []string) ([]checksumInput, error) {
	var inputs []checksumInput
	for _, arg := range args {
		switch {
		case arg == stdinInput:
			inputs = append(inputs, checksumInput{name: arg, kind: inputStdin})
		case strings.HasPrefix(arg, "s3://"):
			inputs = append(inputs, checksumInput{name: arg, kind: inputObject})
		case hasGlobMeta(arg):
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("%w: no files match %s", domain.ErrNotFound, arg)
			}
			for _, match := range matches {
				inputs = append(inputs, checksumInput{name: match, kind: inputFile})
			}
		default:
			inputs = append(inputs, checksumInput{name: arg, kind: inputFile})
		}
	}
	return inputs, nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// digestsEqual compares hex digests case-insensitively and base64 exactly.
func digestsEqual(format checksum.Format, got, want string) bool {
	if format == checksum.FormatBase64 {
		return got == want
	}
	return strings.EqualFold(got, want)
}

// describeChecksumError maps checksum failures to user-facing messages.
func describeChecksumError(name string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("not found: %s", name)
	case errors.Is(err, domain.ErrCancelled):
		return fmt.Errorf("checksum of %s cancelled: %w", name, err)
	default:
		return fmt.Errorf("checksum of %s failed: %w", name, err)
	}
}
