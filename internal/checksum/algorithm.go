// Package checksum computes SHA-2 digests of files, buffers, streams, and
// serializable values by feeding fixed-size chunks into a hash accumulator.
package checksum

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// Algorithm selects the digest function.
type Algorithm string

// Supported algorithms.
const (
	SHA256 Algorithm = "SHA256"
	SHA384 Algorithm = "SHA384"
	SHA512 Algorithm = "SHA512"
)

// ParseAlgorithm accepts names such as "sha256", "SHA-384" or "Sha512".
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", ""))
	switch Algorithm(normalized) {
	case SHA256, SHA384, SHA512:
		return Algorithm(normalized), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedAlgorithm, name)
	}
}

// Size returns the digest length in bytes.
func (a Algorithm) Size() int {
	switch a {
	case SHA256:
		return sha256.Size
	case SHA384:
		return sha512.Size384
	case SHA512:
		return sha512.Size
	default:
		return 0
	}
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedAlgorithm, string(a))
	}
}
