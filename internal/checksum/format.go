package checksum

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// Format is the representation of a digest.
type Format string

// Digest formats. FormatBinary is only obtainable from the byte-returning
// functions; asking for it as a string fails with domain.ErrUnsupportedFormat.
const (
	FormatBase64   Format = "base64"
	FormatHex      Format = "HEX"
	FormatHexLower Format = "hex"
	FormatBinary   Format = "binary"
)

// ParseFormat maps a flag value to a Format. "hex" is lowercase, "HEX"
// uppercase.
func ParseFormat(name string) (Format, error) {
	switch strings.TrimSpace(name) {
	case "base64", "BASE64":
		return FormatBase64, nil
	case "HEX", "hexadecimal", "HEXADECIMAL":
		return FormatHex, nil
	case "hex":
		return FormatHexLower, nil
	case "binary", "BINARY":
		return FormatBinary, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, name)
	}
}

// ValidateStringFormat reports whether f has a string encoding.
func ValidateStringFormat(f Format) error {
	switch f {
	case FormatBase64, FormatHex, FormatHexLower:
		return nil
	case FormatBinary:
		return fmt.Errorf("%w: binary has no string representation", domain.ErrUnsupportedFormat)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, string(f))
	}
}

// FormatDigest renders digest in f.
func FormatDigest(digest []byte, f Format) (string, error) {
	if err := ValidateStringFormat(f); err != nil {
		return "", err
	}

	switch f {
	case FormatBase64:
		return base64.StdEncoding.EncodeToString(digest), nil
	case FormatHex:
		return strings.ToUpper(hex.EncodeToString(digest)), nil
	default:
		return hex.EncodeToString(digest), nil
	}
}
