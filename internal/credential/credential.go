// Package credential holds access tokens in scrubbed memory until the single
// moment they are needed. A Credential copies the caller's bytes into a
// region that is zeroed on release and, on Linux, kept out of swap and core
// dumps.
package credential

import (
	"fmt"
	"sync"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

const redacted = "[REDACTED]"

// protectedBuffer is the platform specific backing store.
type protectedBuffer interface {
	bytes() []byte
	release() error
}

// Credential is an opaque secret that can be revealed exactly once. It
// implements domain.Secret. Formatting a Credential with fmt never prints
// its contents.
type Credential struct {
	mu       sync.Mutex
	buf      protectedBuffer
	consumed bool
}

var _ domain.Secret = (*Credential)(nil)

// FromBytes moves source into a new Credential. The source slice is zeroed
// whether or not an error is returned.
func FromBytes(source []byte) (*Credential, error) {
	defer clear(source)

	if len(source) == 0 {
		return nil, fmt.Errorf("%w: credential is empty", domain.ErrValidation)
	}

	buf, err := allocate(len(source))
	if err != nil {
		return nil, fmt.Errorf("allocate credential: %w", err)
	}
	copy(buf.bytes(), source)

	return &Credential{buf: buf}, nil
}

// FromString copies value into a new Credential. Go strings are immutable,
// so callers that can should prefer FromBytes.
func FromString(value string) (*Credential, error) {
	return FromBytes([]byte(value))
}

// Reveal returns the plain text and scrubs the container. Later calls fail
// with domain.ErrCredentialConsumed.
func (c *Credential) Reveal() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consumed || c.buf == nil {
		return "", domain.ErrCredentialConsumed
	}
	c.consumed = true

	plain := string(c.buf.bytes())
	if err := c.releaseLocked(); err != nil {
		return "", err
	}
	return plain, nil
}

// Consumed reports whether Reveal or Close has been called.
func (c *Credential) Consumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumed
}

// Close scrubs the container without revealing it. Close is idempotent.
func (c *Credential) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consumed = true
	return c.releaseLocked()
}

func (c *Credential) releaseLocked() error {
	if c.buf == nil {
		return nil
	}
	err := c.buf.release()
	c.buf = nil
	if err != nil {
		return fmt.Errorf("release credential: %w", err)
	}
	return nil
}

// String implements fmt.Stringer without exposing the secret.
func (c *Credential) String() string {
	return redacted
}

// GoString implements fmt.GoStringer for %#v.
func (c *Credential) GoString() string {
	return redacted
}
