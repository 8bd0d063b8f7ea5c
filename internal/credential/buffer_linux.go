//go:build linux

package credential

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mappedBuffer lives in an anonymous mapping outside the Go heap so the
// garbage collector never copies it.
type mappedBuffer struct {
	data   []byte
	locked bool
}

func allocate(size int) (protectedBuffer, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}

	// RLIMIT_MEMLOCK can be tiny in containers. An unlocked mapping is still
	// zeroed on release.
	locked := unix.Mlock(data) == nil
	_ = unix.Madvise(data, unix.MADV_DONTDUMP)

	return &mappedBuffer{data: data, locked: locked}, nil
}

func (b *mappedBuffer) bytes() []byte {
	return b.data
}

func (b *mappedBuffer) release() error {
	clear(b.data)

	var firstErr error
	if b.locked {
		if err := unix.Munlock(b.data); err != nil {
			firstErr = fmt.Errorf("munlock: %w", err)
		}
	}
	if err := unix.Munmap(b.data); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("munmap: %w", err)
	}
	b.data = nil
	return firstErr
}
