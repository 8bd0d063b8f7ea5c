//go:build !linux

package credential

// heapBuffer is used where anonymous locked mappings are unavailable. It is
// still zeroed on release.
type heapBuffer struct {
	data []byte
}

func allocate(size int) (protectedBuffer, error) {
	return &heapBuffer{data: make([]byte, size)}, nil
}

func (b *heapBuffer) bytes() []byte {
	return b.data
}

func (b *heapBuffer) release() error {
	clear(b.data)
	b.data = nil
	return nil
}
