package checksum

import "sync"

// maxPooledChunk bounds the buffers kept for reuse. Larger chunk sizes are
// allocated per call and left to the garbage collector.
const maxPooledChunk = 1 << 20

var chunkPool = sync.Pool{
	New: func() any {
		buf := make([]byte, DefaultChunkSize)
		return &buf
	},
}

// rentChunk returns a buffer of exactly size bytes and the function that
// gives it back.
func rentChunk(size int) ([]byte, func()) {
	if size > maxPooledChunk {
		return make([]byte, size), func() {}
	}

	ptr := chunkPool.Get().(*[]byte)
	if cap(*ptr) < size {
		buf := make([]byte, size)
		ptr = &buf
	}
	buf := (*ptr)[:size]
	return buf, func() {
		chunkPool.Put(ptr)
	}
}
