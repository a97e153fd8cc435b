// Package pool provides object pooling to reduce GC pressure when a whole
// vault is re-rendered in one pass.
package pool

import (
	"bytes"
	"sync"
)

// BufferPool pools bytes.Buffer for markdown rendering.
var BufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// StringSlicePool pools []string for link-line assembly.
var StringSlicePool = sync.Pool{
	New: func() interface{} {
		return make([]string, 0, 16)
	},
}

// GetBuffer gets a reset buffer from the pool.
func GetBuffer() *bytes.Buffer {
	b := BufferPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// PutBuffer returns a buffer to the pool. Oversized buffers are dropped.
func PutBuffer(b *bytes.Buffer) {
	if b.Cap() > 1<<20 {
		return
	}
	BufferPool.Put(b)
}

// GetStringSlice gets an empty slice from the pool.
func GetStringSlice() []string {
	s := StringSlicePool.Get().([]string)
	return s[:0]
}

// PutStringSlice returns a slice to the pool.
func PutStringSlice(s []string) {
	StringSlicePool.Put(s)
}
