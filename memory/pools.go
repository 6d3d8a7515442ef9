// Package memory provides sync.Pool-backed buffer reuse for the room
// broadcast hot path: every tick's delta-state encode draws its
// scratch buffer from here instead of allocating a fresh one.
package memory

import (
	"bytes"
	"sync"
)

// EncodeBufferPool provides reusable byte buffers for wire-frame
// encoding, pre-sized for a typical delta-state frame.
var EncodeBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetEncodeBuffer retrieves a pooled, reset byte buffer. Must call
// PutEncodeBuffer when done.
func GetEncodeBuffer() *bytes.Buffer {
	buf := EncodeBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutEncodeBuffer returns a byte buffer to the pool for reuse.
func PutEncodeBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 65536 {
		return // let GC handle oversized buffers
	}
	EncodeBufferPool.Put(buf)
}
