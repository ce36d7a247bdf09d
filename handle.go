package blockcache

import (
	"bytes"
	"errors"
	"io"
	"net"
	"slices"
	"sync/atomic"
)

var errNegativeOffset = errors.New("blockcache: negative offset")

// Handle is a shared lock on a cached value. While a handle is open the value
// cannot be deleted or evicted and its segments stay valid.
//
// A Handle must not be used after Release.
type Handle struct {
	c        *Cache
	e        *entry
	segs     [][]byte
	released atomic.Bool
}

// Len returns the size of the value in bytes.
func (h *Handle) Len() int {
	return h.e.size
}

// Segments returns the value as its per-block slices of mapped memory.
// The slices must not be modified or retained after Release.
func (h *Handle) Segments() [][]byte {
	return h.segs
}

// Bytes returns a copy of the value.
func (h *Handle) Bytes() []byte {
	out := make([]byte, 0, h.e.size)
	for _, s := range h.segs {
		out = append(out, s...)
	}
	return out
}

// Reader returns a reader over the value that does not copy it up front.
func (h *Handle) Reader() io.Reader {
	readers := make([]io.Reader, len(h.segs))
	for i, s := range h.segs {
		readers[i] = bytes.NewReader(s)
	}
	return io.MultiReader(readers...)
}

// WriteTo writes the value to w, using vectored IO where w supports it.
func (h *Handle) WriteTo(w io.Writer) (int64, error) {
	bufs := net.Buffers(slices.Clone(h.segs))
	return bufs.WriteTo(w)
}

// ReadAt implements io.ReaderAt over the value.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	size := int64(h.e.size)
	if off >= size {
		return 0, io.EOF
	}

	bs := int64(h.c.layout.BlockSize)
	n := 0
	for n < len(p) && off < size {
		m := copy(p[n:], h.segs[off/bs][off%bs:])
		n += m
		off += int64(m)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Release drops the shared lock. It is idempotent.
func (h *Handle) Release() {
	if h.released.Swap(true) {
		return
	}
	h.segs = nil
	h.c.releaseRead(h.e)
}
