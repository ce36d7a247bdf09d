package mmap

import "fmt"

// Region is a fixed view into a Mapping, such as the header or block array
// of a partition. It does not own the memory.
type Region struct {
	parent *Mapping
	data   []byte
	offset int
}

// Region returns the view [offset, offset+size) of the mapping.
func (m *Mapping) Region(offset, size int) (*Region, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if offset < 0 || size < 0 || offset+size > m.size {
		return nil, fmt.Errorf("%w: [%d, %d) of %d bytes", ErrOutOfBounds, offset, offset+size, m.size)
	}
	end := offset + size
	return &Region{parent: m, data: m.data[offset:end:end], offset: offset}, nil
}

// Bytes returns the region, or nil once the parent is closed.
func (r *Region) Bytes() []byte {
	if r.parent.closed.Load() {
		return nil
	}
	return r.data
}

// Record returns the i-th record of a region divided into records of size
// bytes. The slice is capped so appends cannot reach the next record. Record
// does not check for Close; callers own that lifetime.
func (r *Region) Record(i, size int) []byte {
	off := i * size
	return r.data[off : off+size : off+size]
}

// Records returns how many records of size bytes fit in the region.
func (r *Region) Records(size int) int {
	if size <= 0 {
		return 0
	}
	return len(r.data) / size
}

// Offset returns the start of the region within its mapping.
func (r *Region) Offset() int { return r.offset }

// Size returns the length of the region in bytes.
func (r *Region) Size() int { return len(r.data) }

// Advise hints the kernel about how the region will be accessed.
func (r *Region) Advise(pattern AccessPattern) error {
	if r.parent.closed.Load() {
		return ErrClosed
	}
	return osAdvise(r.data, pattern)
}
