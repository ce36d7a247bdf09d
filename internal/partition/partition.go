// Package partition splits a mapped region into a header array and a block array.
package partition

import (
	"errors"
	"fmt"

	"github.com/hupe1980/blockcache/internal/block"
	"github.com/hupe1980/blockcache/internal/mmap"
)

// PageSize is the alignment of the data array inside a partition.
const PageSize = 4096

// ErrSlotOutOfRange is returned for a slot outside [0, NumBlocks).
var ErrSlotOutOfRange = errors.New("partition: slot out of range")

// Layout describes the geometry shared by every partition of a cache.
type Layout struct {
	NumBlocks int
	BlockSize int
}

// HeaderBytes returns the page-aligned size of the header array.
func (l Layout) HeaderBytes() int {
	n := l.NumBlocks * block.HeaderSize
	return (n + PageSize - 1) &^ (PageSize - 1)
}

// DataBytes returns the size of the block array.
func (l Layout) DataBytes() int {
	return l.NumBlocks * l.BlockSize
}

// Size returns the total mapped size of one partition.
func (l Layout) Size() int {
	return l.HeaderBytes() + l.DataBytes()
}

// Partition is one mapped region holding NumBlocks headers and blocks.
type Partition struct {
	layout  Layout
	m       *mmap.Mapping
	headers *mmap.Region
	blocks  *mmap.Region
}

// NewMemory creates a partition backed by an anonymous mapping.
func NewMemory(l Layout) (*Partition, error) {
	m, err := mmap.MapAnon(l.Size())
	if err != nil {
		return nil, fmt.Errorf("partition: map anonymous: %w", err)
	}
	return wrap(l, m)
}

// OpenFile creates or opens a partition backed by the file at path.
func OpenFile(path string, l Layout) (*Partition, error) {
	m, err := mmap.OpenFile(path, l.Size())
	if err != nil {
		return nil, fmt.Errorf("partition: open %s: %w", path, err)
	}
	p, err := wrap(l, m)
	if err != nil {
		return nil, err
	}
	// Recovery scans every header; payloads are read at random.
	if err := errors.Join(p.headers.Advise(mmap.AccessWillNeed), p.blocks.Advise(mmap.AccessRandom)); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func wrap(l Layout, m *mmap.Mapping) (*Partition, error) {
	hr, err := m.Region(0, l.HeaderBytes())
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	dr, err := m.Region(l.HeaderBytes(), l.DataBytes())
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return &Partition{
		layout:  l,
		m:       m,
		headers: hr,
		blocks:  dr,
	}, nil
}

// Layout returns the partition geometry.
func (p *Partition) Layout() Layout {
	return p.layout
}

// Header returns the encoded header of slot. Panics when slot is out of range.
func (p *Partition) Header(slot int) []byte {
	p.check(slot)
	return p.headers.Record(slot, block.HeaderSize)
}

// Block returns the full payload area of slot. Panics when slot is out of range.
func (p *Partition) Block(slot int) []byte {
	p.check(slot)
	return p.blocks.Record(slot, p.layout.BlockSize)
}

func (p *Partition) check(slot int) {
	if slot < 0 || slot >= p.layout.NumBlocks {
		panic(fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot))
	}
}

// Sync flushes a file-backed partition to disk.
func (p *Partition) Sync() error {
	return p.m.Sync()
}

// Close unmaps the partition. The slices returned by Header and Block must
// not be used afterwards.
func (p *Partition) Close() error {
	return p.m.Close()
}
