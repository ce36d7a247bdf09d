package blockcache

import "github.com/hupe1980/blockcache/internal/block"

// Stats is a best-effort snapshot of cache occupancy. Concurrent writers may
// make the fields mutually inconsistent.
type Stats struct {
	// Items is the number of values, counted by their first block.
	Items int
	// TotalBlocks is the capacity in blocks.
	TotalBlocks int
	// FreeBlocks is the number of blocks holding no data.
	FreeBlocks int
	// BlockSize is the payload size of one block.
	BlockSize int
	// TotalBytes is the payload capacity.
	TotalBytes int64
	// UsedBytes is the payload bytes stored.
	UsedBytes int64
	// AllocatedBytes is the payload capacity of the blocks in use.
	AllocatedBytes int64
}

// Stats walks every allocated block header and summarizes occupancy.
func (c *Cache) Stats() Stats {
	s := Stats{
		TotalBlocks: int(c.totalBlocks),
		FreeBlocks:  int(c.totalBlocks),
		BlockSize:   c.layout.BlockSize,
		TotalBytes:  int64(c.totalBlocks) * int64(c.layout.BlockSize),
	}
	if c.closed.Load() {
		return s
	}

	limit := c.nextBlock.Load()
	for idx := range limit {
		hdr, err := block.Decode(c.header(idx))
		if err != nil || hdr.Key.IsZero() {
			continue
		}
		s.FreeBlocks--
		s.AllocatedBytes += int64(c.layout.BlockSize)
		s.UsedBytes += int64(min(int(hdr.Length), c.layout.BlockSize))
		if hdr.Index == 0 {
			s.Items++
		}
	}
	return s
}
