package blockcache

import (
	"runtime"

	"github.com/hupe1980/blockcache/internal/block"
)

// allocBlock claims a block, bump-allocating until the cache has been filled
// once and recycling freed blocks afterwards. When nothing is free it evicts
// and retries, so it only spins while every candidate is locked.
func (c *Cache) allocBlock() uint32 {
	for {
		if n := c.nextBlock.Load(); n < c.totalBlocks {
			if c.nextBlock.CompareAndSwap(n, n+1) {
				return n
			}
			continue
		}

		select {
		case idx := <-c.free:
			return idx
		default:
		}

		c.evict()
		runtime.Gosched()
	}
}

// freeBlocks clears the headers of blocks and returns them to the free queue.
func (c *Cache) freeBlocks(blocks []uint32) {
	if c.closed.Load() {
		return
	}
	for _, idx := range blocks {
		block.Clear(c.header(idx))
		c.free <- idx
	}
}

// remove deletes e if no handle is open on it.
func (c *Cache) remove(e *entry) bool {
	if !e.tryAcquireWrite() {
		return false
	}
	c.entries.CompareAndDelete(e.key, e)
	c.freeBlocks(e.blocks)
	return true
}

// forceDelete unpublishes e at once and frees its blocks as soon as the last
// handle on it is released.
func (c *Cache) forceDelete(e *entry) {
	c.entries.CompareAndDelete(e.key, e)
	e.doomed.Store(true)
	if e.tryAcquireWrite() {
		c.freeBlocks(e.blocks)
	}
}

func (c *Cache) releaseRead(e *entry) {
	if e.readers.Add(-1) == 0 && e.doomed.Load() && e.tryAcquireWrite() {
		c.freeBlocks(e.blocks)
	}
}
