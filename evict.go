package blockcache

import (
	"context"
	"slices"

	"github.com/hupe1980/blockcache/internal/block"
	"github.com/hupe1980/blockcache/internal/queue"
)

// evict approximates LRU: it samples random blocks, ranks the entries owning
// them by last access and removes the oldest unlocked ones.
func (c *Cache) evict() int {
	limit := c.nextBlock.Load()
	if limit == 0 {
		return 0
	}

	samples := make([]uint32, c.opts.evictionSamples)
	c.rngMu.Lock()
	for i := range samples {
		samples[i] = uint32(c.rng.Uint64N(uint64(limit)))
	}
	c.rngMu.Unlock()

	seen := make([]*entry, 0, len(samples))
	oldest := queue.NewOldest[*entry](len(samples))
	for _, idx := range samples {
		key := block.DecodeKey(c.header(idx))
		if key.IsZero() {
			continue
		}
		v, ok := c.entries.Load(key)
		if !ok {
			continue
		}
		e := v.(*entry)
		if slices.Contains(seen, e) {
			continue
		}
		seen = append(seen, e)
		oldest.Push(e, e.lastAccess.Load())
	}

	evicted := 0
	for range c.opts.evictionEntries {
		it, ok := oldest.Pop()
		if !ok {
			break
		}
		if c.remove(it.Value) {
			evicted++
		}
	}

	c.opts.logger.LogEviction(context.Background(), len(seen), evicted)
	c.opts.metricsCollector.RecordEviction(evicted)
	return evicted
}
