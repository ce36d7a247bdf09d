package blockcache

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/blockcache/internal/block"
	"github.com/hupe1980/blockcache/internal/hash"
)

// Add stores value under key and reports whether the key is now cached.
//
// The first writer of a key wins: if the key is already cached, or another
// goroutine publishes it first, Add leaves that value in place and still
// returns true. Add returns false for an empty value, for a value larger
// than MaxValueSize, and after Close.
//
// value is copied; the caller may reuse it.
func (c *Cache) Add(key string, value []byte) bool {
	if c.closed.Load() || len(value) == 0 {
		return false
	}
	start := time.Now()

	k := hash.NewKey(key)
	if v, ok := c.entries.Load(k); ok && v.(*entry).live() {
		c.opts.metricsCollector.RecordAdd(len(value), true, time.Since(start))
		return true
	}

	bs := c.layout.BlockSize
	n := block.BlocksFor(len(value), bs)
	if n > block.MaxChain || n > int(c.totalBlocks) {
		c.opts.logger.LogRejected(context.Background(), key, len(value), n)
		c.opts.metricsCollector.RecordAdd(len(value), false, time.Since(start))
		return false
	}

	e := &entry{key: k, blocks: make([]uint32, n), size: len(value)}
	for i := range n {
		chunk := value[i*bs : min((i+1)*bs, len(value))]
		idx := c.allocBlock()
		copy(c.block(idx), chunk)
		hdr := block.Header{
			Key:    k,
			Index:  uint8(i),
			Count:  uint8(n),
			Length: uint32(len(chunk)),
			Digest: hash.Digest(chunk),
		}
		hdr.Encode(c.header(idx))
		e.blocks[i] = idx
	}
	e.lastAccess.Store(c.clock.Add(1))

	for {
		v, loaded := c.entries.LoadOrStore(k, e)
		if !loaded {
			break
		}
		old := v.(*entry)
		if old.live() {
			c.freeBlocks(e.blocks)
			break
		}
		// The winner is being deleted; take its place.
		c.entries.CompareAndDelete(k, old)
	}

	c.opts.metricsCollector.RecordAdd(len(value), true, time.Since(start))
	return true
}

// Get returns a handle on the value stored under key.
//
// Get never waits: a key being deleted or evicted is reported as a miss.
// Every block is verified against its header and digest; a corrupt value is
// removed, logged and reported as a miss. The handle must be released.
func (c *Cache) Get(key string) (*Handle, bool) {
	if c.closed.Load() {
		return nil, false
	}
	start := time.Now()

	h, ok := c.get(key, hash.NewKey(key))
	c.opts.metricsCollector.RecordGet(ok, time.Since(start))
	return h, ok
}

func (c *Cache) get(key string, k hash.Key) (*Handle, bool) {
	v, ok := c.entries.Load(k)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if !e.tryAcquireRead() {
		return nil, false
	}
	e.lastAccess.Store(c.clock.Add(1))

	segs, err := c.verify(e)
	if err != nil {
		c.releaseRead(e)
		c.forceDelete(e)
		c.opts.logger.LogCorruption(context.Background(), key, err)
		c.opts.metricsCollector.RecordCorruption()
		return nil, false
	}

	return &Handle{c: c, e: e, segs: segs}, true
}

// Contains reports whether key is cached and intact. It has the same side
// effects as a Get followed by Release.
func (c *Cache) Contains(key string) bool {
	h, ok := c.Get(key)
	if ok {
		h.Release()
	}
	return ok
}

// Delete removes key. It returns false if the key is absent or a handle on
// it is still open.
func (c *Cache) Delete(key string) bool {
	if c.closed.Load() {
		return false
	}
	v, ok := c.entries.Load(hash.NewKey(key))
	if !ok {
		return false
	}
	return c.remove(v.(*entry))
}

// verify checks every block of e and returns its payload segments.
// The caller must hold a read lock on e.
func (c *Cache) verify(e *entry) ([][]byte, error) {
	bs := c.layout.BlockSize
	segs := make([][]byte, len(e.blocks))
	for i, idx := range e.blocks {
		hdr, err := block.Decode(c.header(idx))
		if err != nil {
			return nil, &CorruptionError{Block: idx, Index: i, Reason: err.Error()}
		}
		want := e.lengthOf(i, bs)
		switch {
		case hdr.Key != e.key:
			return nil, &CorruptionError{Block: idx, Index: i, Reason: "key mismatch"}
		case int(hdr.Index) != i || int(hdr.Count) != len(e.blocks):
			return nil, &CorruptionError{Block: idx, Index: i,
				Reason: fmt.Sprintf("chain position %d/%d, want %d/%d", hdr.Index, hdr.Count, i, len(e.blocks))}
		case int(hdr.Length) != want:
			return nil, &CorruptionError{Block: idx, Index: i,
				Reason: fmt.Sprintf("length %d, want %d", hdr.Length, want)}
		}
		payload := c.block(idx)[:want:want]
		if hash.Digest(payload) != hdr.Digest {
			return nil, &CorruptionError{Block: idx, Index: i, Reason: "digest mismatch"}
		}
		segs[i] = payload
	}
	return segs, nil
}
