package blockcache

import (
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/blockcache/internal/block"
	"github.com/hupe1980/blockcache/internal/hash"
)

// RecoveryReport summarizes the index rebuilt from partition files.
type RecoveryReport struct {
	Entries       int
	DroppedChains int
	FreedBlocks   int
	Duration      time.Duration
}

type recoveredBlock struct {
	idx uint32
	hdr block.Header
}

type partitionScan struct {
	blocks []recoveredBlock
	// used is one past the highest block holding a header, or 0.
	used uint32
}

// recover rebuilds the lookup table from on-media headers. Partitions are
// scanned in parallel and every block digest is verified. Complete chains
// become entries; everything else below the highest used block is cleared
// and queued as free.
func (c *Cache) recover() RecoveryReport {
	start := time.Now()

	scans := make([]partitionScan, len(c.partitions))
	g := new(errgroup.Group)
	g.SetLimit(c.opts.openConcurrency)
	for i := range c.partitions {
		g.Go(func() error {
			scans[i] = c.scanPartition(i)
			return nil
		})
	}
	_ = g.Wait()

	chains := make(map[hash.Key][]recoveredBlock)
	var used uint32
	for _, s := range scans {
		used = max(used, s.used)
		for _, rb := range s.blocks {
			chains[rb.hdr.Key] = append(chains[rb.hdr.Key], rb)
		}
	}

	var report RecoveryReport
	live := roaring.New()
	for key, blocks := range chains {
		e := c.assemble(key, blocks)
		if e == nil {
			report.DroppedChains++
			continue
		}
		for _, idx := range e.blocks {
			live.Add(idx)
		}
		c.entries.Store(key, e)
		report.Entries++
	}

	c.nextBlock.Store(used)
	freed := roaring.Flip(live, 0, uint64(used))
	it := freed.Iterator()
	for it.HasNext() {
		idx := it.Next()
		block.Clear(c.header(idx))
		c.free <- idx
	}

	report.FreedBlocks = int(freed.GetCardinality())
	report.Duration = time.Since(start)
	return report
}

func (c *Cache) scanPartition(p int) partitionScan {
	var s partitionScan
	base := uint32(p) << c.partShift
	for slot := range c.layout.NumBlocks {
		idx := base | uint32(slot)
		hdr, err := block.Decode(c.header(idx))
		if err != nil || hdr.Key.IsZero() {
			continue
		}
		s.used = idx + 1
		if hdr.Validate() != nil || int(hdr.Length) > c.layout.BlockSize {
			continue
		}
		if hash.Digest(c.block(idx)[:hdr.Length]) != hdr.Digest {
			continue
		}
		s.blocks = append(s.blocks, recoveredBlock{idx: idx, hdr: hdr})
	}
	return s
}

// assemble orders the blocks of one key into an entry, or returns nil if the
// chain is incomplete, duplicated or has inconsistent lengths.
func (c *Cache) assemble(key hash.Key, blocks []recoveredBlock) *entry {
	count := int(blocks[0].hdr.Count)
	if len(blocks) != count {
		return nil
	}

	e := &entry{key: key, blocks: make([]uint32, count)}
	seen := make([]bool, count)
	for _, rb := range blocks {
		i := int(rb.hdr.Index)
		if int(rb.hdr.Count) != count || seen[i] {
			return nil
		}
		if i < count-1 && int(rb.hdr.Length) != c.layout.BlockSize {
			return nil
		}
		seen[i] = true
		e.blocks[i] = rb.idx
		e.size += int(rb.hdr.Length)
	}
	return e
}
