package blockcache

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/blockcache/internal/block"
	"github.com/hupe1980/blockcache/internal/partition"
)

const (
	// MaxBlockSize is the largest supported block size.
	MaxBlockSize = block.MaxBlockSize
	// MaxChainLength is the most blocks a single value can span.
	MaxChainLength = block.MaxChain

	maxTotalBlocks = 1 << 31
)

// Cache is a fixed-capacity block cache over mapped partitions.
//
// All methods are safe for concurrent use. Add, Get, Contains and Delete
// never block on other callers: contention turns into a miss or false.
type Cache struct {
	opts   options
	dir    string
	layout partition.Layout

	partitions  []*partition.Partition
	partShift   uint
	slotMask    uint32
	totalBlocks uint32

	entries   sync.Map // hash.Key -> *entry
	nextBlock atomic.Uint32
	free      chan uint32
	clock     atomic.Uint64

	rngMu sync.Mutex
	rng   *rand.Rand

	reserved int64
	closed   atomic.Bool
}

// NewInMemory creates a cache whose partitions live in anonymous memory.
// numPartitions must be a power of two.
func NewInMemory(numPartitions int, optFns ...Option) (*Cache, error) {
	c, err := newCache(numPartitions, optFns)
	if err != nil {
		return nil, err
	}

	size := int64(numPartitions) * int64(c.layout.Size())
	if err := c.opts.resourceController.AcquireMemory(size); err != nil {
		return nil, fmt.Errorf("blockcache: reserve %d bytes: %w", size, err)
	}
	c.reserved = size

	for i := range c.partitions {
		p, err := partition.NewMemory(c.layout)
		if err != nil {
			c.closePartitions()
			return nil, err
		}
		c.partitions[i] = p
	}

	c.opts.logger.LogOpen(context.Background(), "", int(c.totalBlocks), c.layout.BlockSize)
	return c, nil
}

// NewOnDisk creates or opens a cache whose partitions are files in rootDir.
// numPartitions must be a power of two.
//
// Partition files are named partition-NNNN.blk. Existing files must match the
// configured geometry. Unless WithRecovery(false) is given, every complete
// and intact value found in them is served again.
func NewOnDisk(rootDir string, numPartitions int, optFns ...Option) (*Cache, error) {
	c, err := newCache(numPartitions, optFns)
	if err != nil {
		return nil, err
	}
	c.dir = rootDir

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("blockcache: create %s: %w", rootDir, err)
	}

	g := new(errgroup.Group)
	g.SetLimit(c.opts.openConcurrency)
	for i := range c.partitions {
		g.Go(func() error {
			p, err := partition.OpenFile(partitionPath(rootDir, i), c.layout)
			if err != nil {
				return err
			}
			c.partitions[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.closePartitions()
		return nil, fmt.Errorf("blockcache: %w", err)
	}

	ctx := context.Background()
	if c.opts.recovery {
		report := c.recover()
		c.opts.logger.LogRecovery(ctx, report, nil)
	} else {
		c.reset()
	}

	c.opts.logger.LogOpen(ctx, rootDir, int(c.totalBlocks), c.layout.BlockSize)
	return c, nil
}

func newCache(numPartitions int, optFns []Option) (*Cache, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	if err := o.validate(numPartitions); err != nil {
		return nil, err
	}

	seed := o.seed
	if !o.seeded {
		seed = rand.Uint64()
	}

	total := uint32(numPartitions * o.blocksPerPartition)
	return &Cache{
		opts:        o,
		layout:      partition.Layout{NumBlocks: o.blocksPerPartition, BlockSize: o.blockSize},
		partitions:  make([]*partition.Partition, numPartitions),
		partShift:   uint(bits.TrailingZeros(uint(o.blocksPerPartition))),
		slotMask:    uint32(o.blocksPerPartition - 1),
		totalBlocks: total,
		free:        make(chan uint32, total),
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

func partitionPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("partition-%04d.blk", i))
}

// header returns the encoded header of the global block idx.
func (c *Cache) header(idx uint32) []byte {
	return c.partitions[idx>>c.partShift].Header(int(idx & c.slotMask))
}

// block returns the payload area of the global block idx.
func (c *Cache) block(idx uint32) []byte {
	return c.partitions[idx>>c.partShift].Block(int(idx & c.slotMask))
}

// reset discards every header so the cache starts empty.
func (c *Cache) reset() {
	for _, p := range c.partitions {
		for slot := range c.layout.NumBlocks {
			block.Clear(p.Header(slot))
		}
	}
}

// BlockSize returns the payload size of one block.
func (c *Cache) BlockSize() int {
	return c.layout.BlockSize
}

// MaxValueSize returns the largest value Add accepts.
func (c *Cache) MaxValueSize() int {
	return min(MaxChainLength, int(c.totalBlocks)) * c.layout.BlockSize
}

// Sync flushes file-backed partitions to disk.
func (c *Cache) Sync() error {
	if c.closed.Load() {
		return ErrClosed
	}
	var errs []error
	for _, p := range c.partitions {
		errs = append(errs, p.Sync())
	}
	return errors.Join(errs...)
}

// Close flushes and unmaps all partitions. Handles must be released first;
// their segments are invalid afterwards. Close is idempotent.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	var errs []error
	for _, p := range c.partitions {
		if p != nil {
			errs = append(errs, p.Sync())
		}
	}
	errs = append(errs, c.closePartitions())
	return errors.Join(errs...)
}

func (c *Cache) closePartitions() error {
	var errs []error
	for i, p := range c.partitions {
		if p == nil {
			continue
		}
		errs = append(errs, p.Close())
		c.partitions[i] = nil
	}
	c.opts.resourceController.ReleaseMemory(c.reserved)
	c.reserved = 0
	return errors.Join(errs...)
}
