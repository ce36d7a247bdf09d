package blockcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blockcache/internal/block"
	"github.com/hupe1980/blockcache/internal/hash"
	"github.com/hupe1980/blockcache/resource"
	"github.com/hupe1980/blockcache/testutil"
)

const testBlockSize = 1024

func newTestCache(t *testing.T, blocks int, opts ...Option) *Cache {
	t.Helper()
	opts = append([]Option{
		WithBlocksPerPartition(blocks),
		WithBlockSize(testBlockSize),
		WithSeed(1),
	}, opts...)
	c, err := NewInMemory(1, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func entryOf(t *testing.T, c *Cache, key string) *entry {
	t.Helper()
	v, ok := c.entries.Load(hash.NewKey(key))
	require.True(t, ok, "entry %q not found", key)
	return v.(*entry)
}

func TestCache_RoundTrip(t *testing.T) {
	c := newTestCache(t, 16)
	value := testutil.NewRNG(1).Bytes(100)

	require.True(t, c.Add("artifact", value))

	h, ok := c.Get("artifact")
	require.True(t, ok)
	assert.Equal(t, 100, h.Len())
	assert.Equal(t, value, h.Bytes())
	h.Release()

	assert.True(t, c.Contains("artifact"))
}

func TestCache_EmptyValueRejected(t *testing.T) {
	c := newTestCache(t, 16)
	before := c.Stats()

	assert.False(t, c.Add("empty", nil))
	assert.False(t, c.Add("empty", []byte{}))

	assert.Equal(t, before, c.Stats())
	assert.False(t, c.Contains("empty"))
}

func TestCache_MissIsIdempotent(t *testing.T) {
	c := newTestCache(t, 16)
	require.True(t, c.Add("present", []byte("x")))
	before := c.Stats()

	for range 2 {
		h, ok := c.Get("absent")
		assert.False(t, ok)
		assert.Nil(t, h)
	}
	assert.Equal(t, before, c.Stats())
}

func TestCache_Chaining(t *testing.T) {
	c := newTestCache(t, 16)
	value := testutil.NewRNG(2).Bytes(testBlockSize*3 + testBlockSize/2)

	require.True(t, c.Add("chain", value))

	h, ok := c.Get("chain")
	require.True(t, ok)
	defer h.Release()
	require.Len(t, h.Segments(), 4)
	assert.Equal(t, value, h.Bytes())

	e := entryOf(t, c, "chain")
	wantLen := []uint32{testBlockSize, testBlockSize, testBlockSize, testBlockSize / 2}
	for i, idx := range e.blocks {
		hdr, err := block.Decode(c.header(idx))
		require.NoError(t, err)
		assert.Equal(t, hash.NewKey("chain"), hdr.Key)
		assert.Equal(t, uint8(i), hdr.Index)
		assert.Equal(t, uint8(4), hdr.Count)
		assert.Equal(t, wantLen[i], hdr.Length)
	}

	s := c.Stats()
	assert.Equal(t, 1, s.Items)
	assert.Equal(t, 12, s.FreeBlocks)
	assert.Equal(t, int64(len(value)), s.UsedBytes)
	assert.Equal(t, int64(4*testBlockSize), s.AllocatedBytes)
}

func TestCache_FirstWriterWins(t *testing.T) {
	c := newTestCache(t, 16)

	require.True(t, c.Add("k", []byte("first")))
	require.True(t, c.Add("k", []byte("second")))

	h, ok := c.Get("k")
	require.True(t, ok)
	defer h.Release()
	assert.Equal(t, "first", string(h.Bytes()))
	assert.Equal(t, 1, c.Stats().Items)
}

func TestCache_ConcurrentSameKey(t *testing.T) {
	c := newTestCache(t, 64)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, c.Add("race", []byte(fmt.Sprintf("writer-%02d", i))))
		}()
	}
	wg.Wait()

	h, ok := c.Get("race")
	require.True(t, ok)
	defer h.Release()
	assert.Contains(t, string(h.Bytes()), "writer-")

	s := c.Stats()
	assert.Equal(t, 1, s.Items)
	assert.Equal(t, 63, s.FreeBlocks)
}

func TestCache_TooLarge(t *testing.T) {
	c := newTestCache(t, 16)

	assert.Equal(t, 16*testBlockSize, c.MaxValueSize())
	assert.False(t, c.Add("big", make([]byte, 16*testBlockSize+1)))
	assert.True(t, c.Add("fits", make([]byte, 16*testBlockSize)))
}

func TestCache_CorruptionDetected(t *testing.T) {
	mc := &BasicMetricsCollector{}
	c := newTestCache(t, 16, WithMetricsCollector(mc))
	value := testutil.NewRNG(3).Bytes(2 * testBlockSize)
	require.True(t, c.Add("victim", value))

	e := entryOf(t, c, "victim")
	c.block(e.blocks[1])[7] ^= 0xff

	for range 2 {
		_, ok := c.Get("victim")
		assert.False(t, ok)
	}
	assert.False(t, c.Contains("victim"))
	assert.Equal(t, int64(1), mc.GetStats().CorruptedValues)

	s := c.Stats()
	assert.Equal(t, 0, s.Items)
	assert.Equal(t, 16, s.FreeBlocks)
}

func TestCache_CorruptionWithOpenHandle(t *testing.T) {
	c := newTestCache(t, 16)
	require.True(t, c.Add("shared", []byte("payload")))

	h1, ok := c.Get("shared")
	require.True(t, ok)

	e := entryOf(t, c, "shared")
	c.block(e.blocks[0])[0] ^= 0xff

	_, ok = c.Get("shared")
	assert.False(t, ok)
	assert.Equal(t, 15, c.Stats().FreeBlocks, "blocks stay reserved while a handle is open")

	h1.Release()
	assert.Equal(t, 16, c.Stats().FreeBlocks)
	assert.False(t, c.Contains("shared"))
}

func TestCache_EvictionUnderPressure(t *testing.T) {
	mc := &BasicMetricsCollector{}
	c := newTestCache(t, 8, WithMetricsCollector(mc))
	keys := testutil.Keys("k", 9)

	for _, k := range keys {
		require.True(t, c.Add(k, []byte(k)))
	}

	present := 0
	for _, k := range keys {
		if c.Contains(k) {
			present++
		}
	}
	assert.Less(t, present, 9)
	assert.True(t, c.Contains(keys[8]))
	assert.LessOrEqual(t, c.Stats().Items, 8)
	assert.Positive(t, mc.GetStats().EvictedEntries)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestCache(t, 8, WithEvictionSamples(200), WithEvictionEntries(4))
	keys := testutil.Keys("k", 8)
	for _, k := range keys {
		require.True(t, c.Add(k, []byte(k)))
	}
	for _, k := range keys[:4] {
		require.True(t, c.Contains(k))
	}

	assert.Equal(t, 4, c.evict())

	for _, k := range keys[:4] {
		assert.True(t, c.Contains(k), k)
	}
	for _, k := range keys[4:] {
		assert.False(t, c.Contains(k), k)
	}
}

func TestCache_ReaderBlocksDeleteAndEviction(t *testing.T) {
	c := newTestCache(t, 2)
	require.True(t, c.Add("pinned", []byte("pinned")))

	h, ok := c.Get("pinned")
	require.True(t, ok)

	assert.False(t, c.Delete("pinned"))

	for i := range 20 {
		require.True(t, c.Add(fmt.Sprintf("churn-%d", i), []byte("x")))
	}
	assert.True(t, c.Contains("pinned"))

	h.Release()
	h.Release()

	assert.True(t, c.Delete("pinned"))
	assert.False(t, c.Contains("pinned"))
	assert.False(t, c.Delete("pinned"))
}

func TestCache_ConcurrentDistinctKeys(t *testing.T) {
	c, err := NewInMemory(2, WithBlocksPerPartition(1024), WithBlockSize(testBlockSize))
	require.NoError(t, err)
	defer c.Close()

	const workers, perWorker = 8, 50
	rng := testutil.NewRNG(4)
	values := rng.Payloads(workers*perWorker, 1, 3*testBlockSize)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				n := w*perWorker + i
				assert.True(t, c.Add(fmt.Sprintf("key-%d", n), values[n]))
			}
		}()
	}
	wg.Wait()

	for n, v := range values {
		h, ok := c.Get(fmt.Sprintf("key-%d", n))
		require.True(t, ok, n)
		assert.Equal(t, v, h.Bytes())
		h.Release()
	}
	assert.Equal(t, len(values), c.Stats().Items)
}

func TestCache_ConcurrentChurn(t *testing.T) {
	c := newTestCache(t, 32)
	rng := testutil.NewRNG(5)
	values := rng.Payloads(64, 1, 2*testBlockSize)
	seq := rng.ZipfSequence(4000, len(values), 1.3)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < len(seq); i += 4 {
				n := seq[i]
				key := fmt.Sprintf("v-%d", n)
				if h, ok := c.Get(key); ok {
					if !bytes.Equal(values[n], h.Bytes()) {
						t.Errorf("value mismatch for %s", key)
					}
					h.Release()
					continue
				}
				c.Add(key, values[n])
			}
		}()
	}
	wg.Wait()

	s := c.Stats()
	assert.LessOrEqual(t, s.UsedBytes, s.AllocatedBytes)
	assert.LessOrEqual(t, s.AllocatedBytes, s.TotalBytes)
}

func TestHandle_Readers(t *testing.T) {
	c := newTestCache(t, 16)
	value := testutil.NewRNG(6).Bytes(2*testBlockSize + 10)
	require.True(t, c.Add("v", value))

	h, ok := c.Get("v")
	require.True(t, ok)
	defer h.Release()

	got, err := io.ReadAll(h.Reader())
	require.NoError(t, err)
	assert.Equal(t, value, got)

	var buf bytes.Buffer
	n, err := h.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(value)), n)
	assert.Equal(t, value, buf.Bytes())
	assert.Len(t, h.Segments(), 3)

	p := make([]byte, 20)
	m, err := h.ReadAt(p, testBlockSize-10)
	require.NoError(t, err)
	assert.Equal(t, 20, m)
	assert.Equal(t, value[testBlockSize-10:testBlockSize+10], p)

	m, err = h.ReadAt(p, int64(len(value))-5)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 5, m)

	_, err = h.ReadAt(p, -1)
	assert.Error(t, err)
}

func TestCache_InvalidConfig(t *testing.T) {
	tests := []struct {
		name          string
		numPartitions int
		opts          []Option
	}{
		{"partitions not power of two", 3, nil},
		{"zero partitions", 0, nil},
		{"blocks per partition", 1, []Option{WithBlocksPerPartition(100)}},
		{"block size not power of two", 1, []Option{WithBlockSize(1000)}},
		{"block size too large", 1, []Option{WithBlockSize(1 << 17)}},
		{"no eviction samples", 1, []Option{WithEvictionSamples(0)}},
		{"entries exceed samples", 1, []Option{WithEvictionSamples(2), WithEvictionEntries(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInMemory(tt.numPartitions, tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewInMemory(3)
	var np *ErrNotPowerOfTwo
	require.True(t, errors.As(err, &np))
	assert.Equal(t, 3, np.Value)
}

func TestCache_MemoryLimit(t *testing.T) {
	size := int64(4096 + 16*testBlockSize)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: size - 1})
	_, err := NewInMemory(1, WithBlocksPerPartition(16), WithBlockSize(testBlockSize), WithResourceController(rc))
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Zero(t, rc.MemoryUsage())

	rc = resource.NewController(resource.Config{MemoryLimitBytes: size})
	c, err := NewInMemory(1, WithBlocksPerPartition(16), WithBlockSize(testBlockSize), WithResourceController(rc))
	require.NoError(t, err)
	assert.Equal(t, size, rc.MemoryUsage())

	require.NoError(t, c.Close())
	assert.Zero(t, rc.MemoryUsage())
}

func TestCache_Closed(t *testing.T) {
	c, err := NewInMemory(1, WithBlocksPerPartition(16), WithBlockSize(testBlockSize))
	require.NoError(t, err)
	require.True(t, c.Add("k", []byte("v")))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.False(t, c.Add("k2", []byte("v")))
	assert.False(t, c.Contains("k"))
	assert.False(t, c.Delete("k"))
	assert.ErrorIs(t, c.Sync(), ErrClosed)
	_, err = c.Scrub(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCache_Scrub(t *testing.T) {
	c := newTestCache(t, 16, WithResourceController(resource.NewController(resource.Config{
		IOLimitBytesPerSec: 1 << 20,
	})))
	require.True(t, c.Add("good", []byte("good value")))
	require.True(t, c.Add("bad", []byte("bad value")))
	c.block(entryOf(t, c, "bad").blocks[0])[0] ^= 0xff

	report, err := c.Scrub(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Corrupt)
	assert.Equal(t, int64(len("good value")+len("bad value")), report.Bytes)

	assert.True(t, c.Contains("good"))
	assert.False(t, c.Contains("bad"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Scrub(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCache_ScrubSkipsLocked(t *testing.T) {
	c := newTestCache(t, 16)
	require.True(t, c.Add("k", []byte("v")))
	e := entryOf(t, c, "k")
	require.True(t, e.tryAcquireWrite())

	report, err := c.Scrub(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Checked)
}
