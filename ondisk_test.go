package blockcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blockcache/internal/block"
	"github.com/hupe1980/blockcache/internal/mmap"
	"github.com/hupe1980/blockcache/testutil"
)

func openTestDisk(t *testing.T, dir string, opts ...Option) *Cache {
	t.Helper()
	opts = append([]Option{
		WithBlocksPerPartition(8),
		WithBlockSize(testBlockSize),
		WithSeed(1),
	}, opts...)
	c, err := NewOnDisk(dir, 2, opts...)
	require.NoError(t, err)
	return c
}

func TestOnDisk_CreatesPartitionFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := openTestDisk(t, dir)
	defer c.Close()

	for _, name := range []string{"partition-0000.blk", "partition-0001.blk"} {
		fi, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, int64(c.layout.Size()), fi.Size())
	}
	assert.Equal(t, 16, c.Stats().TotalBlocks)
}

func TestOnDisk_ReopenRecoversEntries(t *testing.T) {
	dir := t.TempDir()
	rng := testutil.NewRNG(7)
	chained := rng.Bytes(3*testBlockSize - 1)
	small := rng.Bytes(10)

	c := openTestDisk(t, dir)
	require.True(t, c.Add("chained", chained))
	require.True(t, c.Add("small", small))
	require.True(t, c.Add("deleted", []byte("gone")))
	require.True(t, c.Delete("deleted"))
	require.NoError(t, c.Close())

	c = openTestDisk(t, dir)
	defer c.Close()

	h, ok := c.Get("chained")
	require.True(t, ok)
	assert.Equal(t, chained, h.Bytes())
	h.Release()

	h, ok = c.Get("small")
	require.True(t, ok)
	assert.Equal(t, small, h.Bytes())
	h.Release()

	assert.False(t, c.Contains("deleted"))

	s := c.Stats()
	assert.Equal(t, 2, s.Items)
	assert.Equal(t, 12, s.FreeBlocks)

	// Freed and never-used blocks are all allocatable again.
	for _, k := range testutil.Keys("fill", 12) {
		require.True(t, c.Add(k, []byte("x")))
	}
	assert.Equal(t, 0, c.Stats().FreeBlocks)
	assert.True(t, c.Contains("chained"))
}

func TestOnDisk_RecoveryDropsCorruptAndPartialChains(t *testing.T) {
	dir := t.TempDir()

	c := openTestDisk(t, dir)
	require.True(t, c.Add("intact", []byte("intact")))
	require.True(t, c.Add("corrupt", make([]byte, 2*testBlockSize)))
	require.True(t, c.Add("partial", make([]byte, 3*testBlockSize)))

	c.block(entryOf(t, c, "corrupt").blocks[1])[0] ^= 0xff
	block.Clear(c.header(entryOf(t, c, "partial").blocks[2]))
	require.NoError(t, c.Close())

	c = openTestDisk(t, dir)
	defer c.Close()

	assert.True(t, c.Contains("intact"))
	assert.False(t, c.Contains("corrupt"))
	assert.False(t, c.Contains("partial"))

	s := c.Stats()
	assert.Equal(t, 1, s.Items)
	assert.Equal(t, 15, s.FreeBlocks)
}

func TestOnDisk_RecoveryDisabled(t *testing.T) {
	dir := t.TempDir()

	c := openTestDisk(t, dir)
	require.True(t, c.Add("k", []byte("v")))
	require.NoError(t, c.Close())

	c = openTestDisk(t, dir, WithRecovery(false))
	defer c.Close()

	assert.False(t, c.Contains("k"))
	assert.Equal(t, 16, c.Stats().FreeBlocks)
}

func TestOnDisk_GeometryMismatch(t *testing.T) {
	dir := t.TempDir()

	c := openTestDisk(t, dir)
	require.NoError(t, c.Close())

	_, err := NewOnDisk(dir, 2, WithBlocksPerPartition(16), WithBlockSize(testBlockSize))
	assert.ErrorIs(t, err, mmap.ErrSizeMismatch)
}

func TestOnDisk_Sync(t *testing.T) {
	c := openTestDisk(t, t.TempDir())
	defer c.Close()

	require.True(t, c.Add("k", []byte("v")))
	assert.NoError(t, c.Sync())
}
