package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/blockcache"
)

// fillConcurrency bounds parallel backend reads per ReadAt.
const fillConcurrency = 16

// CachingStore wraps a BlobStore and serves reads through a block cache.
//
// Blobs are cached in aligned chunks of blockSize bytes under keys derived
// from the blob name and a per-name generation. Writes and deletes through
// the store bump the generation, so stale chunks are never read again and
// age out through eviction.
type CachingStore struct {
	inner     BlobStore
	cache     *blockcache.Cache
	blockSize int64

	generations sync.Map // name -> *atomic.Uint64
}

// NewCachingStore creates a new CachingStore.
// blockSize defaults to the cache block size if <= 0 and is capped at the
// cache's largest value.
func NewCachingStore(inner BlobStore, cache *blockcache.Cache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = int64(cache.BlockSize())
	}
	blockSize = min(blockSize, int64(cache.MaxValueSize()))
	return &CachingStore{
		inner:     inner,
		cache:     cache,
		blockSize: blockSize,
	}
}

func (s *CachingStore) generation(name string) *atomic.Uint64 {
	if v, ok := s.generations.Load(name); ok {
		return v.(*atomic.Uint64)
	}
	v, _ := s.generations.LoadOrStore(name, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

func (s *CachingStore) invalidate(name string) {
	s.generation(name).Add(1)
}

// Open opens a blob whose reads are served from the cache where possible.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:     b,
		cache:     s.cache,
		prefix:    fmt.Sprintf("blob:%s#%d@", name, s.generation(name).Load()),
		blockSize: s.blockSize,
	}, nil
}

// Create passes through to the inner store and invalidates cached chunks of name.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingWriter{WritableBlob: w, done: func() { s.invalidate(name) }}, nil
}

// Put writes through to the inner store and invalidates cached chunks of name.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	defer s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete removes the blob and invalidates cached chunks of name.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	defer s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List passes through to the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type invalidatingWriter struct {
	WritableBlob
	done func()
}

func (w *invalidatingWriter) Close() error {
	defer w.done()
	return w.WritableBlob.Close()
}

// CachingBlob wraps a Blob and uses the block cache for reads.
type CachingBlob struct {
	inner     Blob
	cache     *blockcache.Cache
	prefix    string
	blockSize int64
}

func (b *CachingBlob) key(blk int64) string {
	return b.prefix + fmt.Sprint(blk)
}

// Close closes the inner blob.
func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

// Size returns the size of the inner blob.
func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

// ReadAt reads through the cache, fetching missing chunks from the inner blob.
func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off >= size {
		return 0, io.EOF
	}

	want := p
	if off+int64(len(p)) > size {
		want = p[:size-off]
	}

	startBlock := off / b.blockSize
	endBlock := (off + int64(len(want)) - 1) / b.blockSize

	fetched, err := b.fillCache(ctx, startBlock, endBlock)
	if err != nil {
		return 0, err
	}

	n := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		blkStart := blk * b.blockSize
		intersectStart := max(blkStart, off)
		intersectEnd := min(blkStart+b.blockSize, off+int64(len(want)))
		dst := want[intersectStart-off : intersectEnd-off]

		if data, ok := fetched[blk]; ok {
			n += copy(dst, data[intersectStart-blkStart:])
			continue
		}
		h, ok := b.cache.Get(b.key(blk))
		if !ok {
			// Evicted between fill and copy; read it directly.
			m, err := b.inner.ReadAt(ctx, dst, intersectStart)
			n += m
			if err != nil && !errors.Is(err, io.EOF) {
				return n, err
			}
			continue
		}
		m, _ := h.ReadAt(dst, intersectStart-blkStart)
		h.Release()
		n += m
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// fillCache loads the missing chunks in [startBlock, endBlock], fetching
// contiguous runs with single backend reads. It returns the fetched chunks so
// the caller does not depend on them surviving eviction.
func (b *CachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) (map[int64][]byte, error) {
	type run struct{ start, count int64 }
	var missing []run

	for blk := startBlock; blk <= endBlock; blk++ {
		if b.cache.Contains(b.key(blk)) {
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == blk {
			missing[n-1].count++
			continue
		}
		missing = append(missing, run{start: blk, count: 1})
	}
	if len(missing) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	fetched := make(map[int64][]byte)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fillConcurrency)
	for _, r := range missing {
		g.Go(func() error {
			byteStart := r.start * b.blockSize
			byteSize := min(r.count*b.blockSize, b.Size()-byteStart)

			buf := make([]byte, byteSize)
			n, err := b.inner.ReadAt(gctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]

			mu.Lock()
			defer mu.Unlock()
			for i := int64(0); i < r.count; i++ {
				lo := i * b.blockSize
				if lo >= int64(len(buf)) {
					break
				}
				chunk := buf[lo:min(lo+b.blockSize, int64(len(buf)))]
				b.cache.Add(b.key(r.start+i), chunk)
				fetched[r.start+i] = chunk
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fetched, nil
}

// ReadRange returns a reader that reads through the cache.
func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	return io.NopCloser(&readAtReader{ctx: ctx, readAt: b.ReadAt, off: off, limit: min(off+length, b.Size())}), nil
}
