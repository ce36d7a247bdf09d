// Package blockcache provides a fixed-capacity block cache for build artifacts.
//
// Values are split into fixed-size blocks stored in memory-mapped partitions.
// The cache allocates its own blocks, evicts by sampled LRU, arbitrates
// readers and writers without blocking, and verifies every block on read.
//
// # Quick Start
//
// In memory:
//
//	cache, _ := blockcache.NewInMemory(4)
//	defer cache.Close()
//
// On disk (entries survive a restart):
//
//	cache, _ := blockcache.NewOnDisk("/var/cache/build", 16,
//	    blockcache.WithBlockSize(64<<10),
//	    blockcache.WithLogger(blockcache.NewJSONLogger(slog.LevelInfo)),
//	)
//
// # Reading and Writing
//
//	cache.Add("zstd:9f86d0...", framed)
//
//	h, ok := cache.Get("zstd:9f86d0...")
//	if ok {
//	    defer h.Release()
//	    h.WriteTo(conn) // zero-copy from the mapping
//	}
//
// The first writer of a key wins. Add returns true when the key ends up
// cached, whether or not this call stored it.
//
// # Layout
//
// Each partition holds a page-aligned array of 32-byte block headers
// followed by the block payloads:
//
//	┌──────────────────────────┬───────────────────────────────────────┐
//	│  headers (N × 32 bytes)  │  blocks (N × BlockSize bytes)         │
//	└──────────────────────────┴───────────────────────────────────────┘
//
// A header carries the BLAKE2b-160 of the key, the block's position in its
// chain, its payload length and the xxHash64 of its payload.
//
// # Concurrency
//
// Every entry has a reader counter that is either a reader count or -1 for
// an exclusive deleter. Get takes a shared lock or misses; Delete and
// eviction take the exclusive lock or skip the entry. Nothing in the hot
// path waits on another goroutine.
//
// # Eviction
//
// Once every block has been handed out, allocation pulls from a free queue.
// When that is empty the cache samples random blocks (10 by default), ranks
// their owners by last access and removes up to 4 of the oldest that are not
// in use.
//
// # Integrity
//
// Get recomputes every block digest. A corrupt value is removed, logged at
// warn level and reported as a miss. Scrub does the same for all values in
// the background.
package blockcache
