// Package mmap provides memory-mapped storage for cache partitions.
//
// # Overview
//
// Partitions live either in anonymous mappings (ephemeral caches) or in
// shared file mappings (caches that survive a restart). Both are obtained
// outside the Go heap, so multi-gigabyte caches add no GC pressure.
//
// # Usage
//
//	m, err := mmap.OpenFile("partition-0000.blk", size)
//	if err != nil { ... }
//	defer m.Close()
//
//	// Split the mapping into fixed views
//	headers, _ := m.Region(0, headerBytes)
//	blocks, _ := m.Region(headerBytes, dataBytes)
//
//	// Provide kernel hints for access patterns
//	m.Advise(mmap.AccessRandom)
//
//	// Flush dirty pages
//	m.Sync()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2), msync(2) and madvise(2)
//   - Windows: CreateFileMapping/MapViewOfFile, FlushViewOfFile and VirtualAlloc (madvise is a no-op)
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent access as long as callers
// coordinate writes to overlapping bytes. Close is idempotent, but callers
// must ensure no goroutine touches Bytes() after Close() returns.
package mmap
