// Package artifact serves content-addressed build artifacts through a block cache.
//
// Artifacts are named by the BLAKE2b-160 of their content. Each artifact can
// be cached in several encodings under keys of the form "<encoding>:<hex hash>":
//
//	raw:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b
//	zstd:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b
//	lz4:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b
//
// The cached value is a 40-byte frame header followed by the encoded payload:
//
//	┌────────┬─────────────┬───────────────┬───────────────────┬─────────┐
//	│ magic  │ encoded len │ decoded len   │ BLAKE2b-160       │ payload │
//	│ u32 LE │ u64 LE      │ u64 LE        │ of decoded bytes  │         │
//	└────────┴─────────────┴───────────────┴───────────────────┴─────────┘
//
// A Store reads through to a blob origin on a miss, so a frame can be
// streamed to clients straight from the cache mapping.
package artifact
