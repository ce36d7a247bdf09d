// Package hash provides the hash functions that identify and protect cached data.
//
// # Content keys
//
// Cache keys are reduced to a 160-bit BLAKE2b digest (Key). Two strings with
// the same Key address the same entry, so the key is stored in every block
// header instead of the original string.
//
//	k := hash.NewKey("zstd:7d9f...")
//
// # Payload digests
//
// Every block header carries the xxHash64 of its payload. Readers recompute
// it on each access to detect torn writes and media corruption:
//
//	if hash.Digest(payload) != hdr.Digest { ... }
//
// # CRC32-Castagnoli
//
// CRC32C is kept for object store integrity checks, where S3 accepts it as a
// native checksum algorithm.
package hash
