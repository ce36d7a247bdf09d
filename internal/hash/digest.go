package hash

import "github.com/cespare/xxhash/v2"

// Digest computes the 64-bit xxHash of a block payload.
func Digest(data []byte) uint64 {
	return xxhash.Sum64(data)
}
