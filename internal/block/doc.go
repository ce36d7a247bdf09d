// Package block defines the on-media block header.
//
// Every data block in a partition has a 32-byte header in the partition's
// header array:
//
//	Offset  Size  Field
//	0       20    content key (BLAKE2b-160), all zero when the block is free
//	20      4     packed word: index<<24 | count<<16 | (length-1)
//	24      8     xxHash64 of the block payload
//
// All integers are little endian. Because count is one byte a value spans
// at most MaxChain blocks, and because length-1 is sixteen bits a block holds
// at most MaxBlockSize bytes.
package block
