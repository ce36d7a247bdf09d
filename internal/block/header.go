package block

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/blockcache/internal/hash"
)

const (
	// HeaderSize is the encoded size of a Header.
	HeaderSize = 32
	// MaxBlockSize is the largest payload a single block can describe.
	MaxBlockSize = 1 << 16
	// MaxChain is the longest chain of blocks a single value may occupy.
	MaxChain = 255
)

var (
	// ErrShortBuffer is returned when decoding from fewer than HeaderSize bytes.
	ErrShortBuffer = errors.New("block: short header buffer")
	// ErrInvalidHeader is returned when header fields are out of range.
	ErrInvalidHeader = errors.New("block: invalid header")
)

// Header describes one block of a chained value.
type Header struct {
	Key    hash.Key
	Index  uint8  // position in the chain
	Count  uint8  // number of blocks in the chain
	Length uint32 // payload bytes in this block, 1..MaxBlockSize
	Digest uint64 // xxHash64 of the payload
}

// Validate checks that the chain position and length are in range.
func (h *Header) Validate() error {
	if h.Count == 0 || h.Index >= h.Count {
		return fmt.Errorf("%w: index %d of %d", ErrInvalidHeader, h.Index, h.Count)
	}
	if h.Length == 0 || h.Length > MaxBlockSize {
		return fmt.Errorf("%w: length %d", ErrInvalidHeader, h.Length)
	}
	return nil
}

// Encode writes h into dst, which must be at least HeaderSize bytes.
func (h *Header) Encode(dst []byte) {
	_ = dst[HeaderSize-1]
	copy(dst[:hash.KeySize], h.Key[:])
	packed := uint32(h.Index)<<24 | uint32(h.Count)<<16 | (h.Length-1)&0xffff
	binary.LittleEndian.PutUint32(dst[20:24], packed)
	binary.LittleEndian.PutUint64(dst[24:32], h.Digest)
}

// Decode reads a header from src. A free header decodes to a zero Key and
// should not be validated.
func Decode(src []byte) (Header, error) {
	var h Header
	if len(src) < HeaderSize {
		return h, ErrShortBuffer
	}
	copy(h.Key[:], src[:hash.KeySize])
	packed := binary.LittleEndian.Uint32(src[20:24])
	h.Index = uint8(packed >> 24)
	h.Count = uint8(packed >> 16)
	h.Length = packed&0xffff + 1
	h.Digest = binary.LittleEndian.Uint64(src[24:32])
	return h, nil
}

// DecodeKey returns only the key of an encoded header.
func DecodeKey(src []byte) hash.Key {
	var k hash.Key
	copy(k[:], src[:hash.KeySize])
	return k
}

// Clear zeroes an encoded header, marking the block free.
func Clear(dst []byte) {
	clear(dst[:HeaderSize])
}

// BlocksFor returns how many blocks of blockSize are needed for n bytes.
func BlocksFor(n, blockSize int) int {
	return (n + blockSize - 1) / blockSize
}
