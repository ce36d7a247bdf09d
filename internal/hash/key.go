package hash

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// KeySize is the length of a content key in bytes.
const KeySize = 20

// Key is a 160-bit BLAKE2b content key.
type Key [KeySize]byte

// NewKey hashes a caller-supplied cache key.
func NewKey(s string) Key {
	return SumKey([]byte(s))
}

// SumKey computes the BLAKE2b-160 of data.
func SumKey(data []byte) Key {
	h, err := blake2b.New(KeySize, nil)
	if err != nil {
		// Only reachable with an invalid size or key length.
		panic(err)
	}
	_, _ = h.Write(data)

	var k Key
	h.Sum(k[:0])
	return k
}

// IsZero reports whether k is the all-zero key that marks a free block.
func (k Key) IsZero() bool {
	return k == Key{}
}

// String returns the lowercase hex encoding of k.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ParseKey decodes a 40-character hex string into a Key.
func ParseKey(s string) (Key, error) {
	var k Key
	if hex.DecodedLen(len(s)) != KeySize {
		return k, hex.InvalidByteError(0)
	}
	_, err := hex.Decode(k[:], []byte(s))
	return k, err
}
