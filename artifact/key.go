package artifact

import (
	"fmt"
	"strings"

	"github.com/hupe1980/blockcache/internal/hash"
)

// Hash is the BLAKE2b-160 content hash naming an artifact.
type Hash = hash.Key

// SumHash returns the content hash of data.
func SumHash(data []byte) Hash {
	return hash.SumKey(data)
}

// ParseHash parses a 40-character hex content hash.
func ParseHash(s string) (Hash, error) {
	h, err := hash.ParseKey(s)
	if err != nil {
		return h, fmt.Errorf("artifact: invalid hash %q", s)
	}
	return h, nil
}

// Key names one encoding of an artifact in the cache.
type Key struct {
	Encoding Encoding
	Hash     Hash
}

// String returns the cache key "<encoding>:<hex hash>".
func (k Key) String() string {
	return k.Encoding.String() + ":" + k.Hash.String()
}

// ParseKey parses a cache key produced by Key.String.
func ParseKey(s string) (Key, error) {
	prefix, hex, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("artifact: invalid key %q", s)
	}
	enc, err := ParseEncoding(prefix)
	if err != nil {
		return Key{}, err
	}
	h, err := ParseHash(hex)
	if err != nil {
		return Key{}, err
	}
	return Key{Encoding: enc, Hash: h}, nil
}
