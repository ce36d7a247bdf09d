package artifact

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Encoding selects how an artifact payload is stored in the cache.
type Encoding uint8

const (
	// Raw stores the content as is.
	Raw Encoding = iota
	// Zstd stores the content compressed with Zstandard.
	Zstd
	// LZ4 stores the content as a single LZ4 block.
	LZ4
)

// ErrUnknownEncoding is returned for encodings other than raw, zstd and lz4.
var ErrUnknownEncoding = errors.New("artifact: unknown encoding")

// errSizeMismatch is returned when a payload decodes to the wrong length.
var errSizeMismatch = errors.New("artifact: decoded size mismatch")

// String returns the key prefix of e.
func (e Encoding) String() string {
	switch e {
	case Raw:
		return "raw"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}

// ParseEncoding parses a key prefix.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "raw":
		return Raw, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Encode returns content in encoding e. Raw returns content itself.
func (e Encoding) Encode(content []byte) ([]byte, error) {
	if len(content) == 0 {
		if e > LZ4 {
			return nil, ErrUnknownEncoding
		}
		return nil, nil
	}

	switch e {
	case Raw:
		return content, nil
	case Zstd:
		enc := getZstdEncoder()
		defer putZstdEncoder(enc)

		return enc.EncodeAll(content, nil), nil
	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(content)))
		n, err := lz4.CompressBlock(content, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, errors.New("artifact: lz4 produced no output")
		}
		return dst[:n], nil
	default:
		return nil, ErrUnknownEncoding
	}
}

// Decode reverses Encode. size is the expected decoded length.
func (e Encoding) Decode(payload []byte, size int) ([]byte, error) {
	if size == 0 {
		if len(payload) != 0 {
			return nil, errSizeMismatch
		}
		return []byte{}, nil
	}

	switch e {
	case Raw:
		if len(payload) != size {
			return nil, errSizeMismatch
		}
		return payload, nil
	case Zstd:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		out, err := dec.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, err
		}
		if len(out) != size {
			return nil, errSizeMismatch
		}
		return out, nil
	case LZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, err
		}
		if n != size {
			return nil, errSizeMismatch
		}
		return out, nil
	default:
		return nil, ErrUnknownEncoding
	}
}
