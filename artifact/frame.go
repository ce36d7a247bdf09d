package artifact

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/blockcache/internal/hash"
)

const (
	// Magic identifies an artifact frame ("BCAF" little endian).
	Magic uint32 = 0x46414342
	// FrameHeaderSize is the size of the header preceding the payload.
	FrameHeaderSize = 4 + 8 + 8 + hash.KeySize
)

var (
	// ErrBadFrame is returned for values that are not well-formed frames.
	ErrBadFrame = errors.New("artifact: bad frame")
	// ErrHashMismatch is returned when decoded content does not match its hash.
	ErrHashMismatch = errors.New("artifact: content hash mismatch")
)

// FrameHeader describes a framed payload.
type FrameHeader struct {
	// EncodedLen is the length of the payload that follows the header.
	EncodedLen uint64
	// DecodedLen is the length of the content after decoding.
	DecodedLen uint64
	// Hash is the BLAKE2b-160 of the decoded content.
	Hash Hash
}

// Encode writes h to dst, which must be at least FrameHeaderSize bytes.
func (h FrameHeader) Encode(dst []byte) {
	_ = dst[FrameHeaderSize-1]
	binary.LittleEndian.PutUint32(dst[0:], Magic)
	binary.LittleEndian.PutUint64(dst[4:], h.EncodedLen)
	binary.LittleEndian.PutUint64(dst[12:], h.DecodedLen)
	copy(dst[20:], h.Hash[:])
}

// DecodeFrameHeader parses a frame header and checks it against the total
// frame length n.
func DecodeFrameHeader(src []byte, n int) (FrameHeader, error) {
	var h FrameHeader
	if len(src) < FrameHeaderSize {
		return h, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(src))
	}
	if m := binary.LittleEndian.Uint32(src[0:]); m != Magic {
		return h, fmt.Errorf("%w: magic %#08x", ErrBadFrame, m)
	}
	h.EncodedLen = binary.LittleEndian.Uint64(src[4:])
	h.DecodedLen = binary.LittleEndian.Uint64(src[12:])
	copy(h.Hash[:], src[20:FrameHeaderSize])

	if h.EncodedLen != uint64(n-FrameHeaderSize) {
		return h, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrBadFrame, n-FrameHeaderSize, h.EncodedLen)
	}
	return h, nil
}

// Frame encodes content with e and prepends a frame header.
func Frame(e Encoding, content []byte) ([]byte, error) {
	payload, err := e.Encode(content)
	if err != nil {
		return nil, err
	}

	out := make([]byte, FrameHeaderSize+len(payload))
	FrameHeader{
		EncodedLen: uint64(len(payload)),
		DecodedLen: uint64(len(content)),
		Hash:       SumHash(content),
	}.Encode(out)
	copy(out[FrameHeaderSize:], payload)
	return out, nil
}

// Unframe decodes a frame produced by Frame with encoding e and verifies the
// content hash.
func Unframe(e Encoding, frame []byte) ([]byte, FrameHeader, error) {
	h, err := DecodeFrameHeader(frame, len(frame))
	if err != nil {
		return nil, h, err
	}
	if h.DecodedLen > uint64(maxContentSize) {
		return nil, h, fmt.Errorf("%w: decoded length %d", ErrBadFrame, h.DecodedLen)
	}
	content, err := e.Decode(frame[FrameHeaderSize:], int(h.DecodedLen))
	if err != nil {
		return nil, h, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if SumHash(content) != h.Hash {
		return nil, h, ErrHashMismatch
	}
	return content, h, nil
}

// maxContentSize bounds decoded allocations for untrusted frames.
const maxContentSize = 1 << 32
