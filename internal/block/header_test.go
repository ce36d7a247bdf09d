package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blockcache/internal/hash"
)

func TestHeader_EncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		hdr  Header
	}{
		{"single", Header{Key: hash.NewKey("a"), Index: 0, Count: 1, Length: 1, Digest: 42}},
		{"max length", Header{Key: hash.NewKey("b"), Index: 3, Count: 4, Length: MaxBlockSize, Digest: ^uint64(0)}},
		{"max chain", Header{Key: hash.NewKey("c"), Index: MaxChain - 1, Count: MaxChain, Length: 16384, Digest: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, HeaderSize)
			tt.hdr.Encode(buf)

			got, err := Decode(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.hdr, got)
			assert.NoError(t, got.Validate())
			assert.Equal(t, tt.hdr.Key, DecodeKey(buf))
		})
	}
}

func TestHeader_Layout(t *testing.T) {
	h := Header{Index: 2, Count: 5, Length: 0x100, Digest: 0x0102030405060708}
	h.Key[0] = 0xAA
	buf := make([]byte, HeaderSize)
	h.Encode(buf)

	assert.Equal(t, byte(0xAA), buf[0])
	// packed word 0x0205_00ff
	assert.Equal(t, []byte{0xff, 0x00, 0x05, 0x02}, buf[20:24])
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, buf[24:32])
}

func TestHeader_Validate(t *testing.T) {
	bad := []Header{
		{Index: 0, Count: 0, Length: 1},
		{Index: 2, Count: 2, Length: 1},
		{Index: 0, Count: 1, Length: 0},
		{Index: 0, Count: 1, Length: MaxBlockSize + 1},
	}
	for _, h := range bad {
		assert.ErrorIs(t, h.Validate(), ErrInvalidHeader)
	}
}

func TestDecode_ShortBuffer(t *testing.T) {
	_, err := Decode(make([]byte, HeaderSize-1))
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestClear(t *testing.T) {
	buf := make([]byte, HeaderSize)
	h := Header{Key: hash.NewKey("x"), Count: 1, Length: 9}
	h.Encode(buf)
	Clear(buf)
	assert.True(t, DecodeKey(buf).IsZero())
}

func TestBlocksFor(t *testing.T) {
	assert.Equal(t, 0, BlocksFor(0, 4096))
	assert.Equal(t, 1, BlocksFor(1, 4096))
	assert.Equal(t, 1, BlocksFor(4096, 4096))
	assert.Equal(t, 2, BlocksFor(4097, 4096))
	assert.Equal(t, 4, BlocksFor(4096*7/2, 4096))
}
