package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	a := NewKey("artifact-a")
	b := NewKey("artifact-b")

	assert.Equal(t, a, NewKey("artifact-a"))
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
	assert.True(t, Key{}.IsZero())
	assert.Len(t, a.String(), 2*KeySize)
}

func TestParseKey(t *testing.T) {
	k := SumKey([]byte("hello"))

	parsed, err := ParseKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	_, err = ParseKey("abc")
	assert.Error(t, err)

	_, err = ParseKey("zz" + k.String()[2:])
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	data := []byte("block payload")
	assert.Equal(t, Digest(data), Digest([]byte("block payload")))
	assert.NotEqual(t, Digest(data), Digest([]byte("block pavload")))
	assert.Equal(t, uint64(0xef46db3751d8e999), Digest(nil))
}

func TestCRC32C(t *testing.T) {
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
	// base64 of 0xe3 0x06 0x92 0x83
	assert.Equal(t, "4waSgw==", CRC32CBase64([]byte("123456789")))
}
