package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG_Deterministic(t *testing.T) {
	a := NewRNG(7)
	b := NewRNG(7)
	assert.Equal(t, a.Bytes(32), b.Bytes(32))
	assert.Equal(t, int64(7), a.Seed())

	first := a.Uint64()
	a.Reset()
	_ = a.Bytes(32)
	assert.Equal(t, first, a.Uint64())
}

func TestRNG_Payloads(t *testing.T) {
	rng := NewRNG(1)
	values := rng.Payloads(50, 10, 20)
	require.Len(t, values, 50)
	for _, v := range values {
		assert.GreaterOrEqual(t, len(v), 10)
		assert.LessOrEqual(t, len(v), 20)
		assert.Equal(t, len(v), cap(v))
	}
}

func TestRNG_Zipf(t *testing.T) {
	rng := NewRNG(3)
	counts := make([]int, 10)
	for _, i := range rng.ZipfSequence(5000, 10, 1.5) {
		require.GreaterOrEqual(t, i, 0)
		require.Less(t, i, 10)
		counts[i]++
	}
	assert.Greater(t, counts[0], counts[9])

	assert.Equal(t, 0, rng.Zipf(1, 2))
	assert.Less(t, rng.Zipf(5, 0.5), 5)
}

func TestKeysAndHitRate(t *testing.T) {
	keys := Keys("k", 3)
	assert.Equal(t, []string{"k-00000000", "k-00000001", "k-00000002"}, keys)

	assert.InDelta(t, 0.75, HitRate(3, 1), 1e-9)
	assert.True(t, math.IsNaN(HitRate(0, 0)))
}
