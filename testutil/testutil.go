package testutil

import (
	"fmt"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	_, _ = r.rand.Read(b)
	return b
}

// Payloads generates count random values with lengths in [minLen, maxLen].
// Uses a single backing array for efficiency.
func (r *RNG) Payloads(count, minLen, maxLen int) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	lens := make([]int, count)
	total := 0
	for i := range lens {
		lens[i] = minLen + r.rand.Intn(maxLen-minLen+1)
		total += lens[i]
	}

	data := make([]byte, total)
	_, _ = r.rand.Read(data)

	out := make([][]byte, count)
	off := 0
	for i, n := range lens {
		out[i] = data[off : off+n : off+n]
		off += n
	}
	return out
}

// Keys returns count distinct keys with the given prefix.
func Keys(prefix string, count int) []string {
	keys := make([]string, count)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%08d", prefix, i)
	}
	return keys
}

// Zipf returns a Zipf-distributed index in [0, n) with skew s > 1.
// Small indices are the hot keys.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}
	if s <= 1 {
		return r.rand.Intn(n)
	}
	z := rand.NewZipf(r.rand, s, 1, uint64(n-1))
	return int(z.Uint64())
}

// ZipfSequence returns length indices in [0, n) drawn from one Zipf distribution.
func (r *RNG) ZipfSequence(length, n int, s float64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, length)
	if n <= 1 {
		return out
	}
	if s <= 1 {
		for i := range out {
			out[i] = r.rand.Intn(n)
		}
		return out
	}
	z := rand.NewZipf(r.rand, s, 1, uint64(n-1))
	for i := range out {
		out[i] = int(z.Uint64())
	}
	return out
}
