// Package testutil provides testing utilities for blockcache.
//
// This package is intended for use in tests and benchmarks only.
// It provides a deterministic, thread-safe RNG for generating payloads
// and skewed access patterns.
//
//	rng := testutil.NewRNG(42)
//	values := rng.Payloads(100, 1, 64<<10)
//	hot := rng.ZipfSequence(10000, len(values), 1.2)
package testutil
