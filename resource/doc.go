// Package resource implements the Controller for limits shared between caches.
//
// The Controller manages three resource types:
//
//   - Memory: reservations for in-memory partitions (non-blocking, fail-fast)
//   - Concurrency: slots for background jobs such as scrubs
//   - IO: a token bucket pacing background verification and origin fills
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Memory Limit   │  Background     │  IO Rate Limiter        │
//	│  (fail-fast)    │  Workers (sem)  │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireBack-   │  AcquireIO              │
//	│  ReleaseMemory  │  ground         │  RateLimitedReader      │
//	│  MemoryUsage    │  ReleaseBack-   │                         │
//	│                 │  ground         │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory Management
//
// A weighted semaphore enforces the hard limit and an atomic counter tracks
// usage. AcquireMemory never blocks:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 8 << 30,
//	})
//
//	if err := rc.AcquireMemory(partitionSize); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(partitionSize)
//
// # IO Rate Limiting
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 100 << 20,
//	})
//
//	if err := rc.AcquireIO(ctx, blockSize); err != nil {
//	    return err
//	}
//
// Usage reports all three for metrics.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
