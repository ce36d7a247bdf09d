package blockcache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// see package metrics/prometheus for a ready-made adapter.
//
// Implementations are called on the hot path and must be safe for
// concurrent use.
type MetricsCollector interface {
	// RecordAdd is called after each Add. stored is the value Add returned.
	RecordAdd(bytes int, stored bool, duration time.Duration)

	// RecordGet is called after each Get (and Contains).
	RecordGet(hit bool, duration time.Duration)

	// RecordEviction is called after each eviction round with the number of
	// entries removed.
	RecordEviction(entries int)

	// RecordCorruption is called whenever a value fails verification.
	RecordCorruption()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(int, bool, time.Duration) {}
func (NoopMetricsCollector) RecordGet(bool, time.Duration)      {}
func (NoopMetricsCollector) RecordEviction(int)                 {}
func (NoopMetricsCollector) RecordCorruption()                  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount        atomic.Int64
	AddRejected     atomic.Int64
	AddBytes        atomic.Int64
	AddTotalNanos   atomic.Int64
	GetHits         atomic.Int64
	GetMisses       atomic.Int64
	GetTotalNanos   atomic.Int64
	EvictionRounds  atomic.Int64
	EvictedEntries  atomic.Int64
	CorruptedValues atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(bytes int, stored bool, duration time.Duration) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if !stored {
		b.AddRejected.Add(1)
		return
	}
	b.AddBytes.Add(int64(bytes))
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(hit bool, duration time.Duration) {
	b.GetTotalNanos.Add(duration.Nanoseconds())
	if hit {
		b.GetHits.Add(1)
	} else {
		b.GetMisses.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(entries int) {
	b.EvictionRounds.Add(1)
	b.EvictedEntries.Add(int64(entries))
}

// RecordCorruption implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCorruption() {
	b.CorruptedValues.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	hits := b.GetHits.Load()
	misses := b.GetMisses.Load()
	return BasicMetricsStats{
		AddCount:        b.AddCount.Load(),
		AddRejected:     b.AddRejected.Load(),
		AddBytes:        b.AddBytes.Load(),
		AddAvgNanos:     avg(b.AddTotalNanos.Load(), b.AddCount.Load()),
		GetHits:         hits,
		GetMisses:       misses,
		GetAvgNanos:     avg(b.GetTotalNanos.Load(), hits+misses),
		EvictionRounds:  b.EvictionRounds.Load(),
		EvictedEntries:  b.EvictedEntries.Load(),
		CorruptedValues: b.CorruptedValues.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount        int64
	AddRejected     int64
	AddBytes        int64
	AddAvgNanos     int64
	GetHits         int64
	GetMisses       int64
	GetAvgNanos     int64
	EvictionRounds  int64
	EvictedEntries  int64
	CorruptedValues int64
}

// HitRatio returns the fraction of Get calls that hit, or 0 before any Get.
func (s BasicMetricsStats) HitRatio() float64 {
	total := s.GetHits + s.GetMisses
	if total == 0 {
		return 0
	}
	return float64(s.GetHits) / float64(total)
}
