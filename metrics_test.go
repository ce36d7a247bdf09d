package blockcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}
	mc.RecordAdd(100, true, 10*time.Nanosecond)
	mc.RecordAdd(0, false, 30*time.Nanosecond)
	mc.RecordGet(true, 5*time.Nanosecond)
	mc.RecordGet(true, 5*time.Nanosecond)
	mc.RecordGet(false, 5*time.Nanosecond)
	mc.RecordEviction(3)
	mc.RecordCorruption()

	s := mc.GetStats()
	assert.Equal(t, int64(2), s.AddCount)
	assert.Equal(t, int64(1), s.AddRejected)
	assert.Equal(t, int64(100), s.AddBytes)
	assert.Equal(t, int64(20), s.AddAvgNanos)
	assert.Equal(t, int64(2), s.GetHits)
	assert.Equal(t, int64(1), s.GetMisses)
	assert.Equal(t, int64(5), s.GetAvgNanos)
	assert.Equal(t, int64(1), s.EvictionRounds)
	assert.Equal(t, int64(3), s.EvictedEntries)
	assert.Equal(t, int64(1), s.CorruptedValues)
	assert.InDelta(t, 2.0/3.0, s.HitRatio(), 1e-9)

	assert.Zero(t, BasicMetricsStats{}.HitRatio())
}

func TestCache_RecordsMetrics(t *testing.T) {
	mc := &BasicMetricsCollector{}
	c := newTestCache(t, 16, WithMetricsCollector(mc))

	c.Add("k", []byte("value"))
	c.Add("empty", nil)
	c.Contains("k")
	c.Contains("missing")

	s := mc.GetStats()
	assert.Equal(t, int64(1), s.AddCount)
	assert.Equal(t, int64(5), s.AddBytes)
	assert.Equal(t, int64(1), s.GetHits)
	assert.Equal(t, int64(1), s.GetMisses)
}
