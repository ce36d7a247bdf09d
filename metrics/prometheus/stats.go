package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/blockcache"
)

// StatsCollector exposes a cache's occupancy as gauges at scrape time.
type StatsCollector struct {
	cache *blockcache.Cache

	items          *prometheus.Desc
	totalBlocks    *prometheus.Desc
	freeBlocks     *prometheus.Desc
	usedBytes      *prometheus.Desc
	allocatedBytes *prometheus.Desc
	capacityBytes  *prometheus.Desc
}

var _ prometheus.Collector = (*StatsCollector)(nil)

// NewStatsCollector creates a StatsCollector for cache.
func NewStatsCollector(cache *blockcache.Cache, namespace string) *StatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &StatsCollector{
		cache:          cache,
		items:          desc("items", "Number of cached values"),
		totalBlocks:    desc("blocks", "Total number of blocks"),
		freeBlocks:     desc("free_blocks", "Number of blocks not holding data"),
		usedBytes:      desc("used_bytes", "Payload bytes of cached values"),
		allocatedBytes: desc("allocated_bytes", "Bytes of blocks holding data"),
		capacityBytes:  desc("capacity_bytes", "Total block capacity in bytes"),
	}
}

// Describe implements prometheus.Collector.
func (s *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- s.items
	ch <- s.totalBlocks
	ch <- s.freeBlocks
	ch <- s.usedBytes
	ch <- s.allocatedBytes
	ch <- s.capacityBytes
}

// Collect implements prometheus.Collector.
func (s *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	st := s.cache.Stats()
	ch <- prometheus.MustNewConstMetric(s.items, prometheus.GaugeValue, float64(st.Items))
	ch <- prometheus.MustNewConstMetric(s.totalBlocks, prometheus.GaugeValue, float64(st.TotalBlocks))
	ch <- prometheus.MustNewConstMetric(s.freeBlocks, prometheus.GaugeValue, float64(st.FreeBlocks))
	ch <- prometheus.MustNewConstMetric(s.usedBytes, prometheus.GaugeValue, float64(st.UsedBytes))
	ch <- prometheus.MustNewConstMetric(s.allocatedBytes, prometheus.GaugeValue, float64(st.AllocatedBytes))
	ch <- prometheus.MustNewConstMetric(s.capacityBytes, prometheus.GaugeValue, float64(st.TotalBytes))
}
