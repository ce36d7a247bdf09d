package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/blockcache/resource"
)

// ResourceCollector exposes a resource.Controller's usage at scrape time.
type ResourceCollector struct {
	rc *resource.Controller

	memReserved *prometheus.Desc
	memLimit    *prometheus.Desc
	bgBusy      *prometheus.Desc
	bgSlots     *prometheus.Desc
	ioBytes     *prometheus.Desc
}

var _ prometheus.Collector = (*ResourceCollector)(nil)

// NewResourceCollector creates a ResourceCollector for rc.
func NewResourceCollector(rc *resource.Controller, namespace string) *ResourceCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "resource", name), help, nil, nil)
	}
	return &ResourceCollector{
		rc:          rc,
		memReserved: desc("memory_reserved_bytes", "Memory reserved by in-memory partitions"),
		memLimit:    desc("memory_limit_bytes", "Memory limit, 0 when unlimited"),
		bgBusy:      desc("background_busy", "Background slots in use"),
		bgSlots:     desc("background_slots", "Background slots available"),
		ioBytes:     desc("io_bytes_total", "Bytes charged against the IO budget"),
	}
}

// Describe implements prometheus.Collector.
func (r *ResourceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- r.memReserved
	ch <- r.memLimit
	ch <- r.bgBusy
	ch <- r.bgSlots
	ch <- r.ioBytes
}

// Collect implements prometheus.Collector.
func (r *ResourceCollector) Collect(ch chan<- prometheus.Metric) {
	u := r.rc.Usage()
	ch <- prometheus.MustNewConstMetric(r.memReserved, prometheus.GaugeValue, float64(u.MemoryReserved))
	ch <- prometheus.MustNewConstMetric(r.memLimit, prometheus.GaugeValue, float64(u.MemoryLimit))
	ch <- prometheus.MustNewConstMetric(r.bgBusy, prometheus.GaugeValue, float64(u.BackgroundBusy))
	ch <- prometheus.MustNewConstMetric(r.bgSlots, prometheus.GaugeValue, float64(u.BackgroundSlots))
	ch <- prometheus.MustNewConstMetric(r.ioBytes, prometheus.CounterValue, float64(u.IOBytes))
}
