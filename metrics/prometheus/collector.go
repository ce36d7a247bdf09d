package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/blockcache"
)

// Collector implements blockcache.MetricsCollector on Prometheus metrics.
type Collector struct {
	addOperations *prometheus.CounterVec
	addBytes      prometheus.Histogram
	addDuration   prometheus.Histogram
	getOperations *prometheus.CounterVec
	getDuration   prometheus.Histogram
	evictions     prometheus.Counter
	evicted       prometheus.Counter
	corruptions   prometheus.Counter
}

var _ blockcache.MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
// A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	latency := []float64{
		0.000001, // 1us - hits on hot blocks
		0.000005,
		0.00001,
		0.00005,
		0.0001,
		0.0005,
		0.001,
		0.005,
		0.01, // 10ms - eviction under contention
	}

	return &Collector{
		addOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "add_operations_total",
			Help:      "Total number of Add calls by result",
		}, []string{"result"}), // "stored", "rejected"
		addBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "add_bytes",
			Help:      "Distribution of value sizes passed to Add",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8), // 1KB .. 16MB
		}),
		addDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "add_duration_seconds",
			Help:      "Duration of Add calls",
			Buckets:   latency,
		}),
		getOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "get_operations_total",
			Help:      "Total number of lookups by status",
		}, []string{"status"}), // "hit", "miss"
		getDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "get_duration_seconds",
			Help:      "Duration of lookups including verification",
			Buckets:   latency,
		}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eviction_rounds_total",
			Help:      "Total number of eviction rounds",
		}),
		evicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_entries_total",
			Help:      "Total number of entries removed by eviction",
		}),
		corruptions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupted_values_total",
			Help:      "Total number of values that failed verification",
		}),
	}
}

// RecordAdd implements blockcache.MetricsCollector.
func (c *Collector) RecordAdd(bytes int, stored bool, duration time.Duration) {
	result := "stored"
	if !stored {
		result = "rejected"
	}
	c.addOperations.WithLabelValues(result).Inc()
	c.addBytes.Observe(float64(bytes))
	c.addDuration.Observe(duration.Seconds())
}

// RecordGet implements blockcache.MetricsCollector.
func (c *Collector) RecordGet(hit bool, duration time.Duration) {
	status := "hit"
	if !hit {
		status = "miss"
	}
	c.getOperations.WithLabelValues(status).Inc()
	c.getDuration.Observe(duration.Seconds())
}

// RecordEviction implements blockcache.MetricsCollector.
func (c *Collector) RecordEviction(entries int) {
	c.evictions.Inc()
	c.evicted.Add(float64(entries))
}

// RecordCorruption implements blockcache.MetricsCollector.
func (c *Collector) RecordCorruption() {
	c.corruptions.Inc()
}
