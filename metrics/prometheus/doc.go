// Package prometheus exports block cache metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	cache, _ := blockcache.NewOnDisk(dir, 16,
//	    blockcache.WithMetricsCollector(promcache.NewCollector(reg, "blockcache")),
//	)
//	reg.MustRegister(
//	    promcache.NewStatsCollector(cache, "blockcache"),
//	    promcache.NewResourceCollector(rc, "blockcache"),
//	)
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prometheus
