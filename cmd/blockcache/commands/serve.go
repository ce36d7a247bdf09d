package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/blockcache"
	"github.com/hupe1980/blockcache/internal/config"
	"github.com/hupe1980/blockcache/internal/server"
	promcollector "github.com/hupe1980/blockcache/metrics/prometheus"
)

const metricsNamespace = "blockcache"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cache over HTTP",
	Long: `Open the on-disk cache and serve it over HTTP until SIGINT or SIGTERM.

Prometheus metrics are exposed at /metrics. When scrub.interval is set the
cache is verified in the background on that period.

Examples:
  blockcache serve --addr :9400
  BLOCKCACHE_SCRUB_INTERVAL=1h blockcache serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if f := cmd.Flags().Lookup("addr"); f.Changed {
			cfg.Server.Addr = f.Value.String()
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ln, err := net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
		}
		return runServer(ctx, cfg, ln)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :9400)")
}

// runServer serves the cache on ln until ctx is done.
func runServer(ctx context.Context, c *config.Config, ln net.Listener) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	rc, err := newController(c)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cache, err := openCache(c,
		blockcache.WithLogger(logger),
		blockcache.WithResourceController(rc),
		blockcache.WithMetricsCollector(promcollector.NewCollector(reg, metricsNamespace)),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Error("close cache", "error", err)
		}
	}()
	reg.MustRegister(
		promcollector.NewStatsCollector(cache, metricsNamespace),
		promcollector.NewResourceCollector(rc, metricsNamespace),
	)

	artifacts, err := openArtifacts(ctx, c, cache, rc, logger)
	if err != nil {
		return err
	}

	metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	srv := &http.Server{
		Handler:           server.New(cache, artifacts, logger, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Background work stops before the cache is closed.
	serveCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	if c.Scrub.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scrubLoop(serveCtx, cache, c.Scrub.Interval)
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ln)
	}()
	logger.Info("server is running", "addr", ln.Addr().String(), "dir", c.Dir, "origin", c.Origin.Type)

	select {
	case err := <-serverDone:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, initiating graceful shutdown")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// scrubLoop scrubs the cache every interval until ctx is done. Scrub logs
// its own report.
func scrubLoop(ctx context.Context, cache *blockcache.Cache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = cache.Scrub(ctx)
		}
	}
}
