package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	promexporter "github.com/blkio/bcache/exporter/prometheus"
	"github.com/blkio/bcache/internal/stress"
)

func main() {
	var (
		configPath string
		workers    int
		ops        int
		hasher     string
		metrics    string
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.IntVar(&workers, "workers", 0, "Number of concurrent workers, overrides the config")
	flag.IntVar(&ops, "ops", 0, "Total number of operations, overrides the config")
	flag.StringVar(&hasher, "hasher", "", "Hasher name (packed, xxh3, maphash), overrides the config")
	flag.StringVar(&metrics, "metrics", "", "Address to serve Prometheus metrics on, overrides the config")
	flag.Parse()

	cfg := stress.Default()
	if configPath != "" {
		c, err := stress.Load(configPath)
		if err != nil {
			log.Fatal(fmt.Errorf("load config: %w", err))
		}
		cfg = c
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if ops > 0 {
		cfg.Ops = ops
	}
	if hasher != "" {
		cfg.Hasher = hasher
	}
	if metrics != "" {
		cfg.MetricsAddr = metrics
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg stress.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	r, err := stress.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.Error("close device", slog.Any("err", err))
		}
	}()

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(promexporter.NewCollector("bcache", "stress", r.Cache()))

		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("serve metrics", slog.Any("err", err))
			}
		}()
		defer srv.Close()
	}

	res, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("stress cache: %w", err)
	}

	log.Printf("%d operations verified, %d blocks checksummed", res.Ops, r.Checksums())
	if err := stress.Report(os.Stdout, res); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}
