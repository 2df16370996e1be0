// Command gateway runs the reverse-proxy load balancer: it loads
// configuration, starts the traffic listener, the metrics listener, and the
// health probe loop, and shuts all three down together on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NithinKonda/load-balancer/internal/config"
	"github.com/NithinKonda/load-balancer/internal/dispatcher"
	"github.com/NithinKonda/load-balancer/internal/forwarder"
	"github.com/NithinKonda/load-balancer/internal/listener"
	"github.com/NithinKonda/load-balancer/internal/logging"
	"github.com/NithinKonda/load-balancer/internal/metrics"
	"github.com/NithinKonda/load-balancer/internal/pool"
	"github.com/NithinKonda/load-balancer/internal/probe"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK          = 0
	exitConfigError = 2
	exitBindError   = 3
)

func main() {
	configPath := flag.String("config", "configs/gateway.json", "path to configuration file")
	validateOnly := flag.Bool("validate", false, "validate configuration and exit")
	flag.Parse()

	loader := config.NewLoader()
	cfg, err := loader.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(exitConfigError)
	}

	if *validateOnly {
		fmt.Println("configuration is valid")
		os.Exit(exitOK)
	}

	logger, closer, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging init error: %v\n", err)
		os.Exit(exitConfigError)
	}
	logging.SetGlobal(logger)
	defer logging.Sync()
	if closer != nil {
		defer closer.Close()
	}

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	specs := make([]pool.BackendSpec, len(cfg.Backends))
	for i, b := range cfg.Backends {
		specs[i] = pool.BackendSpec{URL: b.URL, Weight: b.Weight}
	}

	strategy, err := pool.ParseStrategy(cfg.Strategy)
	if err != nil {
		logging.Error("config error", zap.Error(err))
		return exitConfigError
	}

	sessionTimeout := time.Duration(cfg.Session.TimeoutSeconds) * time.Second
	p := pool.New(specs, strategy, sessionTimeout, cfg.HealthCheck.MaxFailures)

	registry := metrics.New()
	fwd := forwarder.New(&http.Client{})
	handler := dispatcher.New(p, fwd, registry)

	trafficListener := listener.New(listener.Config{
		Address:           cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	})
	metricsListener := listener.New(listener.Config{
		Address: cfg.MetricsListenAddress,
		Handler: registry.Handler(),
	})

	probeLoop := probe.New(p, registry, probe.Config{
		Interval:    time.Duration(cfg.HealthCheck.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.HealthCheck.TimeoutSeconds) * time.Second,
		Path:        cfg.HealthCheck.Path,
		MaxFailures: cfg.HealthCheck.MaxFailures,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if err := trafficListener.Start(gctx); err != nil {
		logging.Error("bind error", zap.String("listener", "traffic"), zap.Error(err))
		return exitBindError
	}
	if err := metricsListener.Start(gctx); err != nil {
		logging.Error("bind error", zap.String("listener", "metrics"), zap.Error(err))
		return exitBindError
	}

	g.Go(func() error { return probeLoop.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = trafficListener.Stop(shutdownCtx)
		_ = metricsListener.Stop(shutdownCtx)
		return nil
	})

	logging.Info("gateway started",
		zap.String("listen_address", cfg.ListenAddress),
		zap.String("metrics_listen_address", cfg.MetricsListenAddress),
		zap.String("strategy", strategy.String()),
		zap.Int("backends", len(specs)))

	if err := g.Wait(); err != nil {
		logging.Error("gateway stopped with error", zap.Error(err))
		return exitBindError
	}
	return exitOK
}
