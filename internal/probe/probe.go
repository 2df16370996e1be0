// Package probe runs the health probe loop: on a fixed interval, it snapshots
// the pool's backend URLs, probes each sequentially with a bounded-timeout
// GET against the configured health path, and feeds the outcome to the
// health tracker.
package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/NithinKonda/load-balancer/internal/health"
	"github.com/NithinKonda/load-balancer/internal/logging"
	"github.com/NithinKonda/load-balancer/internal/metrics"
	"github.com/NithinKonda/load-balancer/internal/pool"
	"go.uber.org/zap"
)

// Config holds the probe loop's parameters, taken from the health_check{}
// configuration section.
type Config struct {
	Interval    time.Duration
	Timeout     time.Duration
	Path        string
	MaxFailures uint32
}

// Loop drives one health probe cycle per Interval until ctx is canceled.
type Loop struct {
	pool    *pool.Pool
	metrics *metrics.Registry
	cfg     Config
	client  *http.Client
}

// New builds a probe Loop.
func New(p *pool.Pool, m *metrics.Registry, cfg Config) *Loop {
	return &Loop{
		pool:    p,
		metrics: m,
		cfg:     cfg,
		client:  &http.Client{},
	}
}

// Run blocks, probing every Interval, until ctx is canceled. It sleeps
// before the first probe so a just-started pool isn't immediately hammered
// by a probe racing its own listener bind.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.probeAll(ctx)
		}
	}
}

func (l *Loop) probeAll(ctx context.Context) {
	urls := l.pool.ListURLs()
	for _, u := range urls {
		l.probeOne(ctx, u)
	}
}

func (l *Loop) probeOne(ctx context.Context, backendURL string) {
	reqCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, backendURL+l.cfg.Path, nil)
	if err != nil {
		l.fail(backendURL, err)
		return
	}

	start := time.Now()
	resp, err := l.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		l.fail(backendURL, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		l.fail(backendURL, nil)
		return
	}

	l.succeed(backendURL, latency)
}

func (l *Loop) fail(backendURL string, err error) {
	health.MarkUnhealthy(l.pool, backendURL)
	if l.metrics != nil {
		l.metrics.ProbeOutcomes.WithLabelValues(backendURL, "failure").Inc()
	}

	if health.ExceedsMaxFailures(l.pool, backendURL) {
		logging.Error("probe: backend exceeded max_failures", zap.String("backend", backendURL), zap.Error(err))
	} else {
		logging.Warn("probe: backend probe failed", zap.String("backend", backendURL), zap.Error(err))
	}
	l.syncGauges(backendURL)
}

func (l *Loop) succeed(backendURL string, latency time.Duration) {
	health.MarkHealthy(l.pool, backendURL)
	if l.metrics != nil {
		l.metrics.ProbeOutcomes.WithLabelValues(backendURL, "success").Inc()
	}
	logging.Debug("probe: backend healthy", zap.String("backend", backendURL), zap.Duration("latency", latency))
	l.syncGauges(backendURL)
}

func (l *Loop) syncGauges(backendURL string) {
	if l.metrics == nil {
		return
	}
	for _, v := range l.pool.Snapshot() {
		if v.URL != backendURL {
			continue
		}
		healthy := 0.0
		if v.Healthy {
			healthy = 1.0
		}
		l.metrics.BackendHealthy.WithLabelValues(v.URL).Set(healthy)
		l.metrics.BackendFailures.WithLabelValues(v.URL).Set(float64(v.Failures))
		return
	}
}
