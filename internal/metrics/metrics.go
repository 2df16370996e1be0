// Package metrics exposes the gateway's Prometheus registry: selection
// outcomes, forwarded-request outcomes, probe outcomes, and per-backend
// health gauges. It is served on its own listener, independent of traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns every metric the gateway records. All metrics are
// registered against a private registry rather than the global default one,
// so multiple Registry instances (as in tests) never collide.
type Registry struct {
	reg *prometheus.Registry

	Selections        *prometheus.CounterVec
	ForwardedRequests *prometheus.CounterVec
	ForwardDuration   *prometheus.HistogramVec
	ProbeOutcomes     *prometheus.CounterVec
	BackendHealthy    *prometheus.GaugeVec
	BackendFailures   *prometheus.GaugeVec
}

// New builds a Registry with all metrics registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Registry{
		reg: reg,
		Selections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadbalancer",
			Name:      "selections_total",
			Help:      "Backend selections by policy and outcome.",
		}, []string{"policy", "outcome"}),
		ForwardedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadbalancer",
			Name:      "forwarded_requests_total",
			Help:      "Forwarded requests by backend and status class.",
		}, []string{"backend", "status_class"}),
		ForwardDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loadbalancer",
			Name:      "forward_duration_seconds",
			Help:      "Latency of forwarded requests by backend.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		ProbeOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadbalancer",
			Name:      "probe_outcomes_total",
			Help:      "Health probe outcomes by backend and result.",
		}, []string{"backend", "result"}),
		BackendHealthy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "loadbalancer",
			Name:      "backend_healthy",
			Help:      "1 if the backend is currently Healthy, 0 otherwise.",
		}, []string{"backend"}),
		BackendFailures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "loadbalancer",
			Name:      "backend_consecutive_failures",
			Help:      "Current consecutive failure count for the backend.",
		}, []string{"backend"}),
	}
	return r
}

// Handler returns the HTTP handler that serves this registry's metrics in
// the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
