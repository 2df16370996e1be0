// Package health implements the two state-transition rules that drive a
// backend between Healthy and Unhealthy(failures). Both operations are
// idempotent with respect to the final state they imply, and both are
// no-ops against a backend that isn't in the pool.
package health

import "github.com/NithinKonda/load-balancer/internal/pool"

// MarkUnhealthy transitions Healthy -> Unhealthy(1), or Unhealthy(n) ->
// Unhealthy(n+1). Failures are surfaced here by both the forwarder (on
// transport error) and the probe loop (on transport error or non-2xx).
func MarkUnhealthy(p *pool.Pool, url string) {
	p.WithLock(func(s *pool.State) {
		b := s.Find(url)
		if b == nil {
			return
		}
		if b.Health.Healthy {
			b.Health.Healthy = false
			b.Health.Failures = 1
			return
		}
		b.Health.Failures++
	})
}

// MarkHealthy transitions any Unhealthy(n) straight to Healthy in one step;
// Healthy stays Healthy. current_weight is never reset by this transition,
// so a recovered backend resumes smooth-WRR accumulation where it left off.
func MarkHealthy(p *pool.Pool, url string) {
	p.WithLock(func(s *pool.State) {
		b := s.Find(url)
		if b == nil {
			return
		}
		if !b.Health.Healthy {
			b.Health.Healthy = true
			b.Health.Failures = 0
		}
	})
}

// ExceedsMaxFailures reports whether an Unhealthy backend's failure count
// has crossed the configured threshold. This does not gate selection — the
// selector already excludes every Unhealthy backend regardless of failure
// count (spec.md §4.2) — it only distinguishes a "merely down" backend from
// one severe enough to warrant escalated logging and a distinct metrics
// state. See SPEC_FULL.md §4.3 for the reasoning behind this choice.
func ExceedsMaxFailures(p *pool.Pool, url string) bool {
	var exceeds bool
	p.WithLock(func(s *pool.State) {
		b := s.Find(url)
		if b == nil || b.Health.Healthy {
			return
		}
		exceeds = b.Health.Failures >= s.MaxFailures && s.MaxFailures > 0
	})
	return exceeds
}
