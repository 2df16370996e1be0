// Package pool owns the shared, mutable backend-selection state: the
// ordered backend list, per-backend health and weight accumulators, and the
// sticky-session table. Everything that touches this state — the selector,
// the health tracker, and the admin control surface — does so through
// Pool.WithLock, so the whole engine is protected by a single mutex, per the
// concurrency discipline the engine requires.
package pool

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Strategy selects which of the three selection policies is active.
type Strategy int

const (
	RoundRobin Strategy = iota
	Weighted
	Sticky
)

func (s Strategy) String() string {
	switch s {
	case RoundRobin:
		return "roundrobin"
	case Weighted:
		return "weighted"
	case Sticky:
		return "sticky"
	default:
		return "unknown"
	}
}

// ParseStrategy parses the admin/config string form of a strategy.
func ParseStrategy(raw string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "roundrobin", "round_robin", "round-robin":
		return RoundRobin, nil
	case "weighted", "weightedroundrobin", "weighted_round_robin":
		return Weighted, nil
	case "sticky", "stickysession", "sticky_session":
		return Sticky, nil
	default:
		return RoundRobin, fmt.Errorf("unknown strategy %q", raw)
	}
}

// HealthState is the tagged-variant health of a backend. Failures is only
// meaningful (and always >= 1) when Healthy is false.
type HealthState struct {
	Healthy  bool
	Failures uint32
}

// Backend is one upstream origin in the pool. URL is its identity and is
// unique across the pool for the lifetime of the process.
type Backend struct {
	URL           string
	Weight        uint32
	Health        HealthState
	CurrentWeight int
}

// SessionEntry pins a client identity to a previously chosen backend.
type SessionEntry struct {
	BackendURL string
	LastSeen   time.Time
}

// BackendSpec is the construction-time description of a backend, taken
// directly from configuration.
type BackendSpec struct {
	URL    string
	Weight uint32
}

// Pool is the engine's shared mutable state, guarded by a single mutex.
// Its composition (the set of backends) is fixed once Pool is constructed;
// only health, counters, sessions, policy, weights, and the session timeout
// change at runtime.
type Pool struct {
	mu sync.Mutex

	backends   []*Backend
	currentIdx int
	sessions   map[string]SessionEntry

	policy         Strategy
	sessionTimeout time.Duration
	maxFailures    uint32
}

// New constructs a Pool from configuration. Duplicate URLs are rejected by
// the caller (see validate in package config); New itself trusts its input
// is unique.
func New(specs []BackendSpec, policy Strategy, sessionTimeout time.Duration, maxFailures uint32) *Pool {
	backends := make([]*Backend, 0, len(specs))
	for _, s := range specs {
		weight := s.Weight
		if weight == 0 {
			weight = 1
		}
		backends = append(backends, &Backend{
			URL:    s.URL,
			Weight: weight,
			Health: HealthState{Healthy: true},
		})
	}
	return &Pool{
		backends:       backends,
		sessions:       make(map[string]SessionEntry),
		policy:         policy,
		sessionTimeout: sessionTimeout,
		maxFailures:    maxFailures,
	}
}

// State is the view of Pool's mutable fields handed to a WithLock callback.
// It is only valid for the duration of the call; callers must not retain it.
type State struct {
	Backends       []*Backend
	CurrentIdx     int
	Sessions       map[string]SessionEntry
	Policy         Strategy
	SessionTimeout time.Duration
	MaxFailures    uint32

	pool *Pool
}

// SetCurrentIdx updates the round-robin cursor.
func (s *State) SetCurrentIdx(idx int) { s.pool.currentIdx = idx }

// SetPolicy atomically replaces the active selection policy. It resets
// neither the round-robin cursor, the weighted accumulators, nor the
// session table — a policy switch takes effect on the next Select call
// only (spec.md §4.2).
func (s *State) SetPolicy(strategy Strategy) {
	s.pool.policy = strategy
	s.Policy = strategy
}

// SetSessionTimeout replaces the session TTL. Existing entries are subject
// to the new TTL the next time they are read.
func (s *State) SetSessionTimeout(d time.Duration) {
	s.pool.sessionTimeout = d
	s.SessionTimeout = d
}

// Find returns the backend with the given URL, or nil.
func (s *State) Find(backendURL string) *Backend {
	for _, b := range s.Backends {
		if b.URL == backendURL {
			return b
		}
	}
	return nil
}

// WithLock runs fn with exclusive access to the pool's mutable state. fn
// must not block on I/O or call back into the pool — the lock is held for
// the full duration of the call, by design: selection and health updates
// must be atomic with respect to each other.
func (p *Pool) WithLock(fn func(*State)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &State{
		Backends:       p.backends,
		CurrentIdx:     p.currentIdx,
		Sessions:       p.sessions,
		Policy:         p.policy,
		SessionTimeout: p.sessionTimeout,
		MaxFailures:    p.maxFailures,
		pool:           p,
	}
	fn(s)
}

// ListURLs returns a snapshot of the backend URLs in pool order, for the
// probe loop to iterate without holding the lock across probe I/O.
func (p *Pool) ListURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	urls := make([]string, len(p.backends))
	for i, b := range p.backends {
		urls[i] = b.URL
	}
	return urls
}

// BackendView is a read-only snapshot of one backend, for status reporting.
type BackendView struct {
	URL      string
	Weight   uint32
	Healthy  bool
	Failures uint32
}

// Snapshot returns a read-only view of every backend, for admin/status
// reporting and tests. It copies under the lock so callers never see a
// torn read.
func (p *Pool) Snapshot() []BackendView {
	p.mu.Lock()
	defer p.mu.Unlock()

	views := make([]BackendView, len(p.backends))
	for i, b := range p.backends {
		views[i] = BackendView{
			URL:      b.URL,
			Weight:   b.Weight,
			Healthy:  b.Health.Healthy,
			Failures: b.Health.Failures,
		}
	}
	return views
}

// CurrentPolicy returns the active selection policy.
func (p *Pool) CurrentPolicy() Strategy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policy
}

// BackendURLForHostPort reproduces the admin surface's fixed scheme rule:
// the weight-setting endpoint addresses backends as http://{host:port}.
// HTTPS backends are unaddressable via this path; this is a known
// limitation carried from the source, not a defect (spec.md §9).
func BackendURLForHostPort(hostPort string) string {
	return "http://" + hostPort
}

// ValidURL reports whether s parses as an absolute http(s) URL, used by
// configuration validation.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
