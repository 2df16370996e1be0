// Package selector implements the three backend-selection policies over the
// shared pool state: round-robin, smooth weighted round-robin, and sticky
// session. Selection is a function of (policy, state, client identity) that
// updates that state in place (cursor, accumulators, sessions) — the three algorithms are plain functions over pool.State, not a class
// hierarchy, so adding or swapping a policy never touches the others.
package selector

import (
	"time"

	"github.com/NithinKonda/load-balancer/internal/pool"
)

// Select picks a backend URL under the pool's currently active policy.
// clientIdentity is only consulted under the sticky policy; it may be empty,
// in which case sticky falls back to weighted selection with no session
// side effects. Returns ("", false) when no Healthy backend is available.
func Select(p *pool.Pool, clientIdentity string, now time.Time) (string, bool) {
	var (
		url string
		ok  bool
	)
	p.WithLock(func(s *pool.State) {
		switch s.Policy {
		case pool.RoundRobin:
			url, ok = selectRoundRobin(s)
		case pool.Weighted:
			url, ok = selectWeighted(s)
		case pool.Sticky:
			url, ok = selectSticky(s, clientIdentity, now)
		default:
			url, ok = selectRoundRobin(s)
		}
	})
	return url, ok
}

// selectRoundRobin scans the pool starting at the cursor and returns the
// first Healthy backend, advancing the cursor past the chosen entry (mod
// N). The cursor advances past skipped-unhealthy entries too, so progress
// is made even when some backends are down. A full revolution with no
// Healthy backend returns ("", false).
func selectRoundRobin(s *pool.State) (string, bool) {
	n := len(s.Backends)
	if n == 0 {
		return "", false
	}

	start := s.CurrentIdx % n
	if start < 0 {
		start += n
	}

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		b := s.Backends[idx]
		if b.Health.Healthy {
			s.SetCurrentIdx((idx + 1) % n)
			return b.URL, true
		}
	}

	s.SetCurrentIdx(start)
	return "", false
}

// selectWeighted implements Nginx-style smooth weighted round-robin: every
// Healthy backend's current_weight accumulates its static weight, the
// backend with the largest accumulator wins (ties go to the lowest index),
// and the winner's accumulator is reduced by the sum of weights over all
// Healthy backends. Unhealthy backends neither accumulate nor compete, and
// resume accumulation from their preserved value once they return Healthy.
func selectWeighted(s *pool.State) (string, bool) {
	var (
		total int
		best  *pool.Backend
	)
	for _, b := range s.Backends {
		if !b.Health.Healthy {
			continue
		}
		b.CurrentWeight += int(b.Weight)
		total += int(b.Weight)
		if best == nil || b.CurrentWeight > best.CurrentWeight {
			best = b
		}
	}
	if best == nil {
		return "", false
	}
	best.CurrentWeight -= total
	return best.URL, true
}

// selectSticky implements the sticky-session procedure: evict every expired
// entry, return the client's pinned backend if it is still Healthy and
// fresh, otherwise pick a fresh backend via the weighted algorithm and pin
// the client to it. With no client identity, it degrades to a plain
// weighted pick with no session side effects.
func selectSticky(s *pool.State, clientIdentity string, now time.Time) (string, bool) {
	for id, entry := range s.Sessions {
		if now.Sub(entry.LastSeen) >= s.SessionTimeout {
			delete(s.Sessions, id)
		}
	}

	if clientIdentity == "" {
		return selectWeighted(s)
	}

	if entry, ok := s.Sessions[clientIdentity]; ok {
		if b := s.Find(entry.BackendURL); b != nil && b.Health.Healthy {
			entry.LastSeen = now
			s.Sessions[clientIdentity] = entry
			return b.URL, true
		}
		delete(s.Sessions, clientIdentity)
	}

	url, ok := selectWeighted(s)
	if !ok {
		return "", false
	}
	s.Sessions[clientIdentity] = pool.SessionEntry{BackendURL: url, LastSeen: now}
	return url, true
}
