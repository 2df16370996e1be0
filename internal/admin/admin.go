// Package admin implements the three reserved, query-string-driven admin
// operations the request dispatcher exposes on specific URI paths: setting
// the active selection policy, setting a single backend's weight, and
// setting the sticky-session TTL. All three are synchronous mutations on
// the shared pool state, returning a human-readable confirmation body.
package admin

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/NithinKonda/load-balancer/internal/logging"
	"github.com/NithinKonda/load-balancer/internal/pool"
	"go.uber.org/zap"
)

// Reserved admin paths, matched exactly against the inbound request URI.
const (
	PathStrategy       = "/admin/strategy"
	PathWeight         = "/admin/weight"
	PathSessionTimeout = "/admin/session-timeout"
)

// IsReservedPath reports whether path is one of the three admin paths.
// The dispatcher uses this before deciding whether to try Handle at all.
func IsReservedPath(path string) bool {
	switch path {
	case PathStrategy, PathWeight, PathSessionTimeout:
		return true
	}
	return false
}

// Handle serves a reserved admin path against the query string of r,
// writing a confirmation to w. It returns true if the request was fully
// handled as an admin mutation. It returns false when the path is reserved
// but the query value is unrecognized or malformed — per spec.md §4.5/§6,
// that quirk is intentional: an unrecognized admin sub-case falls through
// to ordinary forwarding rather than producing an error response, and the
// caller must proceed to forward the request as if it were never an admin
// path at all.
func Handle(p *pool.Pool, w http.ResponseWriter, r *http.Request) bool {
	switch r.URL.Path {
	case PathStrategy:
		return handleStrategy(p, w, r)
	case PathWeight:
		return handleWeight(p, w, r)
	case PathSessionTimeout:
		return handleSessionTimeout(p, w, r)
	default:
		return false
	}
}

func handleStrategy(p *pool.Pool, w http.ResponseWriter, r *http.Request) bool {
	raw := r.URL.Query().Get("type")
	strategy, err := pool.ParseStrategy(raw)
	if err != nil {
		return false
	}

	p.WithLock(func(s *pool.State) { s.SetPolicy(strategy) })

	logging.Info("admin: strategy changed", zap.String("strategy", strategy.String()))
	fmt.Fprintf(w, "strategy set to %s\n", strategy.String())
	return true
}

func handleWeight(p *pool.Pool, w http.ResponseWriter, r *http.Request) bool {
	q := r.URL.Query()
	hostPort := q.Get("backend")
	weightRaw := q.Get("weight")
	if hostPort == "" || weightRaw == "" {
		return false
	}

	weight64, err := strconv.ParseUint(weightRaw, 10, 32)
	if err != nil {
		return false
	}

	backendURL := pool.BackendURLForHostPort(hostPort)
	found := false
	p.WithLock(func(s *pool.State) {
		if b := s.Find(backendURL); b != nil {
			b.Weight = uint32(weight64)
			found = true
		}
	})

	if !found {
		fmt.Fprintf(w, "backend %s not found\n", backendURL)
		return true
	}

	logging.Info("admin: weight changed",
		zap.String("backend", backendURL), zap.Uint64("weight", weight64))
	fmt.Fprintf(w, "weight for %s set to %d\n", backendURL, weight64)
	return true
}

func handleSessionTimeout(p *pool.Pool, w http.ResponseWriter, r *http.Request) bool {
	raw := r.URL.Query().Get("seconds")
	if raw == "" {
		return false
	}

	seconds, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return false
	}

	timeout := time.Duration(seconds) * time.Second
	p.WithLock(func(s *pool.State) { s.SetSessionTimeout(timeout) })

	logging.Info("admin: session timeout changed", zap.Uint64("seconds", seconds))
	fmt.Fprintf(w, "session timeout set to %ds\n", seconds)
	return true
}
