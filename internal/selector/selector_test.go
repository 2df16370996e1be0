package selector

import (
	"testing"
	"time"

	"github.com/NithinKonda/load-balancer/internal/health"
	"github.com/NithinKonda/load-balancer/internal/pool"
)

func newTestPool(policy pool.Strategy, specs ...pool.BackendSpec) *pool.Pool {
	return pool.New(specs, policy, time.Minute, 3)
}

func TestRoundRobinCyclesInOrder(t *testing.T) {
	p := newTestPool(pool.RoundRobin,
		pool.BackendSpec{URL: "http://a"},
		pool.BackendSpec{URL: "http://b"},
		pool.BackendSpec{URL: "http://c"},
	)

	want := []string{"http://a", "http://b", "http://c", "http://a", "http://b", "http://c"}
	for i, w := range want {
		got, ok := Select(p, "", time.Now())
		if !ok {
			t.Fatalf("pick %d: expected a backend, got none", i)
		}
		if got != w {
			t.Errorf("pick %d: got %s, want %s", i, got, w)
		}
	}
}

func TestRoundRobinSkipsUnhealthy(t *testing.T) {
	p := newTestPool(pool.RoundRobin,
		pool.BackendSpec{URL: "http://a"},
		pool.BackendSpec{URL: "http://b"},
		pool.BackendSpec{URL: "http://c"},
	)
	health.MarkUnhealthy(p, "http://b")

	want := []string{"http://a", "http://c", "http://a", "http://c"}
	for i, w := range want {
		got, ok := Select(p, "", time.Now())
		if !ok || got != w {
			t.Errorf("pick %d: got %s,%v want %s", i, got, ok, w)
		}
	}
}

func TestRoundRobinEmptyPool(t *testing.T) {
	p := newTestPool(pool.RoundRobin)
	if _, ok := Select(p, "", time.Now()); ok {
		t.Fatal("expected no backend from an empty pool")
	}
}

func TestRoundRobinAllUnhealthy(t *testing.T) {
	p := newTestPool(pool.RoundRobin, pool.BackendSpec{URL: "http://a"})
	health.MarkUnhealthy(p, "http://a")
	if _, ok := Select(p, "", time.Now()); ok {
		t.Fatal("expected no backend when every backend is unhealthy")
	}
}

func TestWeightedFairness(t *testing.T) {
	p := newTestPool(pool.Weighted,
		pool.BackendSpec{URL: "http://a", Weight: 5},
		pool.BackendSpec{URL: "http://b", Weight: 3},
		pool.BackendSpec{URL: "http://c", Weight: 2},
	)

	counts := map[string]int{}
	for i := 0; i < 10; i++ {
		got, ok := Select(p, "", time.Now())
		if !ok {
			t.Fatalf("pick %d: expected a backend", i)
		}
		counts[got]++
	}

	if counts["http://a"] != 5 || counts["http://b"] != 3 || counts["http://c"] != 2 {
		t.Errorf("unexpected distribution over 10 picks: %v", counts)
	}
}

func TestWeightedSkipsUnhealthyAndResumes(t *testing.T) {
	p := newTestPool(pool.Weighted,
		pool.BackendSpec{URL: "http://a", Weight: 5},
		pool.BackendSpec{URL: "http://b", Weight: 3},
		pool.BackendSpec{URL: "http://c", Weight: 2},
	)
	health.MarkUnhealthy(p, "http://b")

	counts := map[string]int{}
	for i := 0; i < 7; i++ {
		got, ok := Select(p, "", time.Now())
		if !ok {
			t.Fatalf("pick %d: expected a backend", i)
		}
		counts[got]++
	}
	if counts["http://b"] != 0 {
		t.Errorf("unhealthy backend was selected %d times", counts["http://b"])
	}
	if counts["http://a"] != 5 || counts["http://c"] != 2 {
		t.Errorf("unexpected distribution with b unhealthy: %v", counts)
	}
}

func TestStickySessionConsistency(t *testing.T) {
	p := newTestPool(pool.Sticky,
		pool.BackendSpec{URL: "http://a", Weight: 1},
		pool.BackendSpec{URL: "http://b", Weight: 1},
	)

	first, ok := Select(p, "client-1", time.Now())
	if !ok {
		t.Fatal("expected a backend")
	}
	for i := 0; i < 5; i++ {
		got, ok := Select(p, "client-1", time.Now())
		if !ok || got != first {
			t.Errorf("pick %d: got %s,%v want %s (sticky pin should be stable)", i, got, ok, first)
		}
	}
}

func TestStickyFailsOverWhenPinnedBackendUnhealthy(t *testing.T) {
	p := newTestPool(pool.Sticky,
		pool.BackendSpec{URL: "http://a", Weight: 1},
		pool.BackendSpec{URL: "http://b", Weight: 1},
	)

	first, _ := Select(p, "client-1", time.Now())
	health.MarkUnhealthy(p, first)

	other, ok := Select(p, "client-1", time.Now())
	if !ok {
		t.Fatal("expected a fallback backend")
	}
	if other == first {
		t.Fatal("expected selection to move off the now-unhealthy pinned backend")
	}
}

func TestStickySessionExpires(t *testing.T) {
	p := pool.New([]pool.BackendSpec{
		{URL: "http://a", Weight: 1},
		{URL: "http://b", Weight: 1},
	}, pool.Sticky, time.Minute, 3)

	now := time.Now()
	Select(p, "client-1", now)

	later := now.Add(2 * time.Minute)
	if _, ok := Select(p, "client-1", later); !ok {
		t.Fatal("expected a backend after expiry")
	}

	p.WithLock(func(s *pool.State) {
		if _, exists := s.Sessions["client-1"]; !exists {
			t.Fatal("expected a fresh session to be recorded after the stale one expired")
		}
	})
}

func TestStickyWithNoClientIdentityDoesNotRecordSession(t *testing.T) {
	p := newTestPool(pool.Sticky,
		pool.BackendSpec{URL: "http://a", Weight: 1},
	)
	if _, ok := Select(p, "", time.Now()); !ok {
		t.Fatal("expected a backend")
	}
	p.WithLock(func(s *pool.State) {
		if len(s.Sessions) != 0 {
			t.Errorf("expected no session recorded for an empty client identity, got %d", len(s.Sessions))
		}
	})
}

func TestPolicySwitchIsOrthogonalToPoolComposition(t *testing.T) {
	p := newTestPool(pool.RoundRobin,
		pool.BackendSpec{URL: "http://a"},
		pool.BackendSpec{URL: "http://b"},
	)
	Select(p, "", time.Now())

	p.WithLock(func(s *pool.State) { s.SetPolicy(pool.Weighted) })
	if p.CurrentPolicy() != pool.Weighted {
		t.Fatal("expected policy switch to take effect")
	}
	if _, ok := Select(p, "", time.Now()); !ok {
		t.Fatal("expected a backend under the new policy")
	}
}
