package pool

import (
	"testing"
	"time"
)

func TestNewDefaultsZeroWeightToOne(t *testing.T) {
	p := New([]BackendSpec{{URL: "http://a"}}, RoundRobin, time.Minute, 3)
	p.WithLock(func(s *State) {
		b := s.Find("http://a")
		if b == nil {
			t.Fatal("expected backend to exist")
		}
		if b.Weight != 1 {
			t.Errorf("got weight %d, want 1", b.Weight)
		}
	})
}

func TestNewBackendsStartHealthy(t *testing.T) {
	p := New([]BackendSpec{{URL: "http://a"}}, RoundRobin, time.Minute, 3)
	views := p.Snapshot()
	if len(views) != 1 || !views[0].Healthy {
		t.Errorf("got %+v, want one healthy backend", views)
	}
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"roundrobin":  RoundRobin,
		"round-robin": RoundRobin,
		"weighted":    Weighted,
		"sticky":      Sticky,
	}
	for raw, want := range cases {
		got, err := ParseStrategy(raw)
		if err != nil {
			t.Errorf("ParseStrategy(%q): unexpected error %v", raw, err)
		}
		if got != want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", raw, got, want)
		}
	}

	if _, err := ParseStrategy("least-connections"); err == nil {
		t.Error("expected an error for an unknown strategy")
	}
}

func TestValidURL(t *testing.T) {
	if !ValidURL("http://localhost:9001") {
		t.Error("expected http://localhost:9001 to be valid")
	}
	if ValidURL("not-a-url") {
		t.Error("expected a bare string to be invalid")
	}
	if ValidURL("") {
		t.Error("expected an empty string to be invalid")
	}
}

func TestListURLsPreservesOrder(t *testing.T) {
	p := New([]BackendSpec{{URL: "http://a"}, {URL: "http://b"}, {URL: "http://c"}}, RoundRobin, time.Minute, 3)
	urls := p.ListURLs()
	want := []string{"http://a", "http://b", "http://c"}
	for i, u := range want {
		if urls[i] != u {
			t.Errorf("urls[%d] = %s, want %s", i, urls[i], u)
		}
	}
}

func TestBackendURLForHostPort(t *testing.T) {
	if got := BackendURLForHostPort("localhost:9001"); got != "http://localhost:9001" {
		t.Errorf("got %s, want http://localhost:9001", got)
	}
}
