package dispatcher

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NithinKonda/load-balancer/internal/forwarder"
	"github.com/NithinKonda/load-balancer/internal/pool"
)

func TestDispatcherForwardsToBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer backend.Close()

	p := pool.New([]pool.BackendSpec{{URL: backend.URL, Weight: 1}}, pool.RoundRobin, time.Minute, 3)
	d := New(p, forwarder.New(&http.Client{}), nil)

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("got body %q, want ok", w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request ID to be set on the response")
	}
}

func TestDispatcherReturns503WhenNoHealthyBackend(t *testing.T) {
	p := pool.New(nil, pool.RoundRobin, time.Minute, 3)
	d := New(p, forwarder.New(&http.Client{}), nil)

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want 503", w.Code)
	}
}

func TestDispatcherAdminPathShortCircuits(t *testing.T) {
	p := pool.New([]pool.BackendSpec{{URL: "http://localhost:9001", Weight: 1}}, pool.RoundRobin, time.Minute, 3)
	d := New(p, forwarder.New(&http.Client{}), nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/strategy?type=weighted", nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)

	if p.CurrentPolicy() != pool.Weighted {
		t.Errorf("expected admin request to change policy, got %v", p.CurrentPolicy())
	}
}

func TestDispatcherMarksBackendUnhealthyOnTransportError(t *testing.T) {
	p := pool.New([]pool.BackendSpec{{URL: "http://127.0.0.1:1", Weight: 1}}, pool.RoundRobin, time.Minute, 3)
	d := New(p, forwarder.New(&http.Client{Timeout: 200 * time.Millisecond}), nil)

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want 503", w.Code)
	}
	views := p.Snapshot()
	if views[0].Healthy {
		t.Error("expected backend to be marked unhealthy after a transport failure")
	}
}

func TestDispatcherStickySetsBackendCookie(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	p := pool.New([]pool.BackendSpec{{URL: backend.URL, Weight: 1}}, pool.Sticky, time.Minute, 3)
	d := New(p, forwarder.New(&http.Client{}), nil)

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	if cookies[0].Name != "backend" {
		t.Errorf("got cookie name %q, want backend", cookies[0].Name)
	}
	if cookies[0].Value != backend.URL {
		t.Errorf("got cookie value %q, want %q", cookies[0].Value, backend.URL)
	}
	if cookies[0].Path != "/" {
		t.Errorf("got cookie path %q, want /", cookies[0].Path)
	}
}
