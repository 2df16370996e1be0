// Package dispatcher implements the gateway's single request handler: admin
// short-circuit, backend selection, forwarding, health feedback, and the
// structured logging/metrics every request produces.
package dispatcher

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/NithinKonda/load-balancer/internal/admin"
	gwerrors "github.com/NithinKonda/load-balancer/internal/errors"
	"github.com/NithinKonda/load-balancer/internal/forwarder"
	"github.com/NithinKonda/load-balancer/internal/health"
	"github.com/NithinKonda/load-balancer/internal/logging"
	"github.com/NithinKonda/load-balancer/internal/metrics"
	"github.com/NithinKonda/load-balancer/internal/pool"
	"github.com/NithinKonda/load-balancer/internal/selector"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stickyCookieName is set on the response whenever the sticky policy picks
// a backend, so a client without one learns its assignment.
const stickyCookieName = "backend"

// Dispatcher is the gateway's http.Handler.
type Dispatcher struct {
	pool      *pool.Pool
	forwarder *forwarder.Forwarder
	metrics   *metrics.Registry
}

// New builds a Dispatcher.
func New(p *pool.Pool, fwd *forwarder.Forwarder, m *metrics.Registry) *Dispatcher {
	return &Dispatcher{pool: p, forwarder: fwd, metrics: m}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if admin.IsReservedPath(r.URL.Path) {
		if admin.Handle(d.pool, w, r) {
			return
		}
		// Unrecognized admin query: fall through to ordinary forwarding.
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	start := time.Now()
	clientIdentity := clientIdentity(r)

	policy := d.pool.CurrentPolicy()
	backendURL, ok := selector.Select(d.pool, clientIdentity, start)
	if !ok {
		if d.metrics != nil {
			d.metrics.Selections.WithLabelValues(policy.String(), "no_backend").Inc()
		}
		gwerrors.ErrNoHealthyBackend.WithRequestID(requestID).WriteJSON(w)
		logging.Warn("dispatch: no healthy backend",
			zap.String("request_id", requestID), zap.String("path", r.URL.Path))
		return
	}
	if d.metrics != nil {
		d.metrics.Selections.WithLabelValues(policy.String(), "selected").Inc()
	}

	if policy == pool.Sticky && clientIdentity != "" {
		http.SetCookie(w, &http.Cookie{Name: stickyCookieName, Value: backendURL, Path: "/"})
	}

	status, err := d.forwarder.Forward(w, r, backendURL, clientIdentity)
	duration := time.Since(start)

	if err != nil {
		health.MarkUnhealthy(d.pool, backendURL)
		if d.metrics != nil {
			d.metrics.ForwardedRequests.WithLabelValues(backendURL, "error").Inc()
		}
		gwerrors.Wrap(gwerrors.ErrBackendUnavailable, err).WithRequestID(requestID).WriteJSON(w)
		logging.Error("dispatch: forward failed",
			zap.String("request_id", requestID), zap.String("backend", backendURL), zap.Error(err))
		return
	}

	health.MarkHealthy(d.pool, backendURL)
	if d.metrics != nil {
		d.metrics.ForwardedRequests.WithLabelValues(backendURL, statusClass(status)).Inc()
		d.metrics.ForwardDuration.WithLabelValues(backendURL).Observe(duration.Seconds())
	}

	logging.Info("dispatch: request forwarded",
		zap.String("request_id", requestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("backend", backendURL),
		zap.Int("status", status),
		zap.Duration("duration", duration))
}

// clientIdentity extracts the client's identity per the leftmost-token rule:
// the first entry in X-Forwarded-For if present, otherwise the connection's
// peer address.
func clientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
