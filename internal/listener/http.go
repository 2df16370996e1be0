// Package listener wraps a plain cleartext HTTP/1.1 server as a
// Start/Stop pair, so the gateway's traffic listener and metrics listener
// can be driven identically by the process lifecycle.
package listener

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// HTTPListener is a single bound HTTP server.
type HTTPListener struct {
	address  string
	server   *http.Server
	listener net.Listener
}

// Config holds the parameters for a new HTTPListener.
type Config struct {
	Address           string
	Handler           http.Handler
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
}

// New builds an HTTPListener from cfg. It does not bind the address; that
// happens in Start.
func New(cfg Config) *HTTPListener {
	return &HTTPListener{
		address: cfg.Address,
		server: &http.Server{
			Addr:              cfg.Address,
			Handler:           cfg.Handler,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
	}
}

// Addr returns the configured listen address.
func (h *HTTPListener) Addr() string { return h.address }

// Start binds the listener and serves until Stop is called or the server
// fails. It returns once the bind succeeds (or fails); Serve runs in its
// own goroutine and is expected to be driven by an errgroup, whose context
// cancellation the caller turns into a Stop call.
func (h *HTTPListener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.address, err)
	}
	h.listener = ln

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.Serve(h.listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts the server down, honoring ctx's deadline.
func (h *HTTPListener) Stop(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}
