// Command origin is a demo upstream: it echoes every request as JSON,
// answers a configurable health path, and can be toggled to fail so the
// gateway's probe loop and sticky failover can be exercised end-to-end.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"
)

const echoMaxBodySize = 1 << 20

type echoResponse struct {
	Identity   string            `json:"identity"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	RemoteAddr string            `json:"remote_addr"`
	Query      map[string]string `json:"query"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

type origin struct {
	identity string
	healthy  atomic.Bool
}

func (o *origin) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !o.healthy.Load() {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (o *origin) handleToggle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("state") {
	case "down":
		o.healthy.Store(false)
	case "up":
		o.healthy.Store(true)
	default:
		http.Error(w, "state must be up or down", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (o *origin) handleEcho(w http.ResponseWriter, r *http.Request) {
	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	var body string
	if r.Body != nil {
		data, _ := io.ReadAll(io.LimitReader(r.Body, echoMaxBodySize))
		body = string(data)
	}

	resp := echoResponse{
		Identity:   o.identity,
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		Query:      query,
		Headers:    headers,
		Body:       body,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func main() {
	addr := flag.String("addr", ":9001", "listen address")
	healthPath := flag.String("health-path", "/healthz", "health check path")
	identity := flag.String("identity", "origin", "identity string echoed in every response")
	flag.Parse()

	o := &origin{identity: *identity}
	o.healthy.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc(*healthPath, o.handleHealth)
	mux.HandleFunc("/admin/toggle", o.handleToggle)
	mux.HandleFunc("/", o.handleEcho)

	log.Printf("origin %s listening on %s (health path %s)", *identity, *addr, *healthPath)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatalf("origin server error: %v", err)
	}
}
