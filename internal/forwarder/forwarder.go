// Package forwarder constructs and sends the outbound request to a chosen
// backend, copying the inbound request's method, headers, and body, and
// streaming the backend's response back unchanged.
package forwarder

import (
	"io"
	"net/http"
	"net/url"
	"strings"
)

// hopHeaders are stripped from both the outbound request and the returned
// response; they are connection-scoped and meaningless once relayed.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopHeaders(h http.Header) {
	for _, k := range hopHeaders {
		h.Del(k)
	}
}

// Forwarder sends requests to backends over a shared transport.
type Forwarder struct {
	client *http.Client
}

// New builds a Forwarder that sends every request through client. Any
// per-request timeout is the client's own Timeout; a zero Timeout means the
// client applies none (callers may still bound the request via context).
func New(client *http.Client) *Forwarder {
	return &Forwarder{client: client}
}

// buildRequest constructs the outbound request to backendURL, copying r's
// method, body, and headers (minus hop-by-hop headers), and appending the
// client's address to X-Forwarded-For.
func buildRequest(r *http.Request, backendURL, clientIP string) (*http.Request, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, err
	}
	target.Path = singleJoiningSlash(target.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	out := (&http.Request{
		Method:        r.Method,
		URL:           target,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Body:          r.Body,
		ContentLength: r.ContentLength,
		Host:          target.Host,
	}).WithContext(r.Context())

	out.Header = make(http.Header, len(r.Header)+2)
	for k, vv := range r.Header {
		out.Header[k] = append([]string(nil), vv...)
	}

	if clientIP != "" {
		if prior := out.Header.Get("X-Forwarded-For"); prior != "" {
			out.Header.Set("X-Forwarded-For", prior+", "+clientIP)
		} else {
			out.Header.Set("X-Forwarded-For", clientIP)
		}
	}
	out.Header.Set("X-Forwarded-Proto", "http")
	out.Header.Set("X-Forwarded-Host", r.Host)

	removeHopHeaders(out.Header)
	return out, nil
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}

// Forward sends r to backendURL and writes the response (status, headers,
// body) to w. It returns the backend's status code and any transport-level
// error; a non-nil error means no response was written and the caller
// should treat the backend as failed.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, backendURL, clientIP string) (int, error) {
	outReq, err := buildRequest(r, backendURL, clientIP)
	if err != nil {
		return 0, err
	}

	resp, err := f.client.Do(outReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	dst := w.Header()
	for k, vv := range resp.Header {
		dst[k] = append(dst[k][:0:0], vv...)
	}
	removeHopHeaders(dst)

	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
	return resp.StatusCode, nil
}
