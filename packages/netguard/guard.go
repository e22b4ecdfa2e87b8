// Package netguard blocks outbound network access from the orchestrator
// while tests run. Any request that is not loopback-bound and not inside an
// explicit mock scope fails immediately, so a test depending on the real
// network fails loudly instead of silently passing.
package netguard

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
)

// ErrNetworkAccess is returned for any request the guard refuses.
var ErrNetworkAccess = errors.New("outbound network access is not allowed during tests")

// AccessError reports the request the guard refused.
type AccessError struct {
	URL string
}

func (e *AccessError) Error() string {
	return "netguard: blocked request to " + e.URL + " (use the mock facility or AllowDuring)"
}

func (e *AccessError) Unwrap() error {
	return ErrNetworkAccess
}

// Guard is a capability-gated RoundTripper. It wraps a real transport and
// refuses every request unless networking is allowed, the destination is
// loopback, or a mock scope is active.
type Guard struct {
	next    http.RoundTripper
	allowed bool

	mu        sync.Mutex
	mockDepth int
}

// New wraps next in a guard. With allowed set the guard is inert.
func New(next http.RoundTripper, allowed bool) *Guard {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Guard{next: next, allowed: allowed}
}

// Install wraps http.DefaultTransport so orchestrator-side code paths that
// fall back to the default client are covered too. Returns the guard for
// scoped mock use.
func Install(allowed bool) *Guard {
	g := New(http.DefaultTransport, allowed)
	http.DefaultTransport = g
	return g
}

// RoundTrip implements http.RoundTripper.
func (g *Guard) RoundTrip(req *http.Request) (*http.Response, error) {
	if g.allowed || g.mockActive() || isLoopback(req.URL.Host) {
		return g.next.RoundTrip(req)
	}
	return nil, &AccessError{URL: req.URL.String()}
}

// AllowDuring runs fn with the guard bypassed. Used while an HTTP-mocking
// facility is active.
func (g *Guard) AllowDuring(fn func()) {
	g.mu.Lock()
	g.mockDepth++
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.mockDepth--
		g.mu.Unlock()
	}()
	fn()
}

func (g *Guard) mockActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mockDepth > 0
}

func isLoopback(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
