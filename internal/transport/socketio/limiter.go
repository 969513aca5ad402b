package socketio

import (
	"net"
	"sync"
)

// PageLimiter caps the number of pages connected from other machines.
// Pages on the daemon's own host are never limited. When a new external
// page goes over the cap, the oldest external page is evicted.
type PageLimiter struct {
	mu       sync.Mutex
	max      int
	external []string          // oldest first
	pages    map[string]string // session id -> remote address
}

// NewPageLimiter creates a limiter allowing max external pages.
// A max of zero or less disables the limit.
func NewPageLimiter(max int) *PageLimiter {
	return &PageLimiter{
		max:   max,
		pages: make(map[string]string),
	}
}

// Admit records a page and returns the session id to evict, if any.
func (l *PageLimiter) Admit(sessionID, addr string) (evicted string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pages[sessionID]; ok {
		return ""
	}
	l.pages[sessionID] = addr
	if isLoopback(addr) {
		return ""
	}

	l.external = append(l.external, sessionID)
	if l.max <= 0 || len(l.external) <= l.max {
		return ""
	}
	evicted = l.external[0]
	l.external = l.external[1:]
	delete(l.pages, evicted)
	return evicted
}

// Release forgets a page that disconnected.
func (l *PageLimiter) Release(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	addr, ok := l.pages[sessionID]
	if !ok {
		return
	}
	delete(l.pages, sessionID)
	if isLoopback(addr) {
		return
	}
	for i, id := range l.external {
		if id == sessionID {
			l.external = append(l.external[:i], l.external[i+1:]...)
			break
		}
	}
}

// External returns the number of admitted external pages.
func (l *PageLimiter) External() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.external)
}

// isLoopback reports whether addr, with or without a port, is this host.
func isLoopback(addr string) bool {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
