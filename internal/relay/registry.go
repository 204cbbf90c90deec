package relay

import "sync"

// Registry is the set of open, admitted connections. It is the only shared
// mutable state in the relay and is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[*Conn]struct{})}
}

// Add admits c. Adding a connection twice is a no-op.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = struct{}{}
}

// Remove drops c and reports whether it was a member. Removing an absent
// connection is a no-op.
func (r *Registry) Remove(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; !ok {
		return false
	}
	delete(r.conns, c)
	return true
}

// Contains reports whether c is currently registered.
func (r *Registry) Contains(c *Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[c]
	return ok
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns the current members in unspecified order. The slice is
// owned by the caller; later membership changes do not affect it.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// ForEach calls fn for every member of a snapshot. fn runs without the
// registry lock held, so it may block on I/O or mutate the registry.
func (r *Registry) ForEach(fn func(*Conn)) {
	for _, c := range r.Snapshot() {
		fn(c)
	}
}
