// Package registry holds the set of client sinks that receive process
// output.
//
// The registry is the only state shared between the output fan-out and
// the per-client connection handlers.  Mutations and snapshots are
// mutually exclusive; a snapshot is an immutable slice, so a fan-out in
// progress is never disturbed by clients joining or leaving.
package registry

import "sync"

// Sink is the write-end of one attached client.
type Sink interface {
	// ID uniquely identifies the client for the registry's lifetime.
	ID() string
	// Write delivers output to the client.
	Write(p []byte) (int, error)
	// Disconnect ends the client's session.  It must be safe to call
	// more than once and concurrently with Write.
	Disconnect()
}

// Registry is a concurrency-safe set of sinks keyed by ID.
type Registry struct {
	mu       sync.RWMutex
	sinks    map[string]Sink
	snapshot []Sink // rebuilt on every mutation, never modified in place
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Add registers s.  Re-adding an ID replaces the previous sink.
func (r *Registry) Add(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[s.ID()] = s
	r.rebuild()
}

// Remove deregisters the sink with the given id and reports whether it
// was present.  Removing an unknown id is a no-op, so the fan-out and
// the connection handler may both remove the same client.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sinks[id]; !ok {
		return false
	}
	delete(r.sinks, id)
	r.rebuild()
	return true
}

// Contains reports whether id is currently registered.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sinks[id]
	return ok
}

// Len returns the number of registered sinks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshot)
}

// Snapshot returns the sinks registered at this instant.  Callers must
// not modify the returned slice.
func (r *Registry) Snapshot() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// DisconnectAll calls Disconnect on every registered sink.  Sinks stay
// registered; their handlers deregister them during teardown.
func (r *Registry) DisconnectAll() int {
	sinks := r.Snapshot()
	for _, s := range sinks {
		s.Disconnect()
	}
	return len(sinks)
}

func (r *Registry) rebuild() {
	if len(r.sinks) == 0 {
		r.snapshot = nil
		return
	}
	snap := make([]Sink, 0, len(r.sinks))
	for _, s := range r.sinks {
		snap = append(snap, s)
	}
	r.snapshot = snap
}
