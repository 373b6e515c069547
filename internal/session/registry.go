package session

import (
	"context"
	"sync"
)

// Handle is a terminable renderer process owned by the registry for the
// session's lifetime.
type Handle interface {
	Terminate() error
}

// Registry is the process-wide session store: liveness (a cancel func per
// running session), status snapshots, and hardsub renderer handles. All
// access goes through the mutex; statuses are stored and returned by value
// so readers always get a consistent snapshot.
type Registry struct {
	mu        sync.RWMutex
	cancels   map[string]context.CancelFunc
	statuses  map[string]Status
	renderers map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{
		cancels:   make(map[string]context.CancelFunc),
		statuses:  make(map[string]Status),
		renderers: make(map[string]Handle),
	}
}

func (r *Registry) register(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[id] = cancel
}

// Alive reports whether the session is in the active set.
func (r *Registry) Alive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cancels[id]
	return ok
}

// Stop clears the session's liveness and cancels its loop. Idempotent:
// stopping an unknown or already-stopped session is a no-op.
func (r *Registry) Stop(id string) {
	r.mu.Lock()
	cancel := r.cancels[id]
	delete(r.cancels, id)
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// StopAll stops every running session. Used on process shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.cancels))
	for id, cancel := range r.cancels {
		cancels = append(cancels, cancel)
		delete(r.cancels, id)
	}
	r.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Status returns the session's latest snapshot. Snapshots outlive the
// session and remain queryable until process exit.
func (r *Registry) Status(id string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statuses[id]
	return s, ok
}

func (r *Registry) setStatus(id string, s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = s
}

// updateStatus applies fn to a copy of the current snapshot and swaps the
// copy in atomically.
func (r *Registry) updateStatus(id string, fn func(*Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.statuses[id]
	fn(&s)
	r.statuses[id] = s
}

func (r *Registry) setRenderer(id string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[id] = h
}

// takeRenderer removes and returns the session's renderer handle. At most
// one caller ever receives it, which makes termination exactly-once.
func (r *Registry) takeRenderer(id string) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.renderers[id]
	delete(r.renderers, id)
	return h
}
