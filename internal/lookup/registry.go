package lookup

import (
	"context"
	"errors"
	"sync"
)

// ErrShuttingDown is the cancellation cause used to force outstanding
// lookups to settle during shutdown.
var ErrShuttingDown = errors.New("lookup: service shutting down")

// Registry is the process-wide collection of in-flight lookups, keyed
// by token.
//
// Invariants:
//   - a token is inserted at most once and removed at most once;
//     removal is the single cleanup point for a lookup
//   - after ShutdownAll, inserts are refused and every registered
//     lookup has been cancelled with ErrShuttingDown
type Registry struct {
	mu       sync.Mutex
	inflight map[string]context.CancelCauseFunc
	down     bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{inflight: make(map[string]context.CancelCauseFunc)}
}

// Insert registers an in-flight lookup under token. The cancel
// function is invoked by ShutdownAll. Returns ErrShuttingDown if the
// registry has been shut down.
func (r *Registry) Insert(token string, cancel context.CancelCauseFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.down {
		return ErrShuttingDown
	}
	r.inflight[token] = cancel
	return nil
}

// Remove deregisters token. No-op for unknown tokens, so the caller's
// deferred Remove is safe on every path.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, token)
}

// ShutdownAll refuses further inserts and cancels every in-flight
// lookup with ErrShuttingDown. Their composites settle and respond
// UNAVAILABLE; no registry entry or store-side read survives.
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.down = true
	for token, cancel := range r.inflight {
		cancel(ErrShuttingDown)
		delete(r.inflight, token)
	}
}

// Len reports the number of in-flight lookups.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}
