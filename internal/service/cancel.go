package service

import (
	"sync"
	"sync/atomic"
)

// CancelToken is a per-run cooperative cancellation flag. The engine
// polls it before the reconciliation loop and before each asset; it
// cannot interrupt a network call already in flight.
type CancelToken struct {
	requested atomic.Bool
}

// Requested reports whether cancellation has been requested.
func (t *CancelToken) Requested() bool {
	return t.requested.Load()
}

func (t *CancelToken) request() {
	t.requested.Store(true)
}

// CancelRegistry holds one cancellation token per run id. Tokens are
// created lazily on first access, so a cancel requested between trigger
// and actual start (pre-arming) and the engine's own lazy token
// creation race safely: both paths resolve to the same map entry under
// one mutex.
type CancelRegistry struct {
	mu     sync.Mutex
	tokens map[uint]*CancelToken
}

// NewCancelRegistry creates an empty registry.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{tokens: make(map[uint]*CancelToken)}
}

// Token returns the token for a run id, creating it if needed.
func (r *CancelRegistry) Token(runID uint) *CancelToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.tokens[runID]
	if !ok {
		tok = &CancelToken{}
		r.tokens[runID] = tok
	}
	return tok
}

// Request sets the cancellation flag for a run id. Idempotent, and
// valid even before the run has started executing.
func (r *CancelRegistry) Request(runID uint) {
	r.Token(runID).request()
}

// Clear removes the token for a run id unconditionally. Called when a
// run reaches a terminal state so the registry does not grow without
// bound.
func (r *CancelRegistry) Clear(runID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, runID)
}

// Len reports the number of live tokens. Intended for tests.
func (r *CancelRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
