package store

import "context"

// Scope is the mount guard for asynchronous continuations. A view opens a
// scope when it mounts and closes it when it unmounts; any dispatch routed
// through a closed scope is silently dropped. Without this, a slow request
// started on a previous page can corrupt state for the current one.
// In-flight requests are not aborted at the transport level; their late
// results are simply discarded here.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScope opens a scope tied to the given parent context.
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Context returns the scope's context for use in network calls.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Close tears the scope down. Idempotent.
func (s *Scope) Close() {
	s.cancel()
}

// Alive reports whether the owning view is still mounted.
func (s *Scope) Alive() bool {
	return s.ctx.Err() == nil
}

// Dispatch forwards the action unless the scope has been closed.
func (s *Scope) Dispatch(st *Store, action Action) {
	if !s.Alive() {
		return
	}
	st.Dispatch(action)
}
