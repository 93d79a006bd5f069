package batch

import "sync/atomic"

// RunGuard admits one batch run at a time. The zero value is ready to use.
type RunGuard struct {
	running atomic.Bool
}

// NewRunGuard creates a RunGuard.
func NewRunGuard() *RunGuard {
	return &RunGuard{}
}

// TryAcquire claims the guard. It returns false if a run is active.
func (g *RunGuard) TryAcquire() bool {
	return g.running.CompareAndSwap(false, true)
}

// Release frees the guard.
func (g *RunGuard) Release() {
	g.running.Store(false)
}

// Running reports whether a run holds the guard.
func (g *RunGuard) Running() bool {
	return g.running.Load()
}
