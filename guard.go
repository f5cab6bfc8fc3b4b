package ownptr

// Guard runs a function exactly once when released. It sequences
// teardown-then-reclaim inside Close paths: the reclaim step is armed before
// teardown runs, so the storage is still returned if teardown panics.
//
//	g := ownptr.OnExit(cleanup)
//	defer g.Run()
type Guard struct {
	fn   func()
	done bool
}

// OnExit returns an armed guard for fn.
func OnExit(fn func()) *Guard {
	return &Guard{fn: fn}
}

// Cancel disarms the guard. A later Run does nothing.
func (g *Guard) Cancel() {
	g.done = true
}

// Run invokes the guarded function if the guard is still armed. Calling Run
// again is a no-op.
func (g *Guard) Run() {
	if g == nil || g.done || g.fn == nil {
		return
	}
	g.done = true
	g.fn()
}
