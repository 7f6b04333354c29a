package service

import "sync"

// refreshGate serializes refreshes for one member: at most one run in flight,
// at most one queued behind it. Triggers arriving while a run is active fold
// into the single pending slot, so the trailing run happens exactly once no
// matter how many triggers stacked up.
type refreshGate struct {
	mu       sync.Mutex
	inFlight bool
	pending  bool
}

// tryBegin reports whether the caller should run now. When a run is already
// in flight the trigger is remembered in the pending slot instead.
func (g *refreshGate) tryBegin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		g.pending = true
		return false
	}
	g.inFlight = true
	return true
}

// finish marks the current run complete and reports whether a trailing run
// must start immediately. The gate stays held for the trailing run.
func (g *refreshGate) finish() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending {
		g.pending = false
		return true
	}
	g.inFlight = false
	return false
}
