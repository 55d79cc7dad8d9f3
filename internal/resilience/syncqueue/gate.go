package syncqueue

import "sync"

// Gate coordinates the reconciler's drain passes with recovery strategies
// that reset network state. A drain pass holds the gate shared; a disruptive
// strategy takes it exclusively, so it waits for the in-flight pass to
// finish instead of yanking the network out from under a push.
type Gate struct {
	mu sync.RWMutex
}

// BeginDrain marks a drain pass in progress.
func (g *Gate) BeginDrain() {
	g.mu.RLock()
}

// EndDrain releases the pass.
func (g *Gate) EndDrain() {
	g.mu.RUnlock()
}

// Exclusive runs fn while no drain pass is in progress.
func (g *Gate) Exclusive(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}
