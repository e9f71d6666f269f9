package service

import (
	"sort"
	"sync"
)

// Generations hands out recomputation tokens and keeps the latest applied snapshot per root.
// A result is applied only if no newer recomputation for the same root has begun since its
// token was issued; older results are dropped, never merged.
type Generations struct {
	mu      sync.Mutex
	next    uint64
	latest  map[string]uint64
	applied map[string]Snapshot
}

// NewGenerations returns an empty tracker.
func NewGenerations() *Generations {
	return &Generations{
		latest:  make(map[string]uint64),
		applied: make(map[string]Snapshot),
	}
}

// Begin issues a token for a new recomputation of rootID.
func (g *Generations) Begin(rootID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	g.latest[rootID] = g.next
	return g.next
}

// Apply stores snap for rootID if token is still the newest begun for that root.
func (g *Generations) Apply(rootID string, token uint64, snap Snapshot) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.latest[rootID] != token {
		return false
	}
	snap.Generation = token
	g.applied[rootID] = snap
	return true
}

// Abandon releases token after a failed recomputation. A root that never had a snapshot
// applied is dropped entirely unless a newer recomputation has begun.
func (g *Generations) Abandon(rootID string, token uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.latest[rootID] != token {
		return
	}
	if _, ok := g.applied[rootID]; !ok {
		delete(g.latest, rootID)
	}
}

// Current returns the last applied snapshot for rootID.
func (g *Generations) Current(rootID string) (Snapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, ok := g.applied[rootID]
	return snap, ok
}

// Roots lists every root with an applied snapshot, sorted.
func (g *Generations) Roots() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	roots := make([]string, 0, len(g.applied))
	for root := range g.applied {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// Forget drops all state for rootID. Results of in-flight recomputations are discarded.
func (g *Generations) Forget(rootID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.applied, rootID)
	delete(g.latest, rootID)
}
