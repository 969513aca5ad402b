// Package viewport tracks how much of each player is on screen.
package viewport

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultThreshold is the visible fraction at which a player counts as in view.
const DefaultThreshold = 0.25

type entry struct {
	gated  bool
	inView bool
	ratio  float64
}

// Gate keeps an in-view flag per instance from reported intersection ratios.
type Gate struct {
	threshold float64

	mu      sync.RWMutex
	entries map[string]*entry
}

// NewGate creates a gate. A threshold outside (0, 1] falls back to DefaultThreshold.
func NewGate(threshold float64) *Gate {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Gate{
		threshold: threshold,
		entries:   make(map[string]*entry),
	}
}

// Threshold returns the in-view threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Observe starts tracking an instance. Gated instances are out of view until
// a ratio at or above the threshold is reported; ungated ones are always allowed.
func (g *Gate) Observe(instanceID string, gated bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[instanceID] = &entry{gated: gated}
}

// Update records the visible fraction of an instance's container.
// It reports whether the in-view flag changed.
func (g *Gate) Update(instanceID string, ratio float64) bool {
	g.mu.Lock()
	e, ok := g.entries[instanceID]
	if !ok {
		g.mu.Unlock()
		return false
	}
	was := e.inView
	e.ratio = ratio
	e.inView = ratio >= g.threshold
	inView := e.inView
	g.mu.Unlock()

	changed := was != inView
	if changed {
		log.Debug().Str("instance", instanceID).Float64("ratio", ratio).Bool("inView", inView).Msg("Visibility changed")
	}
	return changed
}

// InView reports the raw in-view flag of an instance.
func (g *Gate) InView(instanceID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.entries[instanceID]
	return ok && e.inView
}

// Allowed reports whether an instance may receive keyboard shortcuts.
// Unobserved and ungated instances are always allowed.
func (g *Gate) Allowed(instanceID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.entries[instanceID]
	if !ok || !e.gated {
		return true
	}
	return e.inView
}

// Disconnect stops tracking an instance.
func (g *Gate) Disconnect(instanceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, instanceID)
}

// Len returns the number of observed instances.
func (g *Gate) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}
