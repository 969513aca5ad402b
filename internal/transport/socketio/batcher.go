package socketio

import (
	"sync"
	"time"

	"github.com/edumarques81/stellar-embed-player/internal/render"
)

// DefaultPatchWindow is how long patches are collected before they are sent.
const DefaultPatchWindow = 16 * time.Millisecond

// PatchBatcher collapses the renders of a window into one patch message per
// player. A later patch of the same DOM property replaces an earlier one.
// Unlike a debounce the window is not extended by new patches, so a player
// rendering on every time update still gets one message per window.
type PatchBatcher struct {
	window time.Duration
	send   render.Sink

	mu      sync.Mutex
	order   []string
	pending map[string]*patchSet
	timer   *time.Timer
	stopped bool
}

type patchSet struct {
	keys  []string
	byKey map[string]render.Patch
}

// NewPatchBatcher creates a batcher. A window of zero or less sends every
// render immediately.
func NewPatchBatcher(window time.Duration, send render.Sink) *PatchBatcher {
	return &PatchBatcher{
		window:  window,
		send:    send,
		pending: make(map[string]*patchSet),
	}
}

// Add queues the patches of one render. It has the render.Sink signature.
func (b *PatchBatcher) Add(instanceID string, patches []render.Patch) {
	if len(patches) == 0 {
		return
	}
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	if b.window <= 0 {
		b.mu.Unlock()
		b.send(instanceID, patches)
		return
	}

	set, ok := b.pending[instanceID]
	if !ok {
		set = &patchSet{byKey: make(map[string]render.Patch)}
		b.pending[instanceID] = set
		b.order = append(b.order, instanceID)
	}
	for _, p := range patches {
		k := p.Key()
		if _, seen := set.byKey[k]; !seen {
			set.keys = append(set.keys, k)
		}
		set.byKey[k] = p
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.Flush)
	}
	b.mu.Unlock()
}

// Flush sends everything pending now.
func (b *PatchBatcher) Flush() {
	b.mu.Lock()
	order, pending := b.order, b.pending
	b.order = nil
	b.pending = make(map[string]*patchSet)
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	stopped := b.stopped
	b.mu.Unlock()

	if stopped {
		return
	}
	for _, id := range order {
		set := pending[id]
		patches := make([]render.Patch, 0, len(set.keys))
		for _, k := range set.keys {
			patches = append(patches, set.byKey[k])
		}
		b.send(id, patches)
	}
}

// Forget drops the pending patches of a player that went away.
func (b *PatchBatcher) Forget(instanceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pending[instanceID]; !ok {
		return
	}
	delete(b.pending, instanceID)
	for i, id := range b.order {
		if id == instanceID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Stop drops pending patches and prevents any further sends.
func (b *PatchBatcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.order = nil
	b.pending = make(map[string]*patchSet)
}
