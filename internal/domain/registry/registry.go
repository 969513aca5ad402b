// Package registry keeps the players of one page and enforces that only one
// of them plays at a time. It also routes global keyboard shortcuts to the
// active player.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrDuplicateInstance is returned when an instance id is registered twice.
var ErrDuplicateInstance = errors.New("instance already registered")

// Handle is what the registry needs from a player.
type Handle interface {
	ID() string
	IsPlaying() bool
	// Suspend pauses the player because another one started.
	// IsPlaying must report false once it returns.
	Suspend()
	// HandleKey runs a shortcut and reports whether the key was recognized.
	HandleKey(key string) bool
}

// Gate decides whether an instance may receive keyboard shortcuts.
type Gate interface {
	Allowed(instanceID string) bool
}

// FocusTarget describes the element holding keyboard focus when a key was pressed.
type FocusTarget struct {
	Tag             string `json:"tag"`
	ContentEditable bool   `json:"contentEditable"`
}

// IsTextEntry reports whether typing into the focused element must not be hijacked.
func (f FocusTarget) IsTextEntry() bool {
	if f.ContentEditable {
		return true
	}
	switch strings.ToLower(f.Tag) {
	case "input", "textarea", "select":
		return true
	}
	return false
}

// KeyEvent is a key press observed at page level.
type KeyEvent struct {
	Key   string      `json:"key"`
	Focus FocusTarget `json:"focus"`
}

// Registry is the set of players mounted on one page.
type Registry struct {
	gate Gate

	// playMu serializes InstancePlaying so pause-others-then-activate is atomic
	// with respect to other play transitions. It is never held by
	// InstanceStopped, which runs re-entrantly from Suspend.
	playMu sync.Mutex

	mu       sync.RWMutex
	players  map[string]Handle
	order    []string
	activeID string
}

// New creates an empty registry. gate may be nil, in which case every
// instance may receive shortcuts.
func New(gate Gate) *Registry {
	return &Registry{
		gate:    gate,
		players: make(map[string]Handle),
	}
}

// Register adds a player.
func (r *Registry) Register(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := h.ID()
	if _, exists := r.players[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateInstance, id)
	}
	r.players[id] = h
	r.order = append(r.order, id)

	log.Debug().Str("instance", id).Int("players", len(r.players)).Msg("Player registered")
	return nil
}

// Unregister removes a player. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.players[id]; !exists {
		return
	}
	delete(r.players, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.activeID == id {
		r.activeID = ""
	}

	log.Debug().Str("instance", id).Int("players", len(r.players)).Msg("Player unregistered")
}

// InstancePlaying suspends every other playing instance, runs activate to
// mark id as playing and then makes id the active player. All of it happens
// under one lock, so a concurrent start always sees id as playing.
func (r *Registry) InstancePlaying(id string, activate func()) {
	r.playMu.Lock()
	defer r.playMu.Unlock()

	r.mu.RLock()
	others := make([]Handle, 0, len(r.order))
	for _, o := range r.order {
		if o != id {
			others = append(others, r.players[o])
		}
	}
	r.mu.RUnlock()

	for _, h := range others {
		if h.IsPlaying() {
			h.Suspend()
		}
	}
	if activate != nil {
		activate()
	}

	r.mu.Lock()
	if _, exists := r.players[id]; exists {
		r.activeID = id
	}
	r.mu.Unlock()
}

// InstanceStopped clears the active player if it is id.
func (r *Registry) InstanceStopped(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeID == id {
		r.activeID = ""
	}
}

// Active returns the active instance id, or "" if none.
func (r *Registry) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// Get returns the registered player with the given id.
func (r *Registry) Get(id string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.players[id]
	return h, ok
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// DispatchGlobalKey routes a page-level key press to the active player and
// reports whether a player handled it. Keys typed into text entry are ignored.
func (r *Registry) DispatchGlobalKey(ev KeyEvent) bool {
	if ev.Focus.IsTextEntry() {
		return false
	}

	r.mu.RLock()
	id := r.activeID
	h, ok := r.players[id]
	r.mu.RUnlock()
	if id == "" || !ok {
		return false
	}
	if r.gate != nil && !r.gate.Allowed(id) {
		log.Debug().Str("instance", id).Str("key", ev.Key).Msg("Shortcut suppressed: player off screen")
		return false
	}
	return h.HandleKey(ev.Key)
}
