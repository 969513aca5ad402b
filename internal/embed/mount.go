// Package embed mounts players into page containers and tears them down.
package embed

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
	"github.com/edumarques81/stellar-embed-player/internal/domain/player"
	"github.com/edumarques81/stellar-embed-player/internal/domain/registry"
	"github.com/edumarques81/stellar-embed-player/internal/domain/viewport"
)

// ErrNoMediaElement is returned when a container has no media element to bind.
var ErrNoMediaElement = errors.New("container has no media element")

// PositionStore saves and restores resume positions.
type PositionStore interface {
	player.ProgressStore
	LoadPosition(instanceID, mediaURL string) (float64, bool, error)
}

// ViewFactory builds the view for a newly mounted player.
type ViewFactory func(cfg player.Config) player.View

// FullscreenFactory builds the fullscreen control for a video player's container.
type FullscreenFactory func(c Container, cfg player.Config) player.Fullscreen

// Handle is a mounted player.
type Handle struct {
	Container  Container
	Controller *player.Controller
	Element    media.Element
}

// ID returns the player's instance id.
func (h *Handle) ID() string {
	return h.Controller.ID()
}

// Mounter binds players to containers of one page. It owns no players itself;
// each Handle is released with DestroyPlayer.
type Mounter struct {
	reg       *registry.Registry
	gate      *viewport.Gate
	views     ViewFactory
	screens   FullscreenFactory
	positions PositionStore

	mu      sync.Mutex
	handles map[string]*Handle // by container key
}

// Option configures a Mounter.
type Option func(*Mounter)

// WithViews sets the view factory.
func WithViews(f ViewFactory) Option {
	return func(m *Mounter) { m.views = f }
}

// WithFullscreen sets the fullscreen factory.
func WithFullscreen(f FullscreenFactory) Option {
	return func(m *Mounter) { m.screens = f }
}

// WithPositions enables resume positions.
func WithPositions(s PositionStore) Option {
	return func(m *Mounter) { m.positions = s }
}

// NewMounter creates a mounter for one page.
func NewMounter(reg *registry.Registry, gate *viewport.Gate, opts ...Option) *Mounter {
	m := &Mounter{
		reg:     reg,
		gate:    gate,
		handles: make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the page registry.
func (m *Mounter) Registry() *registry.Registry {
	return m.reg
}

// Gate returns the page viewport gate.
func (m *Mounter) Gate() *viewport.Gate {
	return m.gate
}

// InitPlayer binds a player to a container. Calling it again on a container
// that is already initialized returns the existing handle and binds nothing.
// A configuration without media returns player.ErrConfigurationAbsent and the
// caller shows the placeholder instead.
func (m *Mounter) InitPlayer(c Container, cfg player.Config, el media.Element) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles[c.Key()]; ok && initialized(c) {
		log.Debug().Str("container", c.Key()).Msg("Container already initialized")
		return h, nil
	}
	if el == nil {
		return nil, ErrNoMediaElement
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []player.Option{player.WithCoordinator(m.reg)}
	if m.views != nil {
		opts = append(opts, player.WithView(m.views(cfg)))
	}
	if m.screens != nil && cfg.Capabilities().HasFullscreen {
		opts = append(opts, player.WithFullscreen(m.screens(c, cfg)))
	}
	if m.positions != nil {
		opts = append(opts, player.WithProgressStore(m.positions))
		pos, ok, err := m.positions.LoadPosition(cfg.InstanceID, cfg.MediaURL)
		if err != nil {
			log.Warn().Err(err).Str("instance", cfg.InstanceID).Msg("Failed to load resume position")
		} else if ok {
			opts = append(opts, player.WithResumeAt(pos))
		}
	}

	ctrl, err := player.NewController(cfg, el, opts...)
	if err != nil {
		return nil, err
	}
	if err := m.reg.Register(ctrl); err != nil {
		ctrl.Destroy()
		return nil, fmt.Errorf("mount %s: %w", c.Key(), err)
	}
	if m.gate != nil {
		m.gate.Observe(cfg.InstanceID, cfg.GateKeyboard)
	}

	h := &Handle{Container: c, Controller: ctrl, Element: el}
	m.handles[c.Key()] = h
	c.SetData(InitializedAttr, "true")

	log.Info().
		Str("container", c.Key()).
		Str("instance", cfg.InstanceID).
		Str("kind", string(cfg.MediaKind)).
		Msg("Player mounted")
	return h, nil
}

// DestroyPlayer unregisters a player, stops observing it and detaches its
// controller. The container can be initialized again afterwards.
func (m *Mounter) DestroyPlayer(h *Handle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	if cur, ok := m.handles[h.Container.Key()]; ok && cur == h {
		delete(m.handles, h.Container.Key())
	}
	m.mu.Unlock()

	id := h.ID()
	m.reg.Unregister(id)
	if m.gate != nil {
		m.gate.Disconnect(id)
	}
	h.Controller.Destroy()
	h.Container.RemoveData(InitializedAttr)

	if closer, ok := h.Element.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Debug().Err(err).Str("instance", id).Msg("Failed to close media element")
		}
	}
	log.Info().Str("container", h.Container.Key()).Str("instance", id).Msg("Player destroyed")
}

// Lookup finds a mounted player by container key.
func (m *Mounter) Lookup(containerKey string) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[containerKey]
	return h, ok
}

// Player finds a mounted player by instance id.
func (m *Mounter) Player(instanceID string) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		if h.ID() == instanceID {
			return h, true
		}
	}
	return nil, false
}

// Handles returns every mounted player.
func (m *Mounter) Handles() []*Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, h)
	}
	return out
}

// DestroyAll tears down every mounted player, as when the page goes away.
func (m *Mounter) DestroyAll() {
	for _, h := range m.Handles() {
		m.DestroyPlayer(h)
	}
}
