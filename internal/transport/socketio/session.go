package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-embed-player/internal/config"
	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
	"github.com/edumarques81/stellar-embed-player/internal/domain/player"
	"github.com/edumarques81/stellar-embed-player/internal/domain/registry"
	"github.com/edumarques81/stellar-embed-player/internal/domain/viewport"
	"github.com/edumarques81/stellar-embed-player/internal/embed"
	"github.com/edumarques81/stellar-embed-player/internal/render"
)

// Events sent to the page.
const (
	EventMounted    = "mounted"
	EventMountError = "mountError"
	EventCommand    = "command"
	EventPatch      = "patch"
	EventTooltip    = "tooltip"
	EventPushState  = "pushState"
)

// Control actions sent by the page.
const (
	ActionToggle      = "toggle"
	ActionRewind      = "rewind"
	ActionForward     = "forward"
	ActionScrubStart  = "scrubStart"
	ActionScrubInput  = "scrubInput"
	ActionScrubCommit = "scrubCommit"
	ActionToggleMute  = "toggleMute"
	ActionVolume      = "volume"
	ActionFullscreen  = "fullscreen"
	ActionPointer     = "pointer"
	ActionHover       = "hover"
	ActionMarker      = "marker"
)

var (
	// ErrUnknownPlayer is returned for messages naming a player that is not mounted.
	ErrUnknownPlayer = errors.New("unknown player")

	// ErrUnknownAction is returned for control messages with an unknown action.
	ErrUnknownAction = errors.New("unknown action")

	// ErrSessionClosed is returned for messages arriving after the page left.
	ErrSessionClosed = errors.New("session closed")
)

// Emitter sends an event to the page.
type Emitter func(event string, args ...any)

// ElementOpener creates the element of a player whose sound does not come
// out of the browser.
type ElementOpener func(ctx context.Context, cfg player.Config) (media.Element, error)

// SessionOptions are the daemon-wide dependencies shared by every page.
type SessionOptions struct {
	Presets     *config.Presets     // nil uses the built-in defaults
	Positions   embed.PositionStore // nil disables resume positions
	OpenMPD     ElementOpener       // nil plays mpd output in the browser
	PatchWindow time.Duration
	Threshold   float64 // viewport visibility threshold
}

// MountRequest asks for a player in a container.
type MountRequest struct {
	Container string          `json:"container"`
	Config    json.RawMessage `json:"config"`
}

// UnmountRequest removes the player of a container.
type UnmountRequest struct {
	Container string `json:"container"`
}

// ControlMessage is a user action on a player's controls.
type ControlMessage struct {
	InstanceID string  `json:"instanceId"`
	Action     string  `json:"action"`
	Value      float64 `json:"value"`
}

// VisibilityMessage reports a player's intersection ratio.
type VisibilityMessage struct {
	InstanceID string  `json:"instanceId"`
	Ratio      float64 `json:"ratio"`
}

// FullscreenMessage reports a document fullscreen change. InstanceID names
// the player whose container went fullscreen; it is empty on exit.
type FullscreenMessage struct {
	InstanceID string `json:"instanceId,omitempty"`
	Active     bool   `json:"active"`
}

// MountedMessage confirms a mount.
type MountedMessage struct {
	Container  string     `json:"container"`
	InstanceID string     `json:"instanceId"`
	Kind       media.Kind `json:"kind"`
}

// MountErrorMessage reports a failed mount. Placeholder is set when the
// container has no media and shows the placeholder instead.
type MountErrorMessage struct {
	Container   string `json:"container"`
	Error       string `json:"error"`
	Placeholder string `json:"placeholder,omitempty"`
}

// CommandMessage drives a media element or container in the page.
type CommandMessage struct {
	InstanceID string `json:"instanceId"`
	Command    string `json:"command"`
	Value      any    `json:"value,omitempty"`
}

// StateRequest asks for a player's current state.
type StateRequest struct {
	InstanceID string `json:"instanceId"`
}

// StateMessage answers a StateRequest.
type StateMessage struct {
	InstanceID string         `json:"instanceId"`
	Active     bool           `json:"active"`
	State      map[string]any `json:"state"`
}

// PatchMessage carries DOM patches for one player.
type PatchMessage struct {
	InstanceID string         `json:"instanceId"`
	Patches    []render.Patch `json:"patches"`
}

// TooltipMessage is the progress bar hover label.
type TooltipMessage struct {
	InstanceID string  `json:"instanceId"`
	Label      string  `json:"label"`
	Position   float64 `json:"position"`
}

// Session is one connected page: its players, their registry and viewport gate.
type Session struct {
	id      string
	emit    Emitter
	opts    SessionOptions
	mounter *embed.Mounter
	batcher *PatchBatcher
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	nodes   map[string]*embed.Node
	remotes map[string]*RemoteElement
	screens map[string]*RemoteFullscreen
	closed  bool
}

// NewSession creates the session of a page.
func NewSession(id string, emit Emitter, opts SessionOptions) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:      id,
		emit:    emit,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		nodes:   make(map[string]*embed.Node),
		remotes: make(map[string]*RemoteElement),
		screens: make(map[string]*RemoteFullscreen),
	}
	s.batcher = NewPatchBatcher(opts.PatchWindow, func(instanceID string, patches []render.Patch) {
		s.emit(EventPatch, PatchMessage{InstanceID: instanceID, Patches: patches})
	})

	gate := viewport.NewGate(opts.Threshold)
	mopts := []embed.Option{
		embed.WithViews(func(player.Config) player.View {
			return render.NewDOMView(s.batcher.Add)
		}),
		embed.WithFullscreen(func(_ embed.Container, cfg player.Config) player.Fullscreen {
			screen := NewRemoteFullscreen(s.commander(cfg.InstanceID))
			s.mu.Lock()
			// A mount losing a duplicate instance id must not replace the winner's screen.
			if _, taken := s.screens[cfg.InstanceID]; !taken {
				s.screens[cfg.InstanceID] = screen
			}
			s.mu.Unlock()
			return screen
		}),
	}
	if opts.Positions != nil {
		mopts = append(mopts, embed.WithPositions(opts.Positions))
	}
	s.mounter = embed.NewMounter(registry.New(gate), gate, mopts...)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Mounter returns the page's mounter.
func (s *Session) Mounter() *embed.Mounter {
	return s.mounter
}

func (s *Session) defaults(kind media.Kind) player.Config {
	if s.opts.Presets == nil {
		return player.DefaultConfig(kind)
	}
	return s.opts.Presets.For(kind)
}

func (s *Session) commander(instanceID string) Commander {
	return func(command string, value any) {
		s.emit(EventCommand, CommandMessage{InstanceID: instanceID, Command: command, Value: value})
	}
}

func (s *Session) node(key string) *embed.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[key]
	if !ok {
		n = embed.NewNode(key)
		s.nodes[key] = n
	}
	return n
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Mount binds a player to a container of the page. Mounting a container
// twice confirms the existing player.
func (s *Session) Mount(req MountRequest) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if req.Container == "" {
		return s.mountFailed(req.Container, errors.New("missing container"))
	}
	if h, ok := s.mounter.Lookup(req.Container); ok {
		s.emit(EventMounted, MountedMessage{Container: req.Container, InstanceID: h.ID(), Kind: h.Controller.Config().MediaKind})
		return nil
	}

	raw := req.Config
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	cfg, err := render.ParseConfig(raw, s.defaults)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return s.mountFailed(req.Container, err)
	}
	if _, taken := s.mounter.Player(cfg.InstanceID); taken {
		return s.mountFailed(req.Container, fmt.Errorf("%w: %s", registry.ErrDuplicateInstance, cfg.InstanceID))
	}

	el, remote, err := s.element(cfg)
	if err != nil {
		return s.mountFailed(req.Container, err)
	}

	h, err := s.mounter.InitPlayer(s.node(req.Container), cfg, el)
	if err != nil {
		if closer, ok := el.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		return s.mountFailed(req.Container, err)
	}
	if remote != nil {
		s.mu.Lock()
		s.remotes[cfg.InstanceID] = remote
		s.mu.Unlock()
	}

	s.emit(EventMounted, MountedMessage{Container: req.Container, InstanceID: h.ID(), Kind: cfg.MediaKind})
	return nil
}

func (s *Session) element(cfg player.Config) (media.Element, *RemoteElement, error) {
	if cfg.Output == player.OutputMPD {
		if s.opts.OpenMPD == nil {
			log.Warn().Str("instance", cfg.InstanceID).Msg("MPD output disabled, playing in the browser")
		} else if el, err := s.opts.OpenMPD(s.ctx, cfg); err != nil {
			log.Warn().Err(err).Str("instance", cfg.InstanceID).Msg("MPD output unavailable, playing in the browser")
		} else {
			return el, nil, nil
		}
	}
	remote := NewRemoteElement(s.commander(cfg.InstanceID))
	return remote, remote, nil
}

func (s *Session) mountFailed(container string, err error) error {
	msg := MountErrorMessage{Container: container, Error: err.Error()}
	if errors.Is(err, player.ErrConfigurationAbsent) {
		msg.Placeholder = render.Placeholder()
		log.Debug().Str("session", s.id).Str("container", container).Msg("No media configured")
	} else {
		log.Warn().Err(err).Str("session", s.id).Str("container", container).Msg("Mount failed")
	}
	s.emit(EventMountError, msg)
	return err
}

// Unmount destroys the player of a container.
func (s *Session) Unmount(req UnmountRequest) error {
	h, ok := s.mounter.Lookup(req.Container)
	if !ok {
		return fmt.Errorf("%w: container %s", ErrUnknownPlayer, req.Container)
	}
	s.mounter.DestroyPlayer(h)
	s.forget(h.ID())

	s.mu.Lock()
	delete(s.nodes, req.Container)
	s.mu.Unlock()
	return nil
}

func (s *Session) forget(instanceID string) {
	s.batcher.Forget(instanceID)
	s.mu.Lock()
	delete(s.remotes, instanceID)
	delete(s.screens, instanceID)
	s.mu.Unlock()
}

// Media applies a media event forwarded by the page.
func (s *Session) Media(ev MediaEvent) error {
	s.mu.Lock()
	remote, ok := s.remotes[ev.InstanceID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, ev.InstanceID)
	}
	remote.Apply(ev)
	return nil
}

// Control runs a user action on a player.
func (s *Session) Control(msg ControlMessage) error {
	h, ok := s.mounter.Player(msg.InstanceID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, msg.InstanceID)
	}
	c := h.Controller

	switch msg.Action {
	case ActionToggle:
		c.TogglePlayPause()
	case ActionRewind:
		c.Rewind()
	case ActionForward:
		c.Forward()
	case ActionScrubStart:
		c.ScrubStart()
	case ActionScrubInput:
		c.ScrubInput(msg.Value)
	case ActionScrubCommit:
		c.ScrubCommit(msg.Value)
	case ActionToggleMute:
		c.ToggleMute()
	case ActionVolume:
		c.SetVolume(msg.Value)
	case ActionFullscreen:
		c.ToggleFullscreen()
	case ActionPointer:
		c.PointerActivity()
	case ActionHover:
		s.emit(EventTooltip, TooltipMessage{
			InstanceID: msg.InstanceID,
			Label:      c.HoverLabel(msg.Value),
			Position:   msg.Value,
		})
	case ActionMarker:
		return c.SeekToMarker(int(msg.Value))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}
	return nil
}

// PushState sends a player's state to the page.
func (s *Session) PushState(req StateRequest) error {
	h, ok := s.mounter.Player(req.InstanceID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, req.InstanceID)
	}
	s.emit(EventPushState, StateMessage{
		InstanceID: req.InstanceID,
		Active:     s.mounter.Registry().Active() == req.InstanceID,
		State:      h.Controller.State().ToJSON(),
	})
	return nil
}

// KeyDown routes a page-level key press and reports whether a player took it.
func (s *Session) KeyDown(ev registry.KeyEvent) bool {
	return s.mounter.Registry().DispatchGlobalKey(ev)
}

// Visibility records a player's intersection ratio.
func (s *Session) Visibility(msg VisibilityMessage) {
	s.mounter.Gate().Update(msg.InstanceID, msg.Ratio)
}

// FullscreenChange mirrors the document's fullscreen state onto the players.
// Only the named player is fullscreen; every other one is not.
func (s *Session) FullscreenChange(msg FullscreenMessage) {
	s.mu.Lock()
	screens := make(map[string]*RemoteFullscreen, len(s.screens))
	for id, screen := range s.screens {
		screens[id] = screen
	}
	s.mu.Unlock()

	for id, screen := range screens {
		active := msg.Active && id == msg.InstanceID
		if screen.Active() == active {
			continue
		}
		screen.Set(active)
		if h, ok := s.mounter.Player(id); ok {
			h.Controller.FullscreenChanged(active)
		}
	}
}

// Close destroys every player of the page. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.batcher.Stop()
	s.mounter.DestroyAll()
	s.cancel()

	s.mu.Lock()
	s.nodes = make(map[string]*embed.Node)
	s.remotes = make(map[string]*RemoteElement)
	s.screens = make(map[string]*RemoteFullscreen)
	s.mu.Unlock()

	log.Debug().Str("session", s.id).Msg("Session closed")
}
