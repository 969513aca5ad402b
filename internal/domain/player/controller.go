package player

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-embed-player/internal/domain/chapter"
	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
)

// Controller is the state machine behind one player instance.
//
// It never holds its own lock while calling into the element, the view or
// the coordinator: elements may deliver events synchronously and the
// coordinator calls back into other controllers.
type Controller struct {
	cfg      Config
	caps     Capabilities
	el       media.Element
	view     View
	screen   Fullscreen
	coord    Coordinator
	progress ProgressStore
	resumeAt float64
	autohide *Autohide

	mu                 sync.Mutex
	state              State
	markers            []chapter.Marker
	initialMuteApplied bool
	resumeApplied      bool
	destroyed          bool
	unbind             []func()

	// renderMu keeps renders in state order.
	renderMu sync.Mutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithView sets the view that draws the player.
func WithView(v View) Option {
	return func(c *Controller) { c.view = v }
}

// WithFullscreen sets the container's fullscreen control. Ignored for audio.
func WithFullscreen(f Fullscreen) Option {
	return func(c *Controller) { c.screen = f }
}

// WithCoordinator sets who is told about play and pause transitions.
func WithCoordinator(co Coordinator) Option {
	return func(c *Controller) { c.coord = co }
}

// WithProgressStore persists the position on pause and clears it on end.
func WithProgressStore(s ProgressStore) Option {
	return func(c *Controller) { c.progress = s }
}

// WithResumeAt seeks to seconds once metadata loads, if it lies inside the media.
func WithResumeAt(seconds float64) Option {
	return func(c *Controller) { c.resumeAt = seconds }
}

// NewController binds a controller to a media element.
func NewController(cfg Config, el media.Element, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if el == nil {
		return nil, errors.New("player: nil media element")
	}

	c := &Controller{
		cfg:   cfg,
		caps:  cfg.Capabilities(),
		el:    el,
		state: NewState(el.Volume(), el.Muted()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.caps.HasFullscreen {
		c.screen = nil
	}
	if c.caps.HasAutohide {
		c.autohide = NewAutohide(cfg.InactivityTimeout(), c.hideControls)
	}

	c.unbind = []func(){
		el.OnEvent(media.EventPlay, c.onPlay),
		el.OnEvent(media.EventPause, c.onPause),
		el.OnEvent(media.EventEnded, c.onEnded),
		el.OnEvent(media.EventVolumeChange, c.onVolumeChange),
		el.OnEvent(media.EventTimeUpdate, c.onTimeUpdate),
		el.OnEvent(media.EventLoadedMetadata, c.onLoadedMetadata),
		el.OnEvent(media.EventError, c.onError),
	}

	log.Debug().
		Str("instance", cfg.InstanceID).
		Str("kind", string(cfg.MediaKind)).
		Int("chapters", len(cfg.Chapters)).
		Msg("Player bound")

	if !math.IsNaN(el.Duration()) {
		c.onLoadedMetadata(media.EventLoadedMetadata)
	} else {
		c.render()
	}
	return c, nil
}

// ID returns the instance id.
func (c *Controller) ID() string {
	return c.cfg.InstanceID
}

// Config returns the configuration the controller was built with.
func (c *Controller) Config() Config {
	return c.cfg
}

// State returns a snapshot of the playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Markers returns the current chapter markers.
func (c *Controller) Markers() []chapter.Marker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chapter.Marker(nil), c.markers...)
}

// IsPlaying reports whether the instance is playing.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.IsPlaying
}

// Presentation returns what the view currently shows.
func (c *Controller) Presentation() Presentation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presentation()
}

// TogglePlayPause plays when paused or ended and pauses when playing.
// The element's play event, not this call, marks the player as playing.
func (c *Controller) TogglePlayPause() {
	if c.isDestroyed() {
		return
	}
	if c.IsPlaying() {
		c.el.Pause()
		return
	}
	c.Play()
}

// Play asks the element to start. A rejected start leaves the player paused.
func (c *Controller) Play() {
	if c.isDestroyed() {
		return
	}
	if err := c.el.Play(); err != nil {
		log.Debug().Err(err).Str("instance", c.cfg.InstanceID).Msg("Playback rejected")
	}
}

// Pause asks the element to pause.
func (c *Controller) Pause() {
	if c.isDestroyed() {
		return
	}
	c.el.Pause()
}

// Suspend stops this instance because another one started playing.
// The state flips immediately so two instances are never playing at once,
// even when the element reports its pause later.
func (c *Controller) Suspend() {
	c.mu.Lock()
	if c.destroyed || !c.state.IsPlaying {
		c.mu.Unlock()
		return
	}
	c.state.IsPlaying = false
	c.state.Phase = PhasePaused
	c.state.ControlsVisible = true
	c.mu.Unlock()

	log.Debug().Str("instance", c.cfg.InstanceID).Msg("Suspended by another player")
	c.cancelAutohide()
	c.el.Pause()
	c.render()
}

// SeekBy moves the playhead by delta seconds, clamped to the media.
// Seeking past the end stops at the end without advancing anything.
func (c *Controller) SeekBy(delta float64) {
	if c.isDestroyed() {
		return
	}
	c.mu.Lock()
	known, duration := c.state.DurationKnown(), c.state.Duration
	c.mu.Unlock()
	if !known {
		return
	}
	c.el.SeekTo(media.Clamp(c.el.CurrentTime()+delta, 0, duration))
}

// Rewind seeks back by the configured rewind step.
func (c *Controller) Rewind() {
	c.SeekBy(-c.cfg.RewindSeconds)
}

// Forward seeks ahead by the configured forward step.
func (c *Controller) Forward() {
	c.SeekBy(c.cfg.ForwardSeconds)
}

// SeekToMarker jumps to the chapter marker at index i.
func (c *Controller) SeekToMarker(i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.markers) {
		c.mu.Unlock()
		return fmt.Errorf("marker %d out of range", i)
	}
	target := c.markers[i].TimeSeconds
	c.mu.Unlock()

	c.el.SeekTo(target)
	return nil
}

// ScrubStart begins a progress bar drag. Time updates stop moving the display.
func (c *Controller) ScrubStart() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.state.IsSeeking = true
	c.mu.Unlock()
}

// ScrubInput moves the displayed position during a drag.
// The element is left alone until the drag commits.
func (c *Controller) ScrubInput(fraction float64) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.state.IsSeeking = true
	if c.state.DurationKnown() {
		c.state.DisplayTime = media.Clamp(fraction, 0, 1) * c.state.Duration
	}
	c.mu.Unlock()

	c.render()
}

// ScrubCommit ends a drag and seeks the element to fraction of the duration.
func (c *Controller) ScrubCommit(fraction float64) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.state.IsSeeking = false
	if !c.state.DurationKnown() {
		c.mu.Unlock()
		return
	}
	target := media.Clamp(fraction, 0, 1) * c.state.Duration
	c.state.CurrentTime = target
	c.state.DisplayTime = target
	if c.state.Phase == PhaseEnded && target < c.state.Duration {
		c.state.Phase = PhasePaused
	}
	c.mu.Unlock()

	c.el.SeekTo(target)
	c.render()
}

// ToggleMute mutes an audible player, remembering its volume, or restores
// the remembered volume (1 if none) on a muted one.
func (c *Controller) ToggleMute() {
	if c.isDestroyed() {
		return
	}
	vol, muted := c.el.Volume(), c.el.Muted()

	c.mu.Lock()
	var target float64
	if muted || vol == 0 {
		target = c.state.LastNonZeroVolume
		if target <= 0 {
			target = 1
		}
		muted = false
	} else {
		c.state.LastNonZeroVolume = vol
		target = 0
		muted = true
	}
	c.mu.Unlock()

	c.el.SetMuted(muted)
	c.el.SetVolume(target)
}

// SetVolume applies a volume slider value. Moving the slider always unmutes.
func (c *Controller) SetVolume(v float64) {
	if c.isDestroyed() {
		return
	}
	c.el.SetMuted(false)
	c.el.SetVolume(media.Clamp(v, 0, 1))
}

// ToggleFullscreen enters or leaves fullscreen. Failures are logged and dropped.
func (c *Controller) ToggleFullscreen() {
	if c.isDestroyed() || c.screen == nil {
		return
	}

	var err error
	if c.screen.Active() {
		err = c.screen.Exit()
	} else {
		err = c.screen.Request()
	}
	if err != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %v", ErrFullscreenDenied, err)).
			Str("instance", c.cfg.InstanceID).
			Msg("Fullscreen toggle failed")
	}
}

// FullscreenChanged mirrors the document's fullscreen state.
func (c *Controller) FullscreenChanged(active bool) {
	if !c.caps.HasFullscreen {
		return
	}
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.state.IsFullscreen = active
	c.mu.Unlock()

	c.render()
}

// PointerActivity shows the controls and restarts the autohide countdown.
// The countdown only runs while playing.
func (c *Controller) PointerActivity() {
	if c.autohide == nil {
		return
	}
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	wasVisible := c.state.ControlsVisible
	c.state.ControlsVisible = true
	playing := c.state.IsPlaying
	c.mu.Unlock()

	if playing {
		c.autohide.Arm()
	} else {
		c.autohide.Cancel()
	}
	if !wasVisible {
		c.render()
	}
}

// HoverLabel returns the tooltip for a fractional position on the progress bar.
func (c *Controller) HoverLabel(fraction float64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return chapter.HoverLabel(c.markers, fraction, c.state.Duration)
}

// HandleKey runs a global keyboard shortcut and reports whether the key was one.
func (c *Controller) HandleKey(key string) bool {
	if c.isDestroyed() {
		return false
	}
	switch key {
	case " ", "Spacebar", "k", "K":
		c.TogglePlayPause()
	case "m", "M":
		c.ToggleMute()
		// Re-derive the icon even if the element did not report a change.
		c.onVolumeChange(media.EventVolumeChange)
	case "ArrowRight":
		c.SeekBy(c.cfg.KeySeekSeconds)
	case "ArrowLeft":
		c.SeekBy(-c.cfg.KeySeekSeconds)
	default:
		return false
	}
	return true
}

// Destroy detaches the controller from its element and stops its timer.
// It is safe to call more than once.
func (c *Controller) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	unbind := c.unbind
	c.unbind = nil
	c.mu.Unlock()

	for _, remove := range unbind {
		remove()
	}
	if c.autohide != nil {
		c.autohide.Stop()
	}
	log.Debug().Str("instance", c.cfg.InstanceID).Msg("Player destroyed")
}

func (c *Controller) onPlay(media.EventKind) {
	if c.isDestroyed() {
		return
	}
	// Others are paused before this instance shows itself as playing.
	if c.coord != nil {
		c.coord.InstancePlaying(c.cfg.InstanceID, c.activate)
	} else {
		c.activate()
	}

	if c.autohide != nil {
		c.autohide.Arm()
	}
	c.render()
}

// activate marks the player as playing. The coordinator runs it while no
// other instance can start.
func (c *Controller) activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.state.IsPlaying = true
	c.state.Phase = PhasePlaying
	c.state.Failed = false
	c.state.ControlsVisible = true
}

func (c *Controller) onPause(media.EventKind) {
	if c.isDestroyed() {
		return
	}
	t := c.el.CurrentTime()

	c.mu.Lock()
	c.state.IsPlaying = false
	if c.state.Phase != PhaseEnded {
		c.state.Phase = PhasePaused
	}
	c.state.ControlsVisible = true
	duration := c.state.Duration
	c.mu.Unlock()

	c.cancelAutohide()
	if c.coord != nil {
		c.coord.InstanceStopped(c.cfg.InstanceID)
	}
	if c.progress != nil && t > 0 && t < duration {
		if err := c.progress.SavePosition(c.cfg.InstanceID, c.cfg.MediaURL, t); err != nil {
			log.Warn().Err(err).Str("instance", c.cfg.InstanceID).Msg("Failed to save position")
		}
	}
	c.render()
}

func (c *Controller) onEnded(media.EventKind) {
	if c.isDestroyed() {
		return
	}
	c.mu.Lock()
	c.state.IsPlaying = false
	c.state.Phase = PhaseEnded
	if c.state.DurationKnown() {
		c.state.CurrentTime = c.state.Duration
		c.state.DisplayTime = c.state.Duration
	}
	c.state.ControlsVisible = true
	c.mu.Unlock()

	c.cancelAutohide()
	if c.coord != nil {
		c.coord.InstanceStopped(c.cfg.InstanceID)
	}
	if c.progress != nil {
		if err := c.progress.ClearPosition(c.cfg.InstanceID, c.cfg.MediaURL); err != nil {
			log.Warn().Err(err).Str("instance", c.cfg.InstanceID).Msg("Failed to clear position")
		}
	}
	c.render()
}

func (c *Controller) onTimeUpdate(media.EventKind) {
	if c.isDestroyed() {
		return
	}
	t := c.el.CurrentTime()

	c.mu.Lock()
	if c.state.IsSeeking {
		c.mu.Unlock()
		return
	}
	c.state.CurrentTime = t
	c.state.DisplayTime = t
	if c.state.Phase == PhaseEnded && t < c.state.Duration {
		c.state.Phase = PhasePaused
	}
	c.mu.Unlock()

	c.render()
}

func (c *Controller) onLoadedMetadata(media.EventKind) {
	if c.isDestroyed() {
		return
	}
	duration, vol := c.el.Duration(), c.el.Volume()

	c.mu.Lock()
	c.state.Duration = duration
	c.markers = chapter.Build(c.cfg.Chapters, duration)
	if c.state.Phase == PhaseIdle {
		c.state.Phase = PhaseReady
	}

	applyMute := c.cfg.InitialMuted && !c.initialMuteApplied
	if applyMute {
		c.initialMuteApplied = true
		if vol > 0 {
			c.state.LastNonZeroVolume = vol
		}
	}

	var resume float64
	if !c.resumeApplied && c.resumeAt > 0 && c.state.DurationKnown() && c.resumeAt < duration {
		c.resumeApplied = true
		resume = c.resumeAt
	}
	markers := len(c.markers)
	c.mu.Unlock()

	log.Debug().
		Str("instance", c.cfg.InstanceID).
		Float64("duration", duration).
		Int("markers", markers).
		Msg("Metadata loaded")

	if applyMute {
		c.el.SetMuted(true)
		c.el.SetVolume(0)
	}
	if resume > 0 {
		c.el.SeekTo(resume)
	}
	c.syncVolume()
	c.render()
}

func (c *Controller) onVolumeChange(media.EventKind) {
	if c.isDestroyed() {
		return
	}
	c.syncVolume()
	c.render()
}

func (c *Controller) onError(media.EventKind) {
	if c.isDestroyed() {
		return
	}
	c.mu.Lock()
	c.state.Failed = true
	c.mu.Unlock()

	log.Warn().Str("instance", c.cfg.InstanceID).Str("url", c.cfg.MediaURL).Msg("Media failed to load")
	c.render()
}

func (c *Controller) hideControls() {
	c.mu.Lock()
	if c.destroyed || !c.state.IsPlaying || !c.state.ControlsVisible {
		c.mu.Unlock()
		return
	}
	c.state.ControlsVisible = false
	c.mu.Unlock()

	c.render()
}

func (c *Controller) cancelAutohide() {
	if c.autohide != nil {
		c.autohide.Cancel()
	}
}

func (c *Controller) syncVolume() {
	vol, muted := c.el.Volume(), c.el.Muted()

	c.mu.Lock()
	c.state.Volume = vol
	c.state.IsMuted = muted
	c.mu.Unlock()
}

func (c *Controller) render() {
	if c.view == nil {
		return
	}
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	p := c.presentation()
	c.mu.Unlock()

	c.view.Render(p)
}

func (c *Controller) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}
