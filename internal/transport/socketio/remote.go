package socketio

import (
	"math"
	"sync"

	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
)

// Commands sent to the page's media element.
const (
	CommandPlay       = "play"
	CommandPause      = "pause"
	CommandSeek       = "seek"
	CommandVolume     = "volume"
	CommandMuted      = "muted"
	CommandFullscreen = "fullscreen"
)

// Commander sends a command to one player's element in the page.
type Commander func(command string, value any)

// MediaEvent is a native media event forwarded by the page, together with the
// element's state at the time it fired.
type MediaEvent struct {
	InstanceID  string          `json:"instanceId"`
	Event       media.EventKind `json:"event"`
	CurrentTime float64         `json:"currentTime"`
	Duration    *float64        `json:"duration"` // null until metadata loads
	Volume      *float64        `json:"volume"`
	Muted       *bool           `json:"muted"`
	Paused      *bool           `json:"paused"`
}

// RemoteElement is a media.Element living in the browser. Methods send
// commands to the page; the page's media events update its state.
type RemoteElement struct {
	media.Listeners

	send Commander

	mu          sync.Mutex
	currentTime float64
	duration    float64
	paused      bool
	volume      float64
	muted       bool
}

// NewRemoteElement creates a paused element with unknown duration.
func NewRemoteElement(send Commander) *RemoteElement {
	return &RemoteElement{
		send:     send,
		duration: math.NaN(),
		paused:   true,
		volume:   1,
	}
}

// Play asks the page to start playback. A refusal by the browser shows up
// as the absence of a play event.
func (e *RemoteElement) Play() error {
	e.send(CommandPlay, nil)
	return nil
}

func (e *RemoteElement) Pause() {
	e.send(CommandPause, nil)
}

// SeekTo moves the playhead. The position is updated locally right away so
// that reads before the page answers see the new time.
func (e *RemoteElement) SeekTo(seconds float64) {
	e.mu.Lock()
	if !math.IsNaN(e.duration) {
		seconds = media.Clamp(seconds, 0, e.duration)
	} else if seconds < 0 {
		seconds = 0
	}
	e.currentTime = seconds
	e.mu.Unlock()

	e.send(CommandSeek, seconds)
}

func (e *RemoteElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTime
}

func (e *RemoteElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *RemoteElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *RemoteElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *RemoteElement) SetVolume(v float64) {
	v = media.Clamp(v, 0, 1)
	e.mu.Lock()
	e.volume = v
	e.mu.Unlock()

	e.send(CommandVolume, v)
}

func (e *RemoteElement) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

func (e *RemoteElement) SetMuted(muted bool) {
	e.mu.Lock()
	e.muted = muted
	e.mu.Unlock()

	e.send(CommandMuted, muted)
}

func (e *RemoteElement) OnEvent(kind media.EventKind, h media.Handler) func() {
	return e.Add(kind, h)
}

// Apply records the state carried by a page event and fires the event.
func (e *RemoteElement) Apply(ev MediaEvent) {
	e.mu.Lock()
	if ev.CurrentTime >= 0 {
		e.currentTime = ev.CurrentTime
	}
	if ev.Duration != nil && *ev.Duration > 0 && !math.IsInf(*ev.Duration, 0) {
		e.duration = *ev.Duration
	}
	if ev.Volume != nil {
		e.volume = media.Clamp(*ev.Volume, 0, 1)
	}
	if ev.Muted != nil {
		e.muted = *ev.Muted
	}
	switch {
	case ev.Paused != nil:
		e.paused = *ev.Paused
	case ev.Event == media.EventPlay:
		e.paused = false
	case ev.Event == media.EventPause, ev.Event == media.EventEnded:
		e.paused = true
	}
	if ev.Event == media.EventEnded && !math.IsNaN(e.duration) {
		e.currentTime = e.duration
	}
	e.mu.Unlock()

	if ev.Event != "" {
		e.Emit(ev.Event)
	}
}

// RemoteFullscreen is the fullscreen state of a video player's container in
// the page. The page confirms changes with fullscreenchange messages.
type RemoteFullscreen struct {
	send Commander

	mu     sync.Mutex
	active bool
}

// NewRemoteFullscreen creates a fullscreen control that is not active.
func NewRemoteFullscreen(send Commander) *RemoteFullscreen {
	return &RemoteFullscreen{send: send}
}

func (f *RemoteFullscreen) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *RemoteFullscreen) Request() error {
	f.send(CommandFullscreen, true)
	return nil
}

func (f *RemoteFullscreen) Exit() error {
	f.send(CommandFullscreen, false)
	return nil
}

// Set records the state the page reported.
func (f *RemoteFullscreen) Set(active bool) {
	f.mu.Lock()
	f.active = active
	f.mu.Unlock()
}
