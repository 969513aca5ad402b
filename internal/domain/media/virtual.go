package media

import (
	"math"
	"sync"
)

// Virtual is an in-memory Element. It behaves like a browser media element
// with events delivered synchronously. It backs headless players and tests.
type Virtual struct {
	Listeners

	mu          sync.Mutex
	kind        Kind
	currentTime float64
	duration    float64
	paused      bool
	ended       bool
	volume      float64
	muted       bool
	rejectPlay  bool
}

// NewVirtual creates a paused element with unknown duration and full volume.
func NewVirtual(kind Kind) *Virtual {
	return &Virtual{
		kind:     kind,
		duration: math.NaN(),
		paused:   true,
		volume:   1,
	}
}

// Kind returns the element's media kind.
func (v *Virtual) Kind() Kind {
	return v.kind
}

// Load sets the duration and fires loadedmetadata.
func (v *Virtual) Load(duration float64) {
	v.mu.Lock()
	v.duration = duration
	v.currentTime = 0
	v.ended = false
	v.mu.Unlock()

	v.Emit(EventLoadedMetadata)
}

// Fail fires an error event, as when the source cannot be fetched.
func (v *Virtual) Fail() {
	v.Emit(EventError)
}

// RejectPlay makes subsequent Play calls fail with ErrPlaybackRejected.
func (v *Virtual) RejectPlay(reject bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rejectPlay = reject
}

// Advance simulates playback progress to t seconds and fires timeupdate.
// Reaching the duration while playing fires pause and ended.
func (v *Virtual) Advance(t float64) {
	v.mu.Lock()
	v.currentTime = t
	reachedEnd := !v.paused && !math.IsNaN(v.duration) && t >= v.duration
	if reachedEnd {
		v.currentTime = v.duration
		v.paused = true
		v.ended = true
	}
	v.mu.Unlock()

	v.Emit(EventTimeUpdate)
	if reachedEnd {
		v.Emit(EventPause)
		v.Emit(EventEnded)
	}
}

// Play starts playback, restarting from zero when ended.
func (v *Virtual) Play() error {
	v.mu.Lock()
	if v.rejectPlay {
		v.mu.Unlock()
		return ErrPlaybackRejected
	}
	if !v.paused {
		v.mu.Unlock()
		return nil
	}
	if v.ended {
		v.currentTime = 0
		v.ended = false
	}
	v.paused = false
	v.mu.Unlock()

	v.Emit(EventPlay)
	return nil
}

// Pause pauses playback.
func (v *Virtual) Pause() {
	v.mu.Lock()
	if v.paused {
		v.mu.Unlock()
		return
	}
	v.paused = true
	v.mu.Unlock()

	v.Emit(EventPause)
}

// SeekTo moves the playhead and fires timeupdate.
func (v *Virtual) SeekTo(seconds float64) {
	v.mu.Lock()
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	if !math.IsNaN(v.duration) && seconds > v.duration {
		seconds = v.duration
	}
	v.currentTime = seconds
	v.ended = false
	v.mu.Unlock()

	v.Emit(EventTimeUpdate)
}

// CurrentTime returns the playhead position in seconds.
func (v *Virtual) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentTime
}

// Duration returns the media length in seconds, NaN before metadata.
func (v *Virtual) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.duration
}

// Paused reports whether playback is paused.
func (v *Virtual) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

// Volume returns the volume in [0, 1].
func (v *Virtual) Volume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.volume
}

// SetVolume sets the volume, firing volumechange when it changes.
func (v *Virtual) SetVolume(vol float64) {
	vol = Clamp(vol, 0, 1)
	v.mu.Lock()
	changed := v.volume != vol
	v.volume = vol
	v.mu.Unlock()

	if changed {
		v.Emit(EventVolumeChange)
	}
}

// Muted reports the muted flag.
func (v *Virtual) Muted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.muted
}

// SetMuted sets the muted flag, firing volumechange when it changes.
func (v *Virtual) SetMuted(muted bool) {
	v.mu.Lock()
	changed := v.muted != muted
	v.muted = muted
	v.mu.Unlock()

	if changed {
		v.Emit(EventVolumeChange)
	}
}

// OnEvent registers a handler.
func (v *Virtual) OnEvent(kind EventKind, h Handler) func() {
	return v.Add(kind, h)
}
