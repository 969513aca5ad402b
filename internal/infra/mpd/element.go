package mpd

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
)

// Backend is the part of Client an Element drives.
type Backend interface {
	Status() (mpd.Attrs, error)
	CurrentSong() (mpd.Attrs, error)
	Play(pos int) error
	Pause(pause bool) error
	Stop() error
	Seek(seconds int) error
	SetVolume(vol int) error
	Clear() error
	Add(uri string) error
}

// DefaultPollInterval is how often a playing Element refreshes its position.
const DefaultPollInterval = 250 * time.Millisecond

// Element is an audio media.Element whose sound comes out of MPD.
// MPD has no mute, so muting sets the mixer to zero and remembers the volume.
type Element struct {
	media.Listeners

	backend Backend
	uri     string
	poll    time.Duration

	seq     atomic.Uint64
	applied uint64

	mu       sync.Mutex
	queued   bool
	state    string // MPD play state: "play", "pause" or "stop"
	elapsed  float64
	duration float64
	volume   float64
	muted    bool
	cancel   context.CancelFunc
	release  func()
}

// NewElement creates an element that plays uri through backend.
func NewElement(backend Backend, uri string) *Element {
	return &Element{
		backend:  backend,
		uri:      uri,
		poll:     DefaultPollInterval,
		state:    "stop",
		duration: math.NaN(),
		volume:   1,
	}
}

// SetPollInterval changes the position refresh interval. Call before Start.
func (e *Element) SetPollInterval(d time.Duration) {
	if d > 0 {
		e.poll = d
	}
}

// Load queues the media in MPD and fires loadedmetadata once MPD reports its length.
func (e *Element) Load() error {
	if err := e.backend.Clear(); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	if err := e.backend.Add(e.uri); err != nil {
		e.Emit(media.EventError)
		return fmt.Errorf("queue %s: %w", e.uri, err)
	}

	e.mu.Lock()
	e.queued = true
	e.mu.Unlock()

	e.Refresh()
	return nil
}

// Start refreshes the element from MPD until ctx is done or Close is called.
// Subsystem names arriving on changes (from Client.Watch) trigger an
// immediate refresh; changes may be nil.
func (e *Element) Start(ctx context.Context, changes <-chan string) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	go func() {
		ticker := time.NewTicker(e.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case subsystem, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				if subsystem == "player" || subsystem == "mixer" {
					e.Refresh()
				}
			case <-ticker.C:
				e.mu.Lock()
				playing := e.state == "play"
				e.mu.Unlock()
				if playing {
					e.Refresh()
				}
			}
		}
	}()
}

// Close stops the refresh loop. If MPD is still playing this element's
// song it is stopped, since no player is left to control it.
func (e *Element) Close() error {
	e.mu.Lock()
	cancel, release := e.cancel, e.release
	e.cancel, e.release = nil, nil
	queued := e.queued
	e.queued = false
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if release != nil {
		release()
	}
	if !queued {
		return nil
	}

	status, err := e.backend.Status()
	if err != nil {
		return fmt.Errorf("close %s: %w", e.uri, err)
	}
	if status["state"] == "stop" {
		return nil
	}
	song, err := e.backend.CurrentSong()
	if err != nil {
		return fmt.Errorf("close %s: %w", e.uri, err)
	}
	if song["file"] != e.uri {
		return nil
	}
	if err := e.backend.Stop(); err != nil {
		return fmt.Errorf("stop %s: %w", e.uri, err)
	}
	log.Debug().Str("uri", e.uri).Msg("MPD stopped on close")
	return nil
}

// Refresh reads MPD's status and fires events for whatever changed.
func (e *Element) Refresh() {
	seq := e.seq.Add(1)

	status, err := e.backend.Status()
	if err != nil {
		log.Debug().Err(err).Str("uri", e.uri).Msg("MPD status unavailable")
		return
	}
	song, err := e.backend.CurrentSong()
	if err != nil {
		song = mpd.Attrs{}
	}

	e.mu.Lock()
	if seq <= e.applied {
		e.mu.Unlock()
		return
	}
	e.applied = seq
	events := e.applyLocked(status, song)
	e.mu.Unlock()

	for _, ev := range events {
		e.Emit(ev)
	}
}

func (e *Element) applyLocked(status, song mpd.Attrs) []media.EventKind {
	if !e.queued {
		return nil
	}
	var events []media.EventKind

	// Another player sharing the daemon may have replaced the queue.
	if song["file"] != e.uri {
		if st := status["state"]; st == "play" || st == "pause" {
			// Replaced, not finished: keep the position so the next Play resumes it.
			if e.state == "play" {
				events = append(events, media.EventPause)
			}
			e.state = "stop"
			return events
		}
		status = mpd.Attrs{"state": "stop", "volume": status["volume"]}
		song = mpd.Attrs{}
	}

	if d, ok := parseDuration(status, song); ok && d != e.duration {
		firstLoad := math.IsNaN(e.duration)
		e.duration = d
		if firstLoad {
			events = append(events, media.EventLoadedMetadata)
		}
	}

	if v, err := strconv.Atoi(status["volume"]); err == nil && v >= 0 && !e.muted {
		vol := float64(v) / 100
		if vol != e.volume {
			e.volume = vol
			events = append(events, media.EventVolumeChange)
		}
	}

	state := status["state"]
	if state == "" {
		state = "stop"
	}

	elapsed := e.elapsed
	if t, err := strconv.ParseFloat(status["elapsed"], 64); err == nil {
		elapsed = t
	}
	finished := e.state == "play" && state == "stop"
	if finished && !math.IsNaN(e.duration) {
		elapsed = e.duration
	}
	if elapsed != e.elapsed {
		e.elapsed = elapsed
		events = append(events, media.EventTimeUpdate)
	}

	if state != e.state {
		prev := e.state
		e.state = state
		switch {
		case state == "play":
			events = append(events, media.EventPlay)
		case prev == "play" && state == "pause":
			events = append(events, media.EventPause)
		case finished:
			events = append(events, media.EventPause, media.EventEnded)
		}
	}
	return events
}

func parseDuration(status, song mpd.Attrs) (float64, bool) {
	for _, raw := range []string{status["duration"], song["duration"], song["Time"]} {
		if d, err := strconv.ParseFloat(raw, 64); err == nil && d > 0 {
			return d, true
		}
	}
	return 0, false
}

// Play starts or resumes playback. A song that ended restarts from zero.
func (e *Element) Play() error {
	e.mu.Lock()
	queued, state := e.queued, e.state
	resume := 0.0
	if state == "stop" && e.elapsed > 0 && e.elapsed < e.duration {
		resume = e.elapsed
	}
	e.mu.Unlock()

	if queued {
		if song, err := e.backend.CurrentSong(); err == nil && song["file"] != e.uri {
			queued, state = false, "stop"
		}
	}
	if !queued {
		if err := e.Load(); err != nil {
			return fmt.Errorf("%w: %v", media.ErrPlaybackRejected, err)
		}
	}

	var err error
	switch state {
	case "play":
		return nil
	case "pause":
		err = e.backend.Pause(false)
	default:
		err = e.backend.Play(0)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", media.ErrPlaybackRejected, err)
	}
	if resume > 0 {
		if err := e.backend.Seek(int(math.Round(resume))); err != nil {
			log.Warn().Err(err).Str("uri", e.uri).Msg("MPD resume seek failed")
		}
	}

	e.Refresh()
	return nil
}

// Pause pauses playback.
func (e *Element) Pause() {
	e.mu.Lock()
	playing := e.state == "play"
	e.mu.Unlock()
	if !playing {
		return
	}

	if err := e.backend.Pause(true); err != nil {
		log.Warn().Err(err).Str("uri", e.uri).Msg("MPD pause failed")
		return
	}
	e.Refresh()
}

// SeekTo moves the playhead.
func (e *Element) SeekTo(seconds float64) {
	e.mu.Lock()
	duration, state := e.duration, e.state
	e.mu.Unlock()

	if !math.IsNaN(duration) {
		seconds = media.Clamp(seconds, 0, duration)
	} else if seconds < 0 {
		seconds = 0
	}

	if state == "stop" {
		// MPD cannot seek a stopped song; remember the position for the next play.
		e.mu.Lock()
		changed := e.elapsed != seconds
		e.elapsed = seconds
		e.mu.Unlock()
		if changed {
			e.Emit(media.EventTimeUpdate)
		}
		return
	}

	if err := e.backend.Seek(int(math.Round(seconds))); err != nil {
		log.Warn().Err(err).Str("uri", e.uri).Float64("seconds", seconds).Msg("MPD seek failed")
		return
	}
	e.Refresh()
}

// CurrentTime returns the playhead position in seconds.
func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

// Duration returns the song length, NaN until MPD reports it.
func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Paused reports whether MPD is not playing.
func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != "play"
}

// Volume returns the volume in [0, 1].
func (e *Element) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// SetVolume sets the volume. While muted the mixer stays at zero.
func (e *Element) SetVolume(vol float64) {
	vol = media.Clamp(vol, 0, 1)

	e.mu.Lock()
	changed := e.volume != vol
	e.volume = vol
	muted := e.muted
	e.mu.Unlock()

	if !muted {
		if err := e.backend.SetVolume(int(math.Round(vol * 100))); err != nil {
			log.Warn().Err(err).Str("uri", e.uri).Msg("MPD set volume failed")
		}
	}
	if changed {
		e.Emit(media.EventVolumeChange)
	}
}

// Muted reports the emulated muted flag.
func (e *Element) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// SetMuted mutes or unmutes by moving the mixer between zero and the volume.
func (e *Element) SetMuted(muted bool) {
	e.mu.Lock()
	if e.muted == muted {
		e.mu.Unlock()
		return
	}
	e.muted = muted
	vol := e.volume
	e.mu.Unlock()

	mixer := 0
	if !muted {
		mixer = int(math.Round(vol * 100))
	}
	if err := e.backend.SetVolume(mixer); err != nil {
		log.Warn().Err(err).Str("uri", e.uri).Msg("MPD mute failed")
	}
	e.Emit(media.EventVolumeChange)
}

// OnEvent registers a handler.
func (e *Element) OnEvent(kind media.EventKind, h media.Handler) func() {
	return e.Add(kind, h)
}
