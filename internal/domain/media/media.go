// Package media defines the playable element contract shared by audio and video players.
package media

import (
	"errors"
	"path"
	"strings"
)

// Kind is the media kind of a player.
type Kind string

// Media kinds
const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Valid reports whether k is a known media kind.
func (k Kind) Valid() bool {
	return k == KindAudio || k == KindVideo
}

// EventKind names a native media event.
type EventKind string

// Media events
const (
	EventPlay           EventKind = "play"
	EventPause          EventKind = "pause"
	EventEnded          EventKind = "ended"
	EventVolumeChange   EventKind = "volumechange"
	EventTimeUpdate     EventKind = "timeupdate"
	EventLoadedMetadata EventKind = "loadedmetadata"
	EventError          EventKind = "error"
)

// ErrPlaybackRejected is returned by Play when the element refuses to start,
// e.g. an autoplay policy blocked it.
var ErrPlaybackRejected = errors.New("playback rejected")

// Handler receives media events.
type Handler func(EventKind)

// Element is a playable audio or video element.
//
// Implementations may deliver events synchronously from inside the method
// that caused them, so callers must not hold locks the handlers need.
type Element interface {
	Play() error
	Pause()
	// SeekTo moves the playhead, clamped to [0, Duration()].
	SeekTo(seconds float64)

	CurrentTime() float64
	// Duration is NaN until metadata has loaded.
	Duration() float64
	Paused() bool

	Volume() float64
	SetVolume(v float64)
	Muted() bool
	SetMuted(muted bool)

	// OnEvent registers h for kind and returns a function that removes it.
	OnEvent(kind EventKind, h Handler) (remove func())
}

var audioExt = map[string]bool{
	".mp3": true, ".m4a": true, ".aac": true, ".ogg": true, ".oga": true,
	".opus": true, ".wav": true, ".flac": true, ".weba": true,
}

var videoExt = map[string]bool{
	".mp4": true, ".m4v": true, ".webm": true, ".ogv": true, ".mov": true, ".m3u8": true,
}

// DetectKind guesses the media kind from a URL's file extension.
// It returns false when the extension is not a known media type.
func DetectKind(url string) (Kind, bool) {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	ext := strings.ToLower(path.Ext(url))
	switch {
	case audioExt[ext]:
		return KindAudio, true
	case videoExt[ext]:
		return KindVideo, true
	default:
		return "", false
	}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
