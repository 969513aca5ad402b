// Package player implements the media player controller shared by audio and video players.
package player

import "math"

// Phase is the coarse playback phase of a player.
type Phase string

// Phases
const (
	PhaseIdle    Phase = "idle"  // metadata not loaded
	PhaseReady   Phase = "ready" // metadata loaded, never played
	PhasePlaying Phase = "playing"
	PhasePaused  Phase = "paused"
	PhaseEnded   Phase = "ended"
)

// State is the mutable playback state of one player.
// Seeking is a flag alongside the phase, not a phase of its own.
type State struct {
	Phase     Phase
	IsPlaying bool

	IsMuted bool
	Volume  float64
	// LastNonZeroVolume is captured only when going from audible to muted.
	LastNonZeroVolume float64

	IsSeeking bool

	CurrentTime float64 // mirror of the element
	DisplayTime float64 // what the time label and progress fill show
	Duration    float64 // NaN until metadata loads

	IsFullscreen    bool
	ControlsVisible bool
	Failed          bool
}

// NewState creates the state of a freshly bound player.
func NewState(volume float64, muted bool) State {
	last := volume
	if last <= 0 {
		last = 1
	}
	return State{
		Phase:             PhaseIdle,
		IsMuted:           muted,
		Volume:            volume,
		LastNonZeroVolume: last,
		Duration:          math.NaN(),
		ControlsVisible:   true,
	}
}

// DurationKnown reports whether metadata has produced a usable duration.
func (s State) DurationKnown() bool {
	return !math.IsNaN(s.Duration) && !math.IsInf(s.Duration, 0) && s.Duration > 0
}

// Audible reports whether the player is producing sound when playing.
func (s State) Audible() bool {
	return !s.IsMuted && s.Volume > 0
}

// ToJSON returns the state as a map suitable for JSON serialization.
// An unknown duration is encoded as null.
func (s State) ToJSON() map[string]any {
	var duration any
	if s.DurationKnown() {
		duration = s.Duration
	}
	return map[string]any{
		"phase":             s.Phase,
		"isPlaying":         s.IsPlaying,
		"isMuted":           s.IsMuted,
		"volume":            s.Volume,
		"lastNonZeroVolume": s.LastNonZeroVolume,
		"isSeeking":         s.IsSeeking,
		"currentTime":       s.CurrentTime,
		"displayTime":       s.DisplayTime,
		"duration":          duration,
		"isFullscreen":      s.IsFullscreen,
		"controlsVisible":   s.ControlsVisible,
		"failed":            s.Failed,
	}
}
