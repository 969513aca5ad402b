package player

import (
	"github.com/edumarques81/stellar-embed-player/internal/domain/chapter"
	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
)

// Presentation is everything a view needs to draw one player.
type Presentation struct {
	InstanceID string
	Kind       media.Kind
	Phase      Phase
	Playing    bool
	// MuteIcon is true when the muted flag is set or the volume is zero.
	MuteIcon        bool
	Volume          float64
	Progress        float64 // displayed fraction of the timeline, [0, 1]
	TimeLabel       string  // "mm:ss / mm:ss"
	Markers         []chapter.Marker
	ControlsVisible bool
	Fullscreen      bool
	Failed          bool
	Capabilities    Capabilities
}

// View draws presentations. Render is called after every state change.
type View interface {
	Render(p Presentation)
}

// Coordinator is told when an instance starts or stops playing.
// InstancePlaying must pause every other instance and then call activate
// before any other InstancePlaying can observe the instances.
type Coordinator interface {
	InstancePlaying(id string, activate func())
	InstanceStopped(id string)
}

// Fullscreen controls the fullscreen state of a player's container.
type Fullscreen interface {
	Active() bool
	Request() error
	Exit() error
}

// ProgressStore persists resume positions.
type ProgressStore interface {
	SavePosition(instanceID, mediaURL string, seconds float64) error
	ClearPosition(instanceID, mediaURL string) error
}

func (c *Controller) presentation() Presentation {
	s := c.state
	p := Presentation{
		InstanceID:      c.cfg.InstanceID,
		Kind:            c.cfg.MediaKind,
		Phase:           s.Phase,
		Playing:         s.IsPlaying,
		MuteIcon:        s.IsMuted || s.Volume == 0,
		Volume:          s.Volume,
		TimeLabel:       chapter.FormatTime(s.DisplayTime) + " / " + chapter.FormatTime(s.Duration),
		Markers:         append([]chapter.Marker(nil), c.markers...),
		ControlsVisible: s.ControlsVisible,
		Fullscreen:      s.IsFullscreen,
		Failed:          s.Failed,
		Capabilities:    c.caps,
	}
	if s.DurationKnown() {
		p.Progress = media.Clamp(s.DisplayTime/s.Duration, 0, 1)
	}
	return p
}
