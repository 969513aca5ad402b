package player

import (
	"errors"
	"fmt"
	"time"

	"github.com/edumarques81/stellar-embed-player/internal/domain/chapter"
	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
)

// Output selects where a player's sound comes out.
type Output string

// Outputs
const (
	OutputBrowser Output = "browser" // the page's own media element
	OutputMPD     Output = "mpd"     // the daemon's MPD connection (audio only)
)

var (
	// ErrConfigurationAbsent means no media URL could be resolved.
	// The page shows a placeholder and no controller is built.
	ErrConfigurationAbsent = errors.New("no media configured")

	// ErrInvalidConfig wraps every other configuration problem.
	ErrInvalidConfig = errors.New("invalid player config")

	// ErrFullscreenDenied is logged when a fullscreen request fails.
	ErrFullscreenDenied = errors.New("fullscreen denied")
)

// Config is the per-instance configuration, fixed at construction time.
type Config struct {
	InstanceID string            `json:"instanceId" yaml:"-"`
	MediaKind  media.Kind        `json:"mediaKind" yaml:"-"`
	MediaURL   string            `json:"mediaUrl" yaml:"-"`
	Chapters   []chapter.Chapter `json:"chapters" yaml:"-"`

	InitialMuted   bool    `json:"initialMuted" yaml:"initialMuted"`
	RewindSeconds  float64 `json:"rewindSeconds" yaml:"rewindSeconds"`
	ForwardSeconds float64 `json:"forwardSeconds" yaml:"forwardSeconds"`
	KeySeekSeconds float64 `json:"keySeekSeconds" yaml:"keySeekSeconds"`

	// Video only.
	AutohideEnabled     bool `json:"autohideEnabled" yaml:"autohideEnabled"`
	InactivityTimeoutMs int  `json:"inactivityTimeoutMs" yaml:"inactivityTimeoutMs"`

	// GateKeyboard restricts global shortcuts to when the player is on screen.
	GateKeyboard bool `json:"gateKeyboard" yaml:"gateKeyboard"`

	Output Output `json:"output" yaml:"output"`
}

// Capabilities are the optional behaviors a media kind supports.
type Capabilities struct {
	HasFullscreen bool `json:"hasFullscreen"`
	HasAutohide   bool `json:"hasAutohide"`
}

// DefaultConfig returns the defaults for a media kind.
// Audio is exempt from keyboard gating since it is often played while scrolled away.
func DefaultConfig(kind media.Kind) Config {
	cfg := Config{
		MediaKind:      kind,
		RewindSeconds:  10,
		ForwardSeconds: 10,
		KeySeekSeconds: 5,
		Output:         OutputBrowser,
	}
	if kind == media.KindVideo {
		cfg.AutohideEnabled = true
		cfg.InactivityTimeoutMs = 3000
		cfg.GateKeyboard = true
	}
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MediaURL == "" {
		return ErrConfigurationAbsent
	}
	if c.InstanceID == "" {
		return fmt.Errorf("%w: missing instance id", ErrInvalidConfig)
	}
	if !c.MediaKind.Valid() {
		return fmt.Errorf("%w: unknown media kind %q", ErrInvalidConfig, c.MediaKind)
	}
	if c.RewindSeconds <= 0 || c.ForwardSeconds <= 0 || c.KeySeekSeconds <= 0 {
		return fmt.Errorf("%w: seek steps must be positive", ErrInvalidConfig)
	}
	if c.MediaKind == media.KindVideo && c.AutohideEnabled && c.InactivityTimeoutMs <= 0 {
		return fmt.Errorf("%w: inactivity timeout must be positive", ErrInvalidConfig)
	}
	switch c.Output {
	case "", OutputBrowser:
	case OutputMPD:
		if c.MediaKind != media.KindAudio {
			return fmt.Errorf("%w: mpd output is audio only", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown output %q", ErrInvalidConfig, c.Output)
	}
	return nil
}

// Capabilities derives the capability set from the media kind.
func (c Config) Capabilities() Capabilities {
	if c.MediaKind != media.KindVideo {
		return Capabilities{}
	}
	return Capabilities{
		HasFullscreen: true,
		HasAutohide:   c.AutohideEnabled,
	}
}

// InactivityTimeout returns the autohide delay.
func (c Config) InactivityTimeout() time.Duration {
	return time.Duration(c.InactivityTimeoutMs) * time.Millisecond
}
