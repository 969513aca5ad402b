// Package config loads per-media-kind player presets.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
	"github.com/edumarques81/stellar-embed-player/internal/domain/player"
)

// Preset overrides the built-in defaults of one media kind.
// Unset fields keep the default.
type Preset struct {
	InitialMuted        *bool          `yaml:"initialMuted"`
	RewindSeconds       *float64       `yaml:"rewindSeconds"`
	ForwardSeconds      *float64       `yaml:"forwardSeconds"`
	KeySeekSeconds      *float64       `yaml:"keySeekSeconds"`
	AutohideEnabled     *bool          `yaml:"autohideEnabled"`
	InactivityTimeoutMs *int           `yaml:"inactivityTimeoutMs"`
	GateKeyboard        *bool          `yaml:"gateKeyboard"`
	Output              *player.Output `yaml:"output"`
}

// File is the presets file layout.
//
//	audio:
//	  rewindSeconds: 15
//	  gateKeyboard: false
//	video:
//	  inactivityTimeoutMs: 2500
type File struct {
	Audio Preset `yaml:"audio"`
	Video Preset `yaml:"video"`
}

// Presets resolves the default configuration of each media kind.
// It is safe for concurrent use and can be replaced while in use.
type Presets struct {
	mu   sync.RWMutex
	file File
}

// NewPresets returns presets with no overrides.
func NewPresets() *Presets {
	return &Presets{}
}

// Load reads a presets file. An empty path yields the built-in defaults.
func Load(path string) (*Presets, error) {
	p := NewPresets()
	if path == "" {
		return p, nil
	}
	if err := p.Reload(path); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse decodes presets from YAML.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("config: unmarshal presets: %w", err)
	}
	for kind, preset := range map[media.Kind]Preset{media.KindAudio: f.Audio, media.KindVideo: f.Video} {
		cfg := apply(player.DefaultConfig(kind), preset)
		cfg.InstanceID, cfg.MediaURL = "preset", "preset"
		if err := cfg.Validate(); err != nil {
			return File{}, fmt.Errorf("config: %s preset: %w", kind, err)
		}
	}
	return f, nil
}

// Reload replaces the presets with the contents of path. On error the
// current presets stay in effect.
func (p *Presets) Reload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.file = f
	p.mu.Unlock()

	log.Info().Str("path", path).Msg("Player presets loaded")
	return nil
}

// For returns the default configuration of a media kind with its preset applied.
func (p *Presets) For(kind media.Kind) player.Config {
	p.mu.RLock()
	f := p.file
	p.mu.RUnlock()

	cfg := player.DefaultConfig(kind)
	switch kind {
	case media.KindAudio:
		return apply(cfg, f.Audio)
	case media.KindVideo:
		return apply(cfg, f.Video)
	}
	return cfg
}

func apply(cfg player.Config, p Preset) player.Config {
	if p.InitialMuted != nil {
		cfg.InitialMuted = *p.InitialMuted
	}
	if p.RewindSeconds != nil {
		cfg.RewindSeconds = *p.RewindSeconds
	}
	if p.ForwardSeconds != nil {
		cfg.ForwardSeconds = *p.ForwardSeconds
	}
	if p.KeySeekSeconds != nil {
		cfg.KeySeekSeconds = *p.KeySeekSeconds
	}
	if p.AutohideEnabled != nil {
		cfg.AutohideEnabled = *p.AutohideEnabled
	}
	if p.InactivityTimeoutMs != nil {
		cfg.InactivityTimeoutMs = *p.InactivityTimeoutMs
	}
	if p.GateKeyboard != nil {
		cfg.GateKeyboard = *p.GateKeyboard
	}
	if p.Output != nil {
		cfg.Output = *p.Output
	}
	return cfg
}
