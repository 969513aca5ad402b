package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/google/uuid"

	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
	"github.com/edumarques81/stellar-embed-player/internal/domain/player"
)

// ConfigAttr carries a player's JSON configuration on its container.
const ConfigAttr = "data-player-config"

// PlaceholderText is shown instead of a player when no media is configured.
const PlaceholderText = "No media configured for this player."

// EnsureID gives a configuration a fresh instance id when it has none.
func EnsureID(cfg *player.Config) {
	if cfg.InstanceID == "" {
		cfg.InstanceID = "player-" + uuid.NewString()
	}
}

type containerData struct {
	ID         string
	Kind       media.Kind
	Config     string
	Video      bool
	MediaURL   string
	TimeLabel  string
	Fullscreen bool
}

// playerCSS styles the control bar. Pages set --player-accent to change the fill color.
const playerCSS = `
.stellar-player { position: relative; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; }
.stellar-player video { width: 100%; display: block; background: #000; }
.stellar-player .player-controls { display: flex; align-items: center; gap: 8px; padding: 8px 12px; background: #0f172a; color: #fff; transition: opacity 0.3s; }
.stellar-player[data-kind="video"] .player-controls { position: absolute; left: 0; right: 0; bottom: 0; background: linear-gradient(transparent, rgba(0, 0, 0, 0.85)); }
.stellar-player .player-controls.hidden { opacity: 0; pointer-events: none; }
.stellar-player .ctrl-btn { background: none; border: none; color: #fff; font-size: 18px; cursor: pointer; padding: 4px; line-height: 1; }
.stellar-player .ctrl-btn:focus-visible { outline: 2px solid var(--player-accent, #00b67a); outline-offset: 2px; }
.stellar-player .time-display { font-size: 12px; font-family: monospace; white-space: nowrap; }
.stellar-player .seek-bar { position: relative; flex: 1; }
.stellar-player input[type=range] { -webkit-appearance: none; appearance: none; width: 100%; height: 4px; border-radius: 2px; cursor: pointer; }
.stellar-player .volume-slider { width: 80px; }
.stellar-player .chapter-dots { position: absolute; left: 0; right: 0; top: 50%; height: 0; pointer-events: none; }
.stellar-player .chapter-dot { position: absolute; width: 6px; height: 6px; margin: -3px 0 0 -3px; border-radius: 50%; background: #fff; pointer-events: auto; }
.stellar-player .seek-tooltip { position: absolute; bottom: 100%; transform: translateX(-50%); background: rgba(0, 0, 0, 0.85); color: #fff; padding: 3px 7px; border-radius: 4px; font-size: 11px; white-space: nowrap; pointer-events: none; display: none; margin-bottom: 6px; }
.stellar-player .player-error { display: none; padding: 16px; text-align: center; color: #e2e8f0; }
.stellar-player .player-error.visible { display: block; }
.stellar-player-placeholder { padding: 16px; border: 1px dashed #94a3b8; color: #64748b; text-align: center; }
`

var containerTemplate = template.Must(template.New("player").Parse(
	`<div class="stellar-player" id="{{.ID}}" data-role="root" data-kind="{{.Kind}}" data-phase="idle" data-player-config="{{.Config}}">
{{if .Video}}    <video src="{{.MediaURL}}" preload="metadata" playsinline></video>
{{else}}    <audio src="{{.MediaURL}}" preload="metadata"></audio>
{{end}}    <div class="player-error" data-role="error">&#9888; Media failed to load</div>
    <div class="player-controls" data-role="controls">
        <button class="ctrl-btn" data-role="play" aria-label="Play">&#9654;</button>
        <button class="ctrl-btn" data-role="rewind" aria-label="Rewind">&#8634;</button>
        <button class="ctrl-btn" data-role="forward" aria-label="Forward">&#8635;</button>
        <div class="seek-bar">
            <input type="range" class="progress" data-role="progress" min="0" max="100" step="0.01" value="0">
            <div class="chapter-dots" data-role="markers"></div>
            <div class="seek-tooltip" data-role="tooltip"></div>
        </div>
        <span class="time-display" data-role="time">{{.TimeLabel}}</span>
        <button class="ctrl-btn" data-role="mute" aria-label="Mute">&#128266;</button>
        <input type="range" class="volume-slider" data-role="volume" min="0" max="100" value="100">
{{if .Fullscreen}}        <button class="ctrl-btn" data-role="fullscreen" aria-label="Enter fullscreen">&#9974;</button>
{{end}}    </div>
</div>
`))

var placeholderTemplate = template.Must(template.New("placeholder").Parse(
	`<div class="stellar-player-placeholder" role="note">{{.}}</div>
`))

// Stylesheet returns the CSS shared by every player on a page.
func Stylesheet() string {
	return playerCSS
}

// Container renders the markup a player is mounted into. The configuration
// travels as JSON in a data attribute. A configuration without media renders
// the placeholder and returns player.ErrConfigurationAbsent alongside it.
func Container(cfg player.Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, player.ErrConfigurationAbsent) {
			return Placeholder(), err
		}
		return "", err
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode player config: %w", err)
	}

	caps := cfg.Capabilities()
	data := containerData{
		ID:         cfg.InstanceID,
		Kind:       cfg.MediaKind,
		Config:     string(raw),
		Video:      cfg.MediaKind == media.KindVideo,
		MediaURL:   cfg.MediaURL,
		TimeLabel:  "00:00 / 00:00",
		Fullscreen: caps.HasFullscreen,
	}

	var buf bytes.Buffer
	if err := containerTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render player container: %w", err)
	}
	return buf.String(), nil
}

// Placeholder renders the ConfigurationAbsent message.
func Placeholder() string {
	var buf bytes.Buffer
	_ = placeholderTemplate.Execute(&buf, PlaceholderText)
	return buf.String()
}

// ParseConfig decodes a container's JSON configuration over the defaults
// for its media kind.
func ParseConfig(raw []byte, defaults func(media.Kind) player.Config) (player.Config, error) {
	var head struct {
		MediaKind media.Kind `json:"mediaKind"`
		MediaURL  string     `json:"mediaUrl"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return player.Config{}, fmt.Errorf("%w: %v", player.ErrInvalidConfig, err)
	}

	kind := head.MediaKind
	if kind == "" {
		if detected, ok := media.DetectKind(head.MediaURL); ok {
			kind = detected
		} else {
			kind = media.KindAudio
		}
	}

	cfg := defaults(kind)
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return player.Config{}, fmt.Errorf("%w: %v", player.ErrInvalidConfig, err)
	}
	cfg.MediaKind = kind
	EnsureID(&cfg)
	return cfg, nil
}
