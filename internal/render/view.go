// Package render turns player presentations into DOM patches and renders
// the container markup players are mounted into.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"sync"

	"github.com/edumarques81/stellar-embed-player/internal/domain/chapter"
	"github.com/edumarques81/stellar-embed-player/internal/domain/player"
)

// Op is a DOM mutation kind.
type Op string

// Ops
const (
	OpText  Op = "text"  // set textContent
	OpAttr  Op = "attr"  // set attribute Name
	OpStyle Op = "style" // set style property Name
	OpClass Op = "class" // toggle class Name, Value is "on" or "off"
	OpHTML  Op = "html"  // replace innerHTML with pre-escaped markup
)

// Roles name the child elements of a player container (data-role attribute).
const (
	RoleRoot       = "root"
	RolePlay       = "play"
	RoleRewind     = "rewind"
	RoleForward    = "forward"
	RoleMute       = "mute"
	RoleVolume     = "volume"
	RoleProgress   = "progress"
	RoleMarkers    = "markers"
	RoleTime       = "time"
	RoleControls   = "controls"
	RoleFullscreen = "fullscreen"
	RoleError      = "error"
)

// Accent colors of the progress and volume fills.
const (
	AccentColor = "var(--player-accent, #00b67a)"
	TrackColor  = "rgba(255, 255, 255, 0.2)"
)

// Patch is one DOM mutation on a player's container.
type Patch struct {
	Target string `json:"target"`
	Op     Op     `json:"op"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value"`
}

// Key identifies the DOM property a patch sets. Later patches with the same
// key supersede earlier ones.
func (p Patch) Key() string {
	return p.Target + "/" + string(p.Op) + "/" + p.Name
}

// Sink receives the patches of one render.
type Sink func(instanceID string, patches []Patch)

// DOMView is a player.View that emits only what changed since its previous render.
type DOMView struct {
	sink Sink

	mu   sync.Mutex
	last map[string]string
}

// NewDOMView creates a view that sends patches to sink.
func NewDOMView(sink Sink) *DOMView {
	return &DOMView{
		sink: sink,
		last: make(map[string]string),
	}
}

// Render diffs the presentation against the previous one and sends the changes.
func (v *DOMView) Render(p player.Presentation) {
	all := Patches(p)

	v.mu.Lock()
	changed := make([]Patch, 0, len(all))
	for _, patch := range all {
		k := patch.Key()
		if prev, ok := v.last[k]; ok && prev == patch.Value {
			continue
		}
		v.last[k] = patch.Value
		changed = append(changed, patch)
	}
	v.mu.Unlock()

	if len(changed) > 0 && v.sink != nil {
		v.sink(p.InstanceID, changed)
	}
}

// Reset forgets the previous render so the next one is sent in full.
func (v *DOMView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = make(map[string]string)
}

// Patches returns the full set of patches describing a presentation.
func Patches(p player.Presentation) []Patch {
	patches := []Patch{
		{Target: RoleRoot, Op: OpAttr, Name: "data-phase", Value: string(p.Phase)},
	}

	if p.Playing {
		patches = append(patches,
			Patch{Target: RolePlay, Op: OpText, Value: "❚❚"},
			Patch{Target: RolePlay, Op: OpAttr, Name: "aria-label", Value: "Pause"},
		)
	} else {
		patches = append(patches,
			Patch{Target: RolePlay, Op: OpText, Value: "▶"},
			Patch{Target: RolePlay, Op: OpAttr, Name: "aria-label", Value: "Play"},
		)
	}

	if p.MuteIcon {
		patches = append(patches,
			Patch{Target: RoleMute, Op: OpText, Value: "\U0001F507"},
			Patch{Target: RoleMute, Op: OpAttr, Name: "aria-label", Value: "Unmute"},
		)
	} else {
		patches = append(patches,
			Patch{Target: RoleMute, Op: OpText, Value: "\U0001F50A"},
			Patch{Target: RoleMute, Op: OpAttr, Name: "aria-label", Value: "Mute"},
		)
	}

	volume := percent(p.Volume)
	progress := percent(p.Progress)
	patches = append(patches,
		Patch{Target: RoleVolume, Op: OpAttr, Name: "value", Value: fmt.Sprintf("%.0f", volume)},
		Patch{Target: RoleVolume, Op: OpStyle, Name: "background", Value: Gradient(volume)},
		Patch{Target: RoleProgress, Op: OpAttr, Name: "value", Value: fmt.Sprintf("%.2f", progress)},
		Patch{Target: RoleProgress, Op: OpStyle, Name: "background", Value: Gradient(progress)},
		Patch{Target: RoleTime, Op: OpText, Value: p.TimeLabel},
		Patch{Target: RoleMarkers, Op: OpHTML, Value: MarkersHTML(p.Markers)},
		Patch{Target: RoleControls, Op: OpClass, Name: "hidden", Value: onOff(!p.ControlsVisible || p.Failed)},
		Patch{Target: RoleError, Op: OpClass, Name: "visible", Value: onOff(p.Failed)},
	)

	if p.Capabilities.HasFullscreen {
		if p.Fullscreen {
			patches = append(patches,
				Patch{Target: RoleFullscreen, Op: OpText, Value: "⤣"},
				Patch{Target: RoleFullscreen, Op: OpAttr, Name: "aria-label", Value: "Exit fullscreen"},
			)
		} else {
			patches = append(patches,
				Patch{Target: RoleFullscreen, Op: OpText, Value: "⛶"},
				Patch{Target: RoleFullscreen, Op: OpAttr, Name: "aria-label", Value: "Enter fullscreen"},
			)
		}
	}
	return patches
}

// Gradient returns the two-stop fill of a range input filled to pct percent.
func Gradient(pct float64) string {
	return fmt.Sprintf("linear-gradient(to right, %s %.2f%%, %s %.2f%%)", AccentColor, pct, TrackColor, pct)
}

var markersTemplate = template.Must(template.New("markers").Parse(
	`{{range $i, $m := .}}<span class="chapter-dot" data-marker="{{$i}}" style="left: {{$m.Left}}%" title="{{$m.Title}}"></span>{{end}}`))

type markerDot struct {
	Left  template.CSS
	Title string
}

// MarkersHTML renders the chapter dots of a progress bar.
func MarkersHTML(markers []chapter.Marker) string {
	if len(markers) == 0 {
		return ""
	}
	dots := make([]markerDot, len(markers))
	for i, m := range markers {
		dots[i] = markerDot{
			Left:  template.CSS(fmt.Sprintf("%.2f", percent(m.Position))),
			Title: m.Title + " – " + chapter.FormatTime(m.TimeSeconds),
		}
	}
	var buf bytes.Buffer
	if err := markersTemplate.Execute(&buf, dots); err != nil {
		return ""
	}
	return buf.String()
}

func percent(fraction float64) float64 {
	if math.IsNaN(fraction) || fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 100
	}
	return fraction * 100
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
