// Package chapter turns configured chapter entries into timeline markers.
package chapter

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Chapter is a configured chapter entry. Insertion order is display order.
type Chapter struct {
	Title       string  `json:"title" yaml:"title"`
	TimeSeconds float64 `json:"timeSeconds" yaml:"timeSeconds"`
}

// UnmarshalJSON accepts either timeSeconds or a raw "m:ss" time.
func (c *Chapter) UnmarshalJSON(b []byte) error {
	var aux struct {
		Title       string   `json:"title"`
		TimeSeconds *float64 `json:"timeSeconds"`
		Time        string   `json:"time"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.Title = aux.Title
	if aux.TimeSeconds != nil {
		c.TimeSeconds = *aux.TimeSeconds
	} else {
		c.TimeSeconds = float64(ParseTime(aux.Time))
	}
	return nil
}

// Raw is a chapter as it arrives from page configuration, with a "m:ss" time.
type Raw struct {
	Title string `json:"title" yaml:"title"`
	Time  string `json:"time" yaml:"time"`
}

// Marker is a chapter placed on the timeline.
type Marker struct {
	Title       string  `json:"title"`
	TimeSeconds float64 `json:"timeSeconds"`
	Position    float64 `json:"position"` // TimeSeconds / duration, in [0, 1]
}

// FromRaw parses raw chapter times. Malformed times become 0 seconds.
func FromRaw(raw []Raw) []Chapter {
	chapters := make([]Chapter, 0, len(raw))
	for _, r := range raw {
		chapters = append(chapters, Chapter{
			Title:       r.Title,
			TimeSeconds: float64(ParseTime(r.Time)),
		})
	}
	return chapters
}

// ParseTime parses "m:ss" or "mm:ss" into whole seconds.
// A bare number of seconds is also accepted. Anything else yields 0.
func ParseTime(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		secs, ok := parseUint(parts[0])
		if !ok {
			return 0
		}
		return secs
	case 2:
		mins, ok := parseUint(parts[0])
		if !ok {
			return 0
		}
		secs, ok := parseUint(parts[1])
		if !ok || len(parts[1]) != 2 || secs > 59 {
			return 0
		}
		return mins*60 + secs
	default:
		return 0
	}
}

func parseUint(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// FormatTime renders seconds as zero-padded "mm:ss".
// There is no hour segment: an hour and a half renders as "90:00".
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Build places chapters on a timeline of the given duration.
// Chapters past the end are dropped and the rest are sorted by time.
// An unknown or non-positive duration yields no markers.
func Build(chapters []Chapter, duration float64) []Marker {
	if !validDuration(duration) {
		return nil
	}

	markers := make([]Marker, 0, len(chapters))
	for _, c := range chapters {
		if c.TimeSeconds > duration || c.TimeSeconds < 0 || math.IsNaN(c.TimeSeconds) {
			continue
		}
		markers = append(markers, Marker{
			Title:       c.Title,
			TimeSeconds: c.TimeSeconds,
			Position:    c.TimeSeconds / duration,
		})
	}

	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].TimeSeconds < markers[j].TimeSeconds
	})
	return markers
}

// FindNearest returns the marker closest to a fractional timeline position,
// or nil when there are no markers. Ties go to the earlier marker.
func FindNearest(markers []Marker, position float64) *Marker {
	if len(markers) == 0 || math.IsNaN(position) {
		return nil
	}

	best := 0
	bestDist := math.Abs(markers[0].Position - position)
	for i := 1; i < len(markers); i++ {
		d := math.Abs(markers[i].Position - position)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	m := markers[best]
	return &m
}

// At returns the chapter the given fractional position falls in: the last
// marker at or before it. Markers must be sorted, as Build returns them.
func At(markers []Marker, position float64) *Marker {
	var found *Marker
	for i := range markers {
		if markers[i].Position > position {
			break
		}
		m := markers[i]
		found = &m
	}
	return found
}

// HoverLabel is the tooltip text for a fractional position on the timeline:
// "Title – mm:ss" inside a chapter, else "mm:ss".
func HoverLabel(markers []Marker, position, duration float64) string {
	if !validDuration(duration) {
		return FormatTime(0)
	}
	position = math.Max(0, math.Min(1, position))
	label := FormatTime(position * duration)
	if m := At(markers, position); m != nil && m.Title != "" {
		return m.Title + " – " + label
	}
	return label
}

func validDuration(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d > 0
}
