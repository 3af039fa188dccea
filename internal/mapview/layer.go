// Package mapview holds the retained state of the map layer and the workout
// list that the browser front-end draws.
package mapview

import (
	"slices"

	"github.com/claude/mapty/internal/markers"
	"github.com/claude/mapty/internal/workout"
)

// Popup is a marker's bound popup.
type Popup struct {
	Content string               `json:"content"`
	Options markers.PopupOptions `json:"options"`
	Open    bool                 `json:"open"`
}

// Marker is one marker on the layer.
type Marker struct {
	Handle markers.Handle      `json:"handle"`
	Coords workout.Coordinates `json:"coords"`
	Popup  *Popup              `json:"popup,omitempty"`
}

// Fit is the last bounds the view was fitted to.
type Fit struct {
	Region  markers.Region `json:"region"`
	Padding int            `json:"padding"`
}

// LayerState is the JSON form of a Layer.
type LayerState struct {
	Center  workout.Coordinates `json:"center"`
	Zoom    int                 `json:"zoom"`
	Markers []Marker            `json:"markers"`
	Fit     *Fit                `json:"fit,omitempty"`
	// Revision increases on every change so clients can skip redraws.
	Revision uint64 `json:"revision"`
}

// Layer implements markers.Surface as plain state.
type Layer struct {
	next     markers.Handle
	markers  map[markers.Handle]*Marker
	order    []markers.Handle
	center   workout.Coordinates
	zoom     int
	fit      *Fit
	revision uint64
}

var _ markers.Surface = (*Layer)(nil)

// NewLayer returns an empty layer.
func NewLayer() *Layer {
	return &Layer{markers: make(map[markers.Handle]*Marker)}
}

func (l *Layer) CreateMarker(c workout.Coordinates) markers.Handle {
	l.next++
	l.markers[l.next] = &Marker{Handle: l.next, Coords: c}
	l.order = append(l.order, l.next)
	l.revision++
	return l.next
}

// AttachPopup binds and opens a popup on h. Unknown handles are ignored.
func (l *Layer) AttachPopup(h markers.Handle, content string, opts markers.PopupOptions) {
	m, ok := l.markers[h]
	if !ok {
		return
	}
	m.Popup = &Popup{Content: content, Options: opts, Open: true}
	l.revision++
}

func (l *Layer) RemoveMarker(h markers.Handle) {
	if _, ok := l.markers[h]; !ok {
		return
	}
	delete(l.markers, h)
	l.order = slices.DeleteFunc(l.order, func(o markers.Handle) bool { return o == h })
	l.revision++
}

func (l *Layer) SetView(c workout.Coordinates, zoom int) {
	l.center = c
	l.zoom = zoom
	l.fit = nil
	l.revision++
}

func (l *Layer) FitBounds(r markers.Region, padding int) {
	l.fit = &Fit{Region: r, Padding: padding}
	l.revision++
}

// Len returns the number of markers on the layer.
func (l *Layer) Len() int { return len(l.markers) }

// State returns a copy of the layer for serialization.
func (l *Layer) State() LayerState {
	st := LayerState{Center: l.center, Zoom: l.zoom, Revision: l.revision, Markers: make([]Marker, 0, len(l.order))}
	for _, h := range l.order {
		m := *l.markers[h]
		if m.Popup != nil {
			p := *m.Popup
			m.Popup = &p
		}
		st.Markers = append(st.Markers, m)
	}
	if l.fit != nil {
		f := *l.fit
		st.Fit = &f
	}
	return st
}
