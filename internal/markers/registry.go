// Package markers tracks which rendered map marker belongs to which workout.
package markers

import (
	"math"

	"github.com/claude/mapty/internal/workout"
)

// Handle identifies a marker on a Surface.
type Handle uint64

// PopupOptions mirrors the popup settings the map library accepts.
type PopupOptions struct {
	AutoClose    bool   `json:"autoClose"`
	CloseOnClick bool   `json:"closeOnClick"`
	StyleClass   string `json:"className"`
}

// Region is a lat/lng bounding box.
type Region struct {
	SouthWest workout.Coordinates `json:"southWest"`
	NorthEast workout.Coordinates `json:"northEast"`
}

// Extend grows r to include c.
func (r Region) Extend(c workout.Coordinates) Region {
	r.SouthWest.Lat = math.Min(r.SouthWest.Lat, c.Lat)
	r.SouthWest.Lng = math.Min(r.SouthWest.Lng, c.Lng)
	r.NorthEast.Lat = math.Max(r.NorthEast.Lat, c.Lat)
	r.NorthEast.Lng = math.Max(r.NorthEast.Lng, c.Lng)
	return r
}

// Surface is the mapping collaborator markers are drawn on.
type Surface interface {
	CreateMarker(c workout.Coordinates) Handle
	AttachPopup(h Handle, content string, opts PopupOptions)
	RemoveMarker(h Handle)
	SetView(c workout.Coordinates, zoom int)
	FitBounds(r Region, padding int)
}

type entry struct {
	handle Handle
	coords workout.Coordinates
}

// Registry maps workout ids to at most one marker handle each.
type Registry struct {
	surface Surface
	entries map[string]entry
}

// NewRegistry creates an empty registry whose markers live on surface.
func NewRegistry(surface Surface) *Registry {
	return &Registry{surface: surface, entries: make(map[string]entry)}
}

// Register records h as the marker for id. A previous marker for the same id
// is removed from the surface first.
func (r *Registry) Register(id string, coords workout.Coordinates, h Handle) {
	if old, ok := r.entries[id]; ok && old.handle != h {
		r.surface.RemoveMarker(old.handle)
	}
	r.entries[id] = entry{handle: h, coords: coords}
}

// Unregister removes id's marker from the registry and the surface.
func (r *Registry) Unregister(id string) bool {
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	r.surface.RemoveMarker(e.handle)
	delete(r.entries, id)
	return true
}

// UnregisterAll removes every registered marker.
func (r *Registry) UnregisterAll() {
	for id, e := range r.entries {
		r.surface.RemoveMarker(e.handle)
		delete(r.entries, id)
	}
}

// HandleFor returns id's marker handle.
func (r *Registry) HandleFor(id string) (Handle, bool) {
	e, ok := r.entries[id]
	return e.handle, ok
}

// CoordsFor returns the position id's marker was registered at.
func (r *Registry) CoordsFor(id string) (workout.Coordinates, bool) {
	e, ok := r.entries[id]
	return e.coords, ok
}

// Len returns the number of registered markers.
func (r *Registry) Len() int { return len(r.entries) }

// BoundsOfAll returns the smallest region covering every registered marker.
// ok is false when nothing is registered.
func (r *Registry) BoundsOfAll() (region Region, ok bool) {
	for _, e := range r.entries {
		if !ok {
			region = Region{SouthWest: e.coords, NorthEast: e.coords}
			ok = true
			continue
		}
		region = region.Extend(e.coords)
	}
	return region, ok
}

// FitAll fits the surface over every registered marker with padding pixels
// of margin. It does nothing when the registry is empty.
func (r *Registry) FitAll(padding int) bool {
	region, ok := r.BoundsOfAll()
	if !ok {
		return false
	}
	r.surface.FitBounds(region, padding)
	return true
}
