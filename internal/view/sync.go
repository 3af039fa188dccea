// Package view keeps the marker layer and the workout list in step with the
// tracker's collection.
package view

import (
	"fmt"
	"log/slog"

	"github.com/claude/mapty/internal/markers"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/workout"
)

// PersistWarning is shown when a snapshot could not be written.
const PersistWarning = "Changes could not be saved and may not survive a reload"

// Entry is the list-panel view model of one workout.
type Entry struct {
	ID          string       `json:"id"`
	Kind        workout.Kind `json:"kind"`
	Icon        string       `json:"icon"`
	Description string       `json:"description"`
	Distance    float64      `json:"distance"`
	Duration    float64      `json:"duration"`
	Metric      float64      `json:"metric"`
	Derived     float64      `json:"derived"`
}

// EntryFor builds the list entry for w.
func EntryFor(w workout.Workout) Entry {
	return Entry{
		ID:          w.ID,
		Kind:        w.Kind,
		Icon:        w.Icon(),
		Description: w.Description(),
		Distance:    w.Distance,
		Duration:    w.Duration,
		Metric:      w.Metric(),
		Derived:     w.Derived(),
	}
}

// ListView is the workout list collaborator.
type ListView interface {
	Append(e Entry)
	Replace(e Entry)
	Remove(id string)
	Reset(entries []Entry)
	SetBulkActions(visible bool)
	SetEditing(id string, open bool)
	Warn(msg string)
}

// Projector produces the ordered workouts a projected list shows.
type Projector interface {
	Project(p tracker.Projection) []workout.Workout
}

// Options tune rendering.
type Options struct {
	// BulkThreshold is the collection size at which bulk actions appear.
	BulkThreshold int
	// Zoom is used when recentring on a single workout.
	Zoom int
	// FitPadding is the pixel margin used by ShowAll.
	FitPadding int
}

// Synchronizer reacts to tracker events by updating markers and the list.
// The marker side stays idle until AttachSurface is called.
type Synchronizer struct {
	list     ListView
	projects Projector
	opts     Options
	log      *slog.Logger

	registry   *markers.Registry
	surface    markers.Surface
	projection tracker.Projection
	bulk       bool
	editing    string
}

var _ tracker.Observer = (*Synchronizer)(nil)

// NewSynchronizer wires list and projector together. Zero options fall back
// to a threshold of 3, zoom 13 and 50px padding.
func NewSynchronizer(list ListView, projects Projector, opts Options, log *slog.Logger) *Synchronizer {
	if opts.BulkThreshold <= 0 {
		opts.BulkThreshold = 3
	}
	if opts.Zoom <= 0 {
		opts.Zoom = 13
	}
	if opts.FitPadding <= 0 {
		opts.FitPadding = 50
	}
	return &Synchronizer{list: list, projects: projects, opts: opts, log: log}
}

// Render draws the list for records from scratch, e.g. after a reload.
func (s *Synchronizer) Render(records []workout.Workout) {
	s.projection = tracker.Projection{}
	s.list.Reset(entries(records))
	s.updateBulk(len(records))
}

// AttachSurface starts drawing markers on surface and renders one for every
// workout that already exists.
func (s *Synchronizer) AttachSurface(surface markers.Surface, records []workout.Workout) {
	s.surface = surface
	s.registry = markers.NewRegistry(surface)
	for _, w := range records {
		s.renderMarker(w)
	}
}

// Registry returns the marker registry, or nil before AttachSurface.
func (s *Synchronizer) Registry() *markers.Registry { return s.registry }

// Notify implements tracker.Observer.
func (s *Synchronizer) Notify(ev tracker.Event) {
	switch ev.Op {
	case tracker.OpAdded:
		s.renderMarker(ev.Workout)
		if s.projected() {
			s.rerender()
		} else {
			s.list.Append(EntryFor(ev.Workout))
		}
		s.updateBulk(ev.Len)
	case tracker.OpEdited:
		// Coordinates are immutable, so the marker stays as it is.
		if s.projected() {
			s.rerender()
		} else {
			s.list.Replace(EntryFor(ev.Workout))
		}
		if s.editing == ev.Workout.ID {
			s.CloseEdit()
		}
	case tracker.OpRemoved:
		if s.registry != nil {
			s.registry.Unregister(ev.Workout.ID)
		}
		s.list.Remove(ev.Workout.ID)
		if s.editing == ev.Workout.ID {
			s.editing = ""
		}
		s.updateBulk(ev.Len)
	case tracker.OpCleared:
		if s.registry != nil {
			s.registry.UnregisterAll()
		}
		s.list.Reset(nil)
		s.editing = ""
		s.updateBulk(ev.Len)
	case tracker.OpPersistFailed:
		s.list.Warn(PersistWarning)
	}
}

// OpenEdit opens the edit form for id, closing any other open form first.
func (s *Synchronizer) OpenEdit(id string) {
	if s.editing == id {
		return
	}
	if s.editing != "" {
		s.list.SetEditing(s.editing, false)
	}
	s.editing = id
	s.list.SetEditing(id, true)
}

// CloseEdit closes the open edit form, if any.
func (s *Synchronizer) CloseEdit() {
	if s.editing == "" {
		return
	}
	s.list.SetEditing(s.editing, false)
	s.editing = ""
}

// Editing returns the id whose edit form is open.
func (s *Synchronizer) Editing() string { return s.editing }

// ZoomTo recentres the map on id's marker.
func (s *Synchronizer) ZoomTo(id string) bool {
	if s.registry == nil {
		return false
	}
	c, ok := s.registry.CoordsFor(id)
	if !ok {
		return false
	}
	s.surface.SetView(c, s.opts.Zoom)
	return true
}

// ShowAll fits the map over every marker.
func (s *Synchronizer) ShowAll() bool {
	if s.registry == nil {
		return false
	}
	return s.registry.FitAll(s.opts.FitPadding)
}

// RenderProjection redraws the list in projected order. Markers are left alone.
func (s *Synchronizer) RenderProjection(p tracker.Projection) {
	s.projection = p
	s.rerender()
}

// Projection returns the projection the list is currently drawn with.
func (s *Synchronizer) Projection() tracker.Projection { return s.projection }

// BulkActionsVisible reports whether the bulk actions are shown.
func (s *Synchronizer) BulkActionsVisible() bool { return s.bulk }

func (s *Synchronizer) projected() bool {
	return s.projection != tracker.Projection{}
}

func (s *Synchronizer) rerender() {
	s.list.Reset(entries(s.projects.Project(s.projection)))
}

func (s *Synchronizer) renderMarker(w workout.Workout) {
	if s.surface == nil {
		return
	}
	h := s.surface.CreateMarker(w.Coords)
	s.surface.AttachPopup(h, fmt.Sprintf("%s %s", w.Icon(), w.Description()), markers.PopupOptions{
		AutoClose:    false,
		CloseOnClick: false,
		StyleClass:   string(w.Kind) + "-popup",
	})
	s.registry.Register(w.ID, w.Coords, h)
}

// updateBulk toggles the bulk actions only when n crosses the threshold.
func (s *Synchronizer) updateBulk(n int) {
	visible := n >= s.opts.BulkThreshold
	if visible == s.bulk {
		return
	}
	s.bulk = visible
	s.list.SetBulkActions(visible)
	s.log.Debug("bulk actions toggled", "visible", visible, "workouts", n)
}

func entries(records []workout.Workout) []Entry {
	out := make([]Entry, 0, len(records))
	for _, w := range records {
		out = append(out, EntryFor(w))
	}
	return out
}
