package app

import (
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/workout"
)

// Command is one user-initiated event. Dispatch handles them strictly one at
// a time.
type Command interface {
	isCommand()
}

// MapClick opens the new-workout form at the clicked position.
type MapClick struct {
	Coords workout.Coordinates
}

// SelectKind switches the form between the running and cycling inputs.
type SelectKind struct {
	Kind workout.Kind
}

// SubmitWorkout submits the new-workout form with raw field values. An empty
// Kind uses the kind currently selected in the form.
type SubmitWorkout struct {
	Kind     workout.Kind
	Distance string
	Duration string
	Metric   string
}

// CreateWorkout adds a workout at explicit coordinates without the form.
type CreateWorkout struct {
	Kind     workout.Kind
	Coords   workout.Coordinates
	Distance float64
	Duration float64
	Metric   float64
}

// OpenEdit opens the edit form of one workout.
type OpenEdit struct {
	ID string
}

// CancelEdit closes the open edit form.
type CancelEdit struct{}

// SubmitEdit changes a workout's distance, duration and kind-specific metric.
type SubmitEdit struct {
	ID       string
	Distance float64
	Duration float64
	Metric   float64
}

// RemoveWorkout deletes one workout.
type RemoveWorkout struct {
	ID string
}

// RemoveAll deletes every workout.
type RemoveAll struct{}

// ZoomTo recentres the map on one workout.
type ZoomTo struct {
	ID string
}

// ShowAll fits the map over every workout.
type ShowAll struct{}

// Sort redraws the list through a projection.
type Sort struct {
	Projection tracker.Projection
}

// DismissWarning hides a persistence warning.
type DismissWarning struct{}

func (MapClick) isCommand()       {}
func (SelectKind) isCommand()     {}
func (SubmitWorkout) isCommand()  {}
func (CreateWorkout) isCommand()  {}
func (OpenEdit) isCommand()       {}
func (CancelEdit) isCommand()     {}
func (SubmitEdit) isCommand()     {}
func (RemoveWorkout) isCommand()  {}
func (RemoveAll) isCommand()      {}
func (ZoomTo) isCommand()         {}
func (ShowAll) isCommand()        {}
func (Sort) isCommand()           {}
func (DismissWarning) isCommand() {}
