// Package tracker owns the authoritative, chronologically ordered workout
// collection. Every successful mutation is snapshotted to the store and
// announced to subscribers.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/claude/mapty/internal/workout"
)

// ErrNotFound is returned when an id does not match any workout.
var ErrNotFound = errors.New("workout not found")

// ValidationError rejects a non-finite or negative numeric input.
type ValidationError struct {
	Field string
	Value float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: must be a finite number >= 0", e.Field, e.Value)
}

// Snapshotter persists the full ordered collection.
type Snapshotter interface {
	Save(ctx context.Context, records []workout.Workout) error
}

// Op identifies what changed in an Event.
type Op int

const (
	OpAdded Op = iota
	OpEdited
	OpRemoved
	OpCleared
	OpPersistFailed
)

func (o Op) String() string {
	switch o {
	case OpAdded:
		return "added"
	case OpEdited:
		return "edited"
	case OpRemoved:
		return "removed"
	case OpCleared:
		return "cleared"
	case OpPersistFailed:
		return "persist_failed"
	}
	return "unknown"
}

// Event describes one mutation. Workout is set for add/edit/remove, Removed
// for clear, Err for a persistence failure. Len is the collection size after
// the mutation.
type Event struct {
	Op      Op
	Workout workout.Workout
	Removed []workout.Workout
	Len     int
	Err     error
}

// Observer is notified after every mutation, in subscription order.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

// Tracker is the collection manager. It is not safe for concurrent use; the
// caller serializes events.
type Tracker struct {
	records   []*workout.Workout
	store     Snapshotter
	observers []Observer
	log       *slog.Logger
}

// New creates an empty Tracker that snapshots through store. store may be nil
// for an in-memory only collection.
func New(store Snapshotter, log *slog.Logger) *Tracker {
	return &Tracker{store: store, log: log}
}

// Subscribe registers o for mutation events.
func (t *Tracker) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

// Replace swaps in records loaded from storage. Nothing is snapshotted and no
// events are emitted; callers render the loaded state themselves.
func (t *Tracker) Replace(records []workout.Workout) {
	t.records = make([]*workout.Workout, 0, len(records))
	for _, w := range records {
		c := w.Clone()
		t.records = append(t.records, &c)
	}
}

// Add validates inputs, then creates, appends and snapshots a new workout.
func (t *Tracker) Add(ctx context.Context, kind workout.Kind, coords workout.Coordinates, distance, duration, metric float64) (workout.Workout, error) {
	if err := validate(kind, distance, duration, metric); err != nil {
		return workout.Workout{}, err
	}
	w, err := workout.New(kind, coords, distance, duration, metric)
	if err != nil {
		return workout.Workout{}, err
	}
	t.records = append(t.records, &w)
	t.commit(ctx, Event{Op: OpAdded, Workout: w.Clone()})
	return w.Clone(), nil
}

// Edit updates distance, duration and the kind-specific metric in place,
// keeping the workout's identity and position.
func (t *Tracker) Edit(ctx context.Context, id string, distance, duration, metric float64) (workout.Workout, error) {
	i := t.index(id)
	if i < 0 {
		return workout.Workout{}, fmt.Errorf("edit %s: %w", id, ErrNotFound)
	}
	w := t.records[i]
	if err := validate(w.Kind, distance, duration, metric); err != nil {
		return workout.Workout{}, err
	}
	w.Distance = distance
	w.Duration = duration
	w.SetMetric(metric)
	w.Recompute()
	t.commit(ctx, Event{Op: OpEdited, Workout: w.Clone()})
	return w.Clone(), nil
}

// Remove deletes one workout, preserving the order of the rest.
func (t *Tracker) Remove(ctx context.Context, id string) error {
	i := t.index(id)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	removed := t.records[i].Clone()
	t.records = append(t.records[:i], t.records[i+1:]...)
	t.commit(ctx, Event{Op: OpRemoved, Workout: removed})
	return nil
}

// Clear empties the collection unconditionally.
func (t *Tracker) Clear(ctx context.Context) {
	removed := t.List()
	t.records = nil
	t.commit(ctx, Event{Op: OpCleared, Removed: removed})
}

// Find returns a copy of the workout with the given id.
func (t *Tracker) Find(id string) (workout.Workout, bool) {
	if i := t.index(id); i >= 0 {
		return t.records[i].Clone(), true
	}
	return workout.Workout{}, false
}

// List returns copies of every workout in creation order.
func (t *Tracker) List() []workout.Workout {
	out := make([]workout.Workout, 0, len(t.records))
	for _, w := range t.records {
		out = append(out, w.Clone())
	}
	return out
}

// Len returns the number of workouts.
func (t *Tracker) Len() int { return len(t.records) }

func (t *Tracker) index(id string) int {
	for i, w := range t.records {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// commit snapshots the collection and notifies observers. A failed snapshot
// never rolls back the in-memory change.
func (t *Tracker) commit(ctx context.Context, ev Event) {
	ev.Len = len(t.records)

	var saveErr error
	if t.store != nil {
		saveErr = t.store.Save(ctx, t.List())
	}
	t.notify(ev)

	if saveErr != nil {
		t.log.Warn("snapshot failed, changes may not survive a reload", "op", ev.Op.String(), "error", saveErr)
		t.notify(Event{Op: OpPersistFailed, Len: ev.Len, Err: saveErr})
	}
}

func (t *Tracker) notify(ev Event) {
	for _, o := range t.observers {
		o.Notify(ev)
	}
}

func validate(kind workout.Kind, distance, duration, metric float64) error {
	metricField := "cadence"
	if kind == workout.KindCycling {
		metricField = "elevation gain"
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"distance", distance}, {"duration", duration}, {metricField, metric}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return &ValidationError{Field: f.name, Value: f.v}
		}
	}
	return nil
}
