// Package app holds the application state built once at startup and routes
// every user command through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/mapview"
	"github.com/claude/mapty/internal/markers"
	"github.com/claude/mapty/internal/observability"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/view"
	"github.com/claude/mapty/internal/workout"
)

var (
	// ErrMapUnavailable is returned for map commands before the position fix
	// arrived, or after it failed.
	ErrMapUnavailable = errors.New("map is not initialized")
	// ErrNoPosition is returned when the form is submitted without a clicked position.
	ErrNoPosition = errors.New("click on the map to choose a position first")
)

// Store loads and saves the full workout collection.
type Store interface {
	tracker.Snapshotter
	Load(ctx context.Context) ([]workout.Workout, error)
}

// Result is what a command produced, if anything.
type Result struct {
	Workout  *workout.Workout  `json:"workout,omitempty"`
	Workouts []workout.Workout `json:"workouts,omitempty"`
}

// State is a serializable picture of everything the front-end draws.
type State struct {
	Map        *mapview.LayerState `json:"map,omitempty"`
	MapError   string              `json:"map_error,omitempty"`
	List       mapview.ListState   `json:"list"`
	Form       FormState           `json:"form"`
	Projection ProjectionState     `json:"projection"`
}

// FormState adds the input visibility toggle to the form.
type FormState struct {
	view.Form
	ShowCadence   bool `json:"show_cadence"`
	ShowElevation bool `json:"show_elevation"`
}

// ProjectionState is the active list projection.
type ProjectionState struct {
	Kind      workout.Kind      `json:"kind,omitempty"`
	Field     tracker.SortField `json:"sort,omitempty"`
	Direction string            `json:"dir"`
}

// App is the single owner of the workout collection and its views.
type App struct {
	mu sync.Mutex

	store   Store
	opts    view.Options
	log     *slog.Logger
	tracker *tracker.Tracker
	sync    *view.Synchronizer
	list    *mapview.List
	form    *view.Form

	layer  *mapview.Layer
	mapErr string
}

// New wires the tracker, synchronizer, list and form around store.
func New(store Store, opts view.Options, log *slog.Logger) *App {
	tr := tracker.New(store, log)
	list := mapview.NewList()
	s := view.NewSynchronizer(list, tr, opts, log)
	tr.Subscribe(s)
	tr.Subscribe(observability.TrackerObserver{})
	return &App{
		store:   store,
		opts:    opts,
		log:     log,
		tracker: tr,
		sync:    s,
		list:    list,
		form:    view.NewForm(),
	}
}

// Load reads the stored collection and renders the list, and the markers
// when the map exists. Unreadable data is logged and replaced by an empty
// collection.
func (a *App) Load(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	records, err := a.store.Load(ctx)
	if err != nil {
		a.log.Warn("stored workouts unreadable, starting with an empty collection", "error", err)
		observability.RecordLoadFailure()
		records = nil
	}
	a.replace(records)
	a.log.Info("workouts loaded", "count", a.tracker.Len())
}

// Import saves records as the whole collection, or appends those with unknown
// ids when merge is set, and redraws. Nothing changes if the save fails.
func (a *App) Import(ctx context.Context, records []workout.Workout, merge bool) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if merge {
		records = workout.MergeByID(a.tracker.List(), records)
	}
	if err := a.store.Save(ctx, records); err != nil {
		return 0, err
	}
	a.replace(records)
	a.log.Info("workouts imported", "count", len(records), "merge", merge)
	return len(records), nil
}

// replace swaps the collection and redraws the list and markers.
func (a *App) replace(records []workout.Workout) {
	a.sync.CloseEdit()
	a.tracker.Replace(records)
	a.sync.Render(a.tracker.List())
	if a.layer != nil {
		a.sync.Registry().UnregisterAll()
		a.sync.AttachSurface(a.layer, a.tracker.List())
	}
	observability.SetWorkouts(a.tracker.Len())
}

// InitMap waits for the one-shot position fix, then creates the map layer
// centred on it. If the fix fails the map is never created.
func (a *App) InitMap(ctx context.Context, loc geo.Locator) error {
	pos, err := loc.CurrentPosition(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.mapErr = err.Error()
		a.log.Warn("position unavailable, map not initialized", "error", err)
		return err
	}

	layer := mapview.NewLayer()
	layer.SetView(pos, a.zoom())
	h := layer.CreateMarker(pos)
	layer.AttachPopup(h, "You are here", markers.PopupOptions{AutoClose: true, CloseOnClick: true})
	a.sync.AttachSurface(layer, a.tracker.List())
	a.layer = layer
	a.log.Info("map initialized", "lat", pos.Lat, "lng", pos.Lng, "markers", layer.Len())
	return nil
}

func (a *App) zoom() int {
	if a.opts.Zoom > 0 {
		return a.opts.Zoom
	}
	return 13
}

// Dispatch runs one command.
func (a *App) Dispatch(ctx context.Context, cmd Command) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch c := cmd.(type) {
	case MapClick:
		if a.layer == nil {
			return nil, ErrMapUnavailable
		}
		a.form.Show(c.Coords)
		return &Result{}, nil

	case SelectKind:
		a.form.SelectKind(c.Kind)
		return &Result{}, nil

	case SubmitWorkout:
		return a.submitWorkout(ctx, c)

	case CreateWorkout:
		w, err := a.tracker.Add(ctx, c.Kind, c.Coords, c.Distance, c.Duration, c.Metric)
		if err != nil {
			return nil, err
		}
		return &Result{Workout: &w}, nil

	case OpenEdit:
		if _, ok := a.tracker.Find(c.ID); !ok {
			return nil, a.notFound("open edit", c.ID)
		}
		a.sync.OpenEdit(c.ID)
		return &Result{}, nil

	case CancelEdit:
		a.sync.CloseEdit()
		return &Result{}, nil

	case SubmitEdit:
		w, err := a.tracker.Edit(ctx, c.ID, c.Distance, c.Duration, c.Metric)
		if errors.Is(err, tracker.ErrNotFound) {
			return nil, a.notFound("edit", c.ID)
		}
		if err != nil {
			return nil, err
		}
		return &Result{Workout: &w}, nil

	case RemoveWorkout:
		if err := a.tracker.Remove(ctx, c.ID); err != nil {
			if errors.Is(err, tracker.ErrNotFound) {
				return nil, a.notFound("remove", c.ID)
			}
			return nil, err
		}
		return &Result{}, nil

	case RemoveAll:
		a.tracker.Clear(ctx)
		return &Result{}, nil

	case ZoomTo:
		if _, ok := a.tracker.Find(c.ID); !ok {
			return nil, a.notFound("zoom", c.ID)
		}
		if !a.sync.ZoomTo(c.ID) {
			return nil, ErrMapUnavailable
		}
		return &Result{}, nil

	case ShowAll:
		if a.layer == nil {
			return nil, ErrMapUnavailable
		}
		a.sync.ShowAll()
		return &Result{}, nil

	case Sort:
		a.sync.RenderProjection(c.Projection)
		return &Result{Workouts: a.tracker.Project(c.Projection)}, nil

	case DismissWarning:
		a.list.ClearWarning()
		return &Result{}, nil
	}
	return nil, fmt.Errorf("unsupported command %T", cmd)
}

func (a *App) submitWorkout(ctx context.Context, c SubmitWorkout) (*Result, error) {
	if !a.form.Visible || a.form.Coords == nil {
		return nil, ErrNoPosition
	}
	kind := c.Kind
	if kind == "" {
		kind = a.form.Kind
	}

	var vals [3]float64
	for i, f := range []struct{ name, raw string }{
		{"distance", c.Distance}, {"duration", c.Duration}, {"metric", c.Metric},
	} {
		v, err := view.ParseNumber(f.name, f.raw)
		if err != nil {
			a.form.Fail()
			return nil, err
		}
		vals[i] = v
	}

	w, err := a.tracker.Add(ctx, kind, *a.form.Coords, vals[0], vals[1], vals[2])
	if err != nil {
		var ve *tracker.ValidationError
		if errors.As(err, &ve) {
			a.form.Fail()
		}
		return nil, err
	}
	a.form.Hide()
	return &Result{Workout: &w}, nil
}

// notFound logs a stale id, e.g. from a second browser tab, and returns
// tracker.ErrNotFound.
func (a *App) notFound(op, id string) error {
	a.log.Warn("workout not found", "op", op, "id", id)
	return fmt.Errorf("%s %s: %w", op, id, tracker.ErrNotFound)
}

// Find returns one workout.
func (a *App) Find(id string) (workout.Workout, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tracker.Find(id)
}

// Project returns a projection of the collection without touching the list.
func (a *App) Project(p tracker.Projection) []workout.Workout {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tracker.Project(p)
}

// Summary returns per-kind totals.
func (a *App) Summary() []workout.KindSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return workout.Summarize(a.tracker.List())
}

// State returns what the front-end should draw.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.sync.Projection()
	st := State{
		MapError: a.mapErr,
		List:     a.list.State(),
		Form: FormState{
			Form:          *a.form,
			ShowCadence:   a.form.ShowsCadence(),
			ShowElevation: a.form.ShowsElevation(),
		},
		Projection: ProjectionState{Kind: p.Kind, Field: p.Field, Direction: p.Direction.String()},
	}
	if a.layer != nil {
		ls := a.layer.State()
		st.Map = &ls
	}
	return st
}
