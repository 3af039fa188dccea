package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/view"
	"github.com/claude/mapty/internal/workout"
)

var ctx = context.Background()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newApp(t *testing.T, kv storage.KV) *App {
	t.Helper()
	a := New(storage.NewSnapshots(kv), view.Options{BulkThreshold: 3, Zoom: 13, FitPadding: 50}, discardLogger())
	a.Load(ctx)
	return a
}

func readyApp(t *testing.T) *App {
	t.Helper()
	a := newApp(t, storage.NewMemory())
	require.NoError(t, a.InitMap(ctx, geo.Static{Position: workout.Coordinates{Lat: 51.5, Lng: -0.1}}))
	return a
}

func TestInitMapCentresOnPosition(t *testing.T) {
	a := readyApp(t)
	st := a.State()
	require.NotNil(t, st.Map)
	require.Equal(t, workout.Coordinates{Lat: 51.5, Lng: -0.1}, st.Map.Center)
	require.Equal(t, 13, st.Map.Zoom)
	require.Len(t, st.Map.Markers, 1, "current position marker")
}

// TestInitMapFailure verifies a failed fix leaves the map uninitialized and
// map commands refused, while the list keeps working.
func TestInitMapFailure(t *testing.T) {
	a := newApp(t, storage.NewMemory())
	b := geo.NewBrowser()
	require.NoError(t, b.Reject("User denied Geolocation"))

	require.Error(t, a.InitMap(ctx, b))
	st := a.State()
	require.Nil(t, st.Map)
	require.Contains(t, st.MapError, "User denied Geolocation")

	_, err := a.Dispatch(ctx, MapClick{Coords: workout.Coordinates{Lat: 1, Lng: 1}})
	require.ErrorIs(t, err, ErrMapUnavailable)

	res, err := a.Dispatch(ctx, CreateWorkout{Kind: workout.KindRunning, Distance: 5, Duration: 25, Metric: 180})
	require.NoError(t, err)
	require.NotNil(t, res.Workout)
	require.Len(t, a.State().List.Entries, 1)
}

// TestFormFlow walks click -> kind toggle -> bad input -> good input.
func TestFormFlow(t *testing.T) {
	a := readyApp(t)

	_, err := a.Dispatch(ctx, SubmitWorkout{Distance: "5", Duration: "25", Metric: "180"})
	require.ErrorIs(t, err, ErrNoPosition)

	click := workout.Coordinates{Lat: 20, Lng: 20}
	_, err = a.Dispatch(ctx, MapClick{Coords: click})
	require.NoError(t, err)
	require.True(t, a.State().Form.Visible)

	_, err = a.Dispatch(ctx, SelectKind{Kind: workout.KindCycling})
	require.NoError(t, err)
	st := a.State()
	require.True(t, st.Form.ShowElevation)
	require.False(t, st.Form.ShowCadence)

	_, err = a.Dispatch(ctx, SubmitWorkout{Distance: "20", Duration: "-60", Metric: "300"})
	var ve *tracker.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, view.InvalidInputMessage, a.State().Form.Error)
	require.Empty(t, a.State().List.Entries)

	_, err = a.Dispatch(ctx, SubmitWorkout{Distance: "twenty", Duration: "60", Metric: "300"})
	var ie *view.InputError
	require.ErrorAs(t, err, &ie)

	res, err := a.Dispatch(ctx, SubmitWorkout{Distance: "20", Duration: "60", Metric: "300"})
	require.NoError(t, err)
	require.Equal(t, workout.KindCycling, res.Workout.Kind)
	require.Equal(t, click, res.Workout.Coords)
	require.Equal(t, 20.0, res.Workout.Derived())

	st = a.State()
	require.False(t, st.Form.Visible)
	require.Empty(t, st.Form.Error)
	require.Len(t, st.Map.Markers, 2)
	require.Len(t, st.List.Entries, 1)
}

func TestNotFoundCommands(t *testing.T) {
	a := readyApp(t)
	for _, cmd := range []Command{
		OpenEdit{ID: "gone"},
		SubmitEdit{ID: "gone", Distance: 1, Duration: 1, Metric: 1},
		RemoveWorkout{ID: "gone"},
		ZoomTo{ID: "gone"},
	} {
		_, err := a.Dispatch(ctx, cmd)
		require.ErrorIs(t, err, tracker.ErrNotFound, "%T", cmd)
	}
}

// TestScenario follows the worked example end to end, including reload.
func TestScenario(t *testing.T) {
	kv := storage.NewMemory()
	a := newApp(t, kv)
	require.NoError(t, a.InitMap(ctx, geo.Static{Position: workout.Coordinates{Lat: 15, Lng: 15}}))

	run, err := a.Dispatch(ctx, CreateWorkout{Kind: workout.KindRunning, Coords: workout.Coordinates{Lat: 10, Lng: 10}, Distance: 5, Duration: 25, Metric: 180})
	require.NoError(t, err)
	require.Equal(t, 5.0, run.Workout.Derived())

	cyc, err := a.Dispatch(ctx, CreateWorkout{Kind: workout.KindCycling, Coords: workout.Coordinates{Lat: 20, Lng: 20}, Distance: 20, Duration: 60, Metric: 300})
	require.NoError(t, err)
	require.Equal(t, 20.0, cyc.Workout.Derived())

	edited, err := a.Dispatch(ctx, SubmitEdit{ID: run.Workout.ID, Distance: 0, Duration: 25, Metric: 180})
	require.NoError(t, err)
	require.Equal(t, 0.0, edited.Workout.Derived())

	require.False(t, a.State().List.BulkActions)
	third, err := a.Dispatch(ctx, CreateWorkout{Kind: workout.KindRunning, Coords: workout.Coordinates{Lat: 30, Lng: 30}, Distance: 3, Duration: 18, Metric: 170})
	require.NoError(t, err)
	require.True(t, a.State().List.BulkActions)

	_, err = a.Dispatch(ctx, RemoveWorkout{ID: third.Workout.ID})
	require.NoError(t, err)
	require.False(t, a.State().List.BulkActions)

	_, err = a.Dispatch(ctx, ShowAll{})
	require.NoError(t, err)
	fit := a.State().Map.Fit
	require.NotNil(t, fit)
	require.Equal(t, 10.0, fit.Region.SouthWest.Lat)
	require.Equal(t, 20.0, fit.Region.NorthEast.Lat)

	// A fresh process over the same store sees the same collection.
	b := newApp(t, kv)
	require.NoError(t, b.InitMap(ctx, geo.Static{Position: workout.Coordinates{Lat: 15, Lng: 15}}))
	got, ok := b.Find(run.Workout.ID)
	require.True(t, ok)
	require.Equal(t, 0.0, got.Distance)
	require.Len(t, b.State().List.Entries, 2)
	require.Len(t, b.State().Map.Markers, 3)

	_, err = b.Dispatch(ctx, RemoveAll{})
	require.NoError(t, err)
	st := b.State()
	require.Empty(t, st.List.Entries)
	require.Len(t, st.Map.Markers, 1, "only the position marker remains")
}

func TestSortDoesNotReorderStorage(t *testing.T) {
	a := readyApp(t)
	for _, d := range []float64{10, 3, 7} {
		_, err := a.Dispatch(ctx, CreateWorkout{Kind: workout.KindRunning, Distance: d, Duration: 30, Metric: 170})
		require.NoError(t, err)
	}
	res, err := a.Dispatch(ctx, Sort{Projection: tracker.Projection{Field: tracker.SortDistance}})
	require.NoError(t, err)
	require.Equal(t, 3.0, res.Workouts[0].Distance)
	require.Equal(t, 3.0, a.State().List.Entries[0].Distance)

	all := a.Project(tracker.Projection{})
	require.Equal(t, 10.0, all[0].Distance)
	require.Equal(t, "asc", a.State().Projection.Direction)
}

func TestEditFormExclusive(t *testing.T) {
	a := readyApp(t)
	x, _ := a.Dispatch(ctx, CreateWorkout{Kind: workout.KindRunning, Distance: 1, Duration: 1, Metric: 1})
	y, _ := a.Dispatch(ctx, CreateWorkout{Kind: workout.KindRunning, Distance: 2, Duration: 2, Metric: 2})

	_, err := a.Dispatch(ctx, OpenEdit{ID: x.Workout.ID})
	require.NoError(t, err)
	_, err = a.Dispatch(ctx, OpenEdit{ID: y.Workout.ID})
	require.NoError(t, err)
	require.Equal(t, y.Workout.ID, a.State().List.Editing)

	_, err = a.Dispatch(ctx, CancelEdit{})
	require.NoError(t, err)
	require.Empty(t, a.State().List.Editing)
}

// TestLoadCorruptFallsBack verifies unreadable stored data yields an empty
// collection instead of a failure.
func TestLoadCorruptFallsBack(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Put(ctx, storage.SnapshotKey, []byte(`{"version":1,"workouts":[{"kind":"rowing"}]}`)))
	a := newApp(t, kv)
	require.Empty(t, a.State().List.Entries)

	_, err := a.Dispatch(ctx, CreateWorkout{Kind: workout.KindRunning, Distance: 1, Duration: 1, Metric: 1})
	require.NoError(t, err)
}

type fullKV struct{ *storage.Memory }

func (fullKV) Put(context.Context, string, []byte) error { return errors.New("quota exceeded") }

func TestPersistFailureIsNonBlocking(t *testing.T) {
	a := newApp(t, fullKV{storage.NewMemory()})
	res, err := a.Dispatch(ctx, CreateWorkout{Kind: workout.KindRunning, Distance: 1, Duration: 1, Metric: 1})
	require.NoError(t, err)
	require.NotNil(t, res.Workout)
	require.Equal(t, view.PersistWarning, a.State().List.Warning)

	_, err = a.Dispatch(ctx, DismissWarning{})
	require.NoError(t, err)
	require.Empty(t, a.State().List.Warning)
}
