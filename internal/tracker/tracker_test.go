package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/workout"
)

var ctx = context.Background()

func newTracker(t *testing.T) (*Tracker, *storage.Snapshots, *[]Event) {
	t.Helper()
	snaps := storage.NewSnapshots(storage.NewMemory())
	tr := New(snaps, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var events []Event
	tr.Subscribe(ObserverFunc(func(e Event) { events = append(events, e) }))
	return tr, snaps, &events
}

func TestAddDerivesMetric(t *testing.T) {
	tr, _, events := newTracker(t)

	run, err := tr.Add(ctx, workout.KindRunning, workout.Coordinates{Lat: 10, Lng: 10}, 5, 25, 180)
	require.NoError(t, err)
	got, ok := tr.Find(run.ID)
	require.True(t, ok)
	require.Equal(t, 5.0, got.Derived())

	cyc, err := tr.Add(ctx, workout.KindCycling, workout.Coordinates{Lat: 20, Lng: 20}, 20, 60, 300)
	require.NoError(t, err)
	got, ok = tr.Find(cyc.ID)
	require.True(t, ok)
	require.Equal(t, 20.0, got.Derived())

	require.Len(t, *events, 2)
	require.Equal(t, OpAdded, (*events)[1].Op)
	require.Equal(t, 2, (*events)[1].Len)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	tr, _, events := newTracker(t)
	cases := []struct {
		name                       string
		distance, duration, metric float64
		field                      string
	}{
		{"negative distance", -1, 10, 10, "distance"},
		{"nan duration", 1, math.NaN(), 10, "duration"},
		{"infinite cadence", 1, 10, math.Inf(1), "cadence"},
	}
	for _, tc := range cases {
		_, err := tr.Add(ctx, workout.KindRunning, workout.Coordinates{}, tc.distance, tc.duration, tc.metric)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, tc.name)
		require.Equal(t, tc.field, ve.Field, tc.name)
	}
	require.Zero(t, tr.Len())
	require.Empty(t, *events)
}

// TestEditRecomputes covers the edit-to-zero-distance example: pace becomes 0.
func TestEditRecomputes(t *testing.T) {
	tr, _, _ := newTracker(t)
	first, err := tr.Add(ctx, workout.KindRunning, workout.Coordinates{Lat: 10, Lng: 10}, 5, 25, 180)
	require.NoError(t, err)
	_, err = tr.Add(ctx, workout.KindCycling, workout.Coordinates{Lat: 20, Lng: 20}, 20, 60, 300)
	require.NoError(t, err)

	edited, err := tr.Edit(ctx, first.ID, 0, 25, 175)
	require.NoError(t, err)
	require.Equal(t, first.ID, edited.ID)
	require.True(t, first.CreatedAt.Equal(edited.CreatedAt))
	require.Equal(t, 0.0, edited.Derived())
	require.Equal(t, 175.0, edited.Metric())
	require.Equal(t, first.ID, tr.List()[0].ID, "edit must keep position")
}

func TestEditValidatesLikeAdd(t *testing.T) {
	tr, _, _ := newTracker(t)
	w, err := tr.Add(ctx, workout.KindCycling, workout.Coordinates{}, 20, 60, 300)
	require.NoError(t, err)

	_, err = tr.Edit(ctx, w.ID, 20, 60, -5)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "elevation gain", ve.Field)

	got, _ := tr.Find(w.ID)
	require.Equal(t, 300.0, got.Metric())
}

func TestEditUnknownID(t *testing.T) {
	tr, _, _ := newTracker(t)
	_, err := tr.Edit(ctx, "missing", 1, 1, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemove(t *testing.T) {
	tr, _, _ := newTracker(t)
	a, _ := tr.Add(ctx, workout.KindRunning, workout.Coordinates{}, 1, 1, 1)
	b, _ := tr.Add(ctx, workout.KindRunning, workout.Coordinates{}, 2, 2, 2)
	c, _ := tr.Add(ctx, workout.KindRunning, workout.Coordinates{}, 3, 3, 3)

	require.NoError(t, tr.Remove(ctx, b.ID))
	_, ok := tr.Find(b.ID)
	require.False(t, ok)
	require.Equal(t, 2, tr.Len())
	list := tr.List()
	require.Equal(t, a.ID, list[0].ID)
	require.Equal(t, c.ID, list[1].ID)

	err := tr.Remove(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 2, tr.Len())
}

func TestClear(t *testing.T) {
	tr, snaps, events := newTracker(t)
	tr.Add(ctx, workout.KindRunning, workout.Coordinates{}, 1, 1, 1)
	tr.Add(ctx, workout.KindCycling, workout.Coordinates{}, 1, 1, 1)

	tr.Clear(ctx)
	require.Zero(t, tr.Len())
	last := (*events)[len(*events)-1]
	require.Equal(t, OpCleared, last.Op)
	require.Len(t, last.Removed, 2)

	stored, err := snaps.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, stored)
}

// TestSnapshotReconciles verifies that after mutations the stored snapshot
// reloads to the in-memory collection.
func TestSnapshotReconciles(t *testing.T) {
	tr, snaps, _ := newTracker(t)
	a, _ := tr.Add(ctx, workout.KindRunning, workout.Coordinates{Lat: 1, Lng: 2}, 5, 25, 180)
	b, _ := tr.Add(ctx, workout.KindCycling, workout.Coordinates{Lat: 3, Lng: 4}, 20, 60, 300)
	tr.Add(ctx, workout.KindRunning, workout.Coordinates{Lat: 5, Lng: 6}, 3, 20, 160)
	_, err := tr.Edit(ctx, b.ID, 30, 60, 450)
	require.NoError(t, err)
	require.NoError(t, tr.Remove(ctx, a.ID))

	stored, err := snaps.Load(ctx)
	require.NoError(t, err)
	mem := tr.List()
	require.Len(t, stored, len(mem))
	for i := range mem {
		require.Equal(t, mem[i].ID, stored[i].ID)
		require.Equal(t, mem[i].Kind, stored[i].Kind)
		require.Equal(t, mem[i].Distance, stored[i].Distance)
		require.Equal(t, mem[i].Metric(), stored[i].Metric())
		require.Equal(t, mem[i].Derived(), stored[i].Derived())
		require.True(t, mem[i].CreatedAt.Equal(stored[i].CreatedAt))
	}
}

type brokenStore struct{}

func (brokenStore) Save(context.Context, []workout.Workout) error {
	return &storage.PersistError{Err: errors.New("disk full")}
}

// TestPersistFailureKeepsState verifies the in-memory collection stays
// authoritative and observers hear about the failure.
func TestPersistFailureKeepsState(t *testing.T) {
	tr := New(brokenStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var ops []Op
	tr.Subscribe(ObserverFunc(func(e Event) { ops = append(ops, e.Op) }))

	w, err := tr.Add(ctx, workout.KindRunning, workout.Coordinates{}, 1, 1, 1)
	require.NoError(t, err)
	_, ok := tr.Find(w.ID)
	require.True(t, ok)
	require.Equal(t, []Op{OpAdded, OpPersistFailed}, ops)
}

func TestReplaceDoesNotNotify(t *testing.T) {
	tr, _, events := newTracker(t)
	tr.Replace([]workout.Workout{workout.NewRunning(workout.Coordinates{}, 1, 1, 1)})
	require.Equal(t, 1, tr.Len())
	require.Empty(t, *events)
}
