package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/claude/mapty/internal/workout"
)

func sampleWorkouts() []workout.Workout {
	return []workout.Workout{
		workout.NewRunning(workout.Coordinates{Lat: 10, Lng: 10}, 5, 25, 180),
		workout.NewCycling(workout.Coordinates{Lat: 20, Lng: 20}, 20, 60, 300),
		workout.NewRunning(workout.Coordinates{Lat: -33.9, Lng: 151.2}, 0, 12, 0),
	}
}

func equalWorkouts(t *testing.T, got, want []workout.Workout) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d workouts, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.Kind != w.Kind || !g.CreatedAt.Equal(w.CreatedAt) || g.Coords != w.Coords ||
			g.Distance != w.Distance || g.Duration != w.Duration ||
			g.Metric() != w.Metric() || g.Derived() != w.Derived() {
			t.Errorf("workout %d = %+v, want %+v", i, g, w)
		}
	}
}

// TestSnapshotRoundTrip verifies Load(Save(C)) returns C with the same ids,
// kinds, fields and order.
func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshots(NewMemory())
	want := sampleWorkouts()

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	equalWorkouts(t, got, want)
}

// TestSnapshotLastWriteWins verifies a save fully replaces the previous snapshot.
func TestSnapshotLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshots(NewMemory())
	all := sampleWorkouts()

	if err := s.Save(ctx, all); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, all[1:2]); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	equalWorkouts(t, got, all[1:2])
}

// TestLoadAbsentKey verifies a missing key loads as an empty collection, not an error.
func TestLoadAbsentKey(t *testing.T) {
	got, err := NewSnapshots(NewMemory()).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

// TestDecodeLegacyArray verifies the bare-array layout without a version field still loads.
func TestDecodeLegacyArray(t *testing.T) {
	data := `[{"id":"a","createdAt":"2026-04-14T09:00:00Z","coordinates":{"lat":1,"lng":2},
		"distance":10,"duration":50,"kind":"running","cadence":170}]`
	got, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" || got[0].Kind != workout.KindRunning || got[0].Derived() != 5 {
		t.Errorf("got %+v", got)
	}
	if !got[0].CreatedAt.Equal(time.Date(2026, 4, 14, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("createdAt = %v", got[0].CreatedAt)
	}
}

// TestDecodeMalformed verifies every malformed shape surfaces as a *LoadError.
func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":         `{{{`,
		"future version":   `{"version":99,"workouts":[]}`,
		"zero version":     `{"version":0,"workouts":[]}`,
		"unknown kind":     `[{"id":"a","createdAt":"2026-01-01T00:00:00Z","coordinates":{"lat":1,"lng":2},"distance":1,"duration":1,"kind":"swimming"}]`,
		"missing cadence":  `[{"id":"a","createdAt":"2026-01-01T00:00:00Z","coordinates":{"lat":1,"lng":2},"distance":1,"duration":1,"kind":"running"}]`,
		"missing coords":   `[{"id":"a","createdAt":"2026-01-01T00:00:00Z","distance":1,"duration":1,"kind":"running","cadence":1}]`,
		"missing id":       `[{"createdAt":"2026-01-01T00:00:00Z","coordinates":{"lat":1,"lng":2},"distance":1,"duration":1,"kind":"running","cadence":1}]`,
		"negative":         `[{"id":"a","createdAt":"2026-01-01T00:00:00Z","coordinates":{"lat":1,"lng":2},"distance":-1,"duration":1,"kind":"cycling","elevationGain":1}]`,
		"wrong shape":      `{"version":1,"workouts":{"id":"a"}}`,
		"duplicate id":     `[{"id":"a","createdAt":"2026-01-01T00:00:00Z","coordinates":{"lat":1,"lng":2},"distance":1,"duration":1,"kind":"running","cadence":1},{"id":"a","createdAt":"2026-01-01T00:00:00Z","coordinates":{"lat":1,"lng":2},"distance":1,"duration":1,"kind":"running","cadence":1}]`,
		"missing created":  `[{"id":"a","coordinates":{"lat":1,"lng":2},"distance":1,"duration":1,"kind":"running","cadence":1}]`,
	}
	for name, data := range cases {
		_, err := Decode([]byte(data))
		var le *LoadError
		if !errors.As(err, &le) {
			t.Errorf("%s: err = %v, want *LoadError", name, err)
		}
	}
}

type failingKV struct{ Memory }

func (f *failingKV) Put(context.Context, string, []byte) error { return errors.New("quota exceeded") }

// TestSaveFailure verifies store failures surface as a *PersistError.
func TestSaveFailure(t *testing.T) {
	s := NewSnapshots(&failingKV{Memory: Memory{data: map[string][]byte{}}})
	err := s.Save(context.Background(), sampleWorkouts())
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PersistError", err)
	}
}

// TestSQLiteRoundTrip verifies the SQLite KV persists snapshots across reopen.
func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/mapty.db"

	kv, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	want := sampleWorkouts()
	if err := NewSnapshots(kv).Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatal(err)
	}

	kv, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer kv.Close()
	got, err := NewSnapshots(kv).Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	equalWorkouts(t, got, want)
}

// TestOpenDrivers verifies driver selection for the drivers that need no server.
func TestOpenDrivers(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	kv, err := Open(context.Background(), Options{Driver: "memory"}, log)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := kv.(*Memory); !ok {
		t.Errorf("memory driver = %T, want *Memory", kv)
	}

	kv, err = Open(context.Background(), Options{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "nested", "mapty.db")}, log)
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()
	if _, ok := kv.(*SQLite); !ok {
		t.Errorf("sqlite driver = %T, want *SQLite", kv)
	}

	if _, err := Open(context.Background(), Options{Driver: "redis"}, log); err == nil {
		t.Error("expected error for unknown driver")
	}
}
