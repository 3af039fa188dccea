package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/claude/mapty/internal/workout"
)

// SnapshotKey is the fixed key the workout collection is stored under.
const SnapshotKey = "workouts"

// SnapshotVersion is written into every saved document. Version 0 is the
// bare-array layout that predates the envelope.
const SnapshotVersion = 1

// PersistError reports a snapshot that could not be written. The in-memory
// collection is still valid when this is returned.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string { return "persisting workouts: " + e.Err.Error() }
func (e *PersistError) Unwrap() error { return e.Err }

// LoadError reports a stored snapshot that could not be read back.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "loading workouts: " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

type storedCoords struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// storedWorkout is the flat on-disk shape of one record.
type storedWorkout struct {
	ID            string        `json:"id"`
	CreatedAt     time.Time     `json:"createdAt"`
	Coordinates   *storedCoords `json:"coordinates"`
	Distance      *float64      `json:"distance"`
	Duration      *float64      `json:"duration"`
	Kind          string        `json:"kind"`
	Cadence       *float64      `json:"cadence,omitempty"`
	ElevationGain *float64      `json:"elevationGain,omitempty"`
}

type document struct {
	Version  int             `json:"version"`
	Workouts []storedWorkout `json:"workouts"`
}

// Snapshots saves and loads the full workout collection through a KV.
type Snapshots struct {
	kv  KV
	key string
}

// NewSnapshots returns an adapter writing under SnapshotKey.
func NewSnapshots(kv KV) *Snapshots {
	return &Snapshots{kv: kv, key: SnapshotKey}
}

// Save overwrites the stored snapshot with records, in order.
func (s *Snapshots) Save(ctx context.Context, records []workout.Workout) error {
	data, err := Encode(records)
	if err != nil {
		return &PersistError{Err: err}
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return &PersistError{Err: err}
	}
	return nil
}

// Load returns the stored collection, or an empty one when nothing was saved.
func (s *Snapshots) Load(ctx context.Context) ([]workout.Workout, error) {
	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	if !ok {
		return []workout.Workout{}, nil
	}
	return Decode(data)
}

// Encode serializes records into the current document layout.
func Encode(records []workout.Workout) ([]byte, error) {
	doc := document{Version: SnapshotVersion, Workouts: make([]storedWorkout, 0, len(records))}
	for _, w := range records {
		lat, lng := w.Coords.Lat, w.Coords.Lng
		dist, dur := w.Distance, w.Duration
		sw := storedWorkout{
			ID:          w.ID,
			CreatedAt:   w.CreatedAt,
			Coordinates: &storedCoords{Lat: &lat, Lng: &lng},
			Distance:    &dist,
			Duration:    &dur,
			Kind:        string(w.Kind),
		}
		metric := w.Metric()
		switch w.Kind {
		case workout.KindRunning:
			sw.Cadence = &metric
		case workout.KindCycling:
			sw.ElevationGain = &metric
		default:
			return nil, fmt.Errorf("workout %s has unknown kind %q", w.ID, w.Kind)
		}
		doc.Workouts = append(doc.Workouts, sw)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a stored snapshot, either layout, and rebuilds each variant.
// Any malformed entry fails the whole load with a *LoadError.
func Decode(data []byte) ([]workout.Workout, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []workout.Workout{}, nil
	}

	var entries []storedWorkout
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, &LoadError{Err: fmt.Errorf("decoding legacy snapshot: %w", err)}
		}
	} else {
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, &LoadError{Err: fmt.Errorf("decoding snapshot: %w", err)}
		}
		if doc.Version < 1 || doc.Version > SnapshotVersion {
			return nil, &LoadError{Err: fmt.Errorf("unsupported snapshot version %d", doc.Version)}
		}
		entries = doc.Workouts
	}

	out := make([]workout.Workout, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		w, err := e.toWorkout()
		if err != nil {
			return nil, &LoadError{Err: fmt.Errorf("entry %d: %w", i, err)}
		}
		if seen[w.ID] {
			return nil, &LoadError{Err: fmt.Errorf("entry %d: duplicate id %s", i, w.ID)}
		}
		seen[w.ID] = true
		out = append(out, w)
	}
	return out, nil
}

var errMissingField = errors.New("missing field")

func (e storedWorkout) toWorkout() (workout.Workout, error) {
	if e.ID == "" {
		return workout.Workout{}, fmt.Errorf("id: %w", errMissingField)
	}
	if e.CreatedAt.IsZero() {
		return workout.Workout{}, fmt.Errorf("createdAt: %w", errMissingField)
	}
	if e.Coordinates == nil || e.Coordinates.Lat == nil || e.Coordinates.Lng == nil {
		return workout.Workout{}, fmt.Errorf("coordinates: %w", errMissingField)
	}
	if e.Distance == nil || e.Duration == nil {
		return workout.Workout{}, fmt.Errorf("distance/duration: %w", errMissingField)
	}

	w := workout.Workout{
		ID:        e.ID,
		CreatedAt: e.CreatedAt.UTC(),
		Coords:    workout.Coordinates{Lat: *e.Coordinates.Lat, Lng: *e.Coordinates.Lng},
		Distance:  *e.Distance,
		Duration:  *e.Duration,
		Kind:      workout.Kind(e.Kind),
	}

	var metric *float64
	switch w.Kind {
	case workout.KindRunning:
		metric = e.Cadence
		w.Running = &workout.RunningStats{}
	case workout.KindCycling:
		metric = e.ElevationGain
		w.Cycling = &workout.CyclingStats{}
	default:
		return workout.Workout{}, fmt.Errorf("unknown kind %q", e.Kind)
	}
	if metric == nil {
		return workout.Workout{}, fmt.Errorf("%s metric: %w", w.Kind, errMissingField)
	}
	for name, v := range map[string]float64{"distance": w.Distance, "duration": w.Duration, "metric": *metric} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return workout.Workout{}, fmt.Errorf("%s out of range: %v", name, v)
		}
	}

	w.SetMetric(*metric)
	w.Recompute()
	return w, nil
}
