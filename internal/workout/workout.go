package workout

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of workout variants.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ParseKind maps a form or query value onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindRunning:
		return KindRunning, nil
	case KindCycling:
		return KindCycling, nil
	}
	return "", fmt.Errorf("unknown workout kind %q", s)
}

// Label returns the capitalized kind name used in descriptions.
func (k Kind) Label() string {
	switch k {
	case KindRunning:
		return "Running"
	case KindCycling:
		return "Cycling"
	}
	return string(k)
}

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RunningStats holds the running-only input and its derived pace.
type RunningStats struct {
	Cadence float64 `json:"cadence"` // steps/min
	Pace    float64 `json:"pace"`    // min/km
}

// CyclingStats holds the cycling-only input and its derived speed.
type CyclingStats struct {
	ElevationGain float64 `json:"elevationGain"` // m
	Speed         float64 `json:"speed"`         // km/h
}

// Workout is one logged activity. Exactly one of Running or Cycling is set,
// matching Kind.
type Workout struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	Coords    Coordinates   `json:"coordinates"`
	Distance  float64       `json:"distance"` // km
	Duration  float64       `json:"duration"` // min
	Kind      Kind          `json:"kind"`
	Running   *RunningStats `json:"running,omitempty"`
	Cycling   *CyclingStats `json:"cycling,omitempty"`
}

// NewRunning builds a running workout with its pace already derived.
func NewRunning(coords Coordinates, distance, duration, cadence float64) Workout {
	w := Workout{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Coords:    coords,
		Distance:  distance,
		Duration:  duration,
		Kind:      KindRunning,
		Running:   &RunningStats{Cadence: cadence},
	}
	w.Recompute()
	return w
}

// NewCycling builds a cycling workout with its speed already derived.
func NewCycling(coords Coordinates, distance, duration, elevationGain float64) Workout {
	w := Workout{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Coords:    coords,
		Distance:  distance,
		Duration:  duration,
		Kind:      KindCycling,
		Cycling:   &CyclingStats{ElevationGain: elevationGain},
	}
	w.Recompute()
	return w
}

// New dispatches to NewRunning or NewCycling. metric is cadence for running
// and elevation gain for cycling.
func New(kind Kind, coords Coordinates, distance, duration, metric float64) (Workout, error) {
	switch kind {
	case KindRunning:
		return NewRunning(coords, distance, duration, metric), nil
	case KindCycling:
		return NewCycling(coords, distance, duration, metric), nil
	}
	return Workout{}, fmt.Errorf("unknown workout kind %q", kind)
}

// Recompute derives pace or speed from distance and duration. A zero
// denominator, or any other non-finite result, yields 0.
func (w *Workout) Recompute() {
	switch w.Kind {
	case KindRunning:
		if w.Running == nil {
			w.Running = &RunningStats{}
		}
		w.Running.Pace = ratio(w.Duration, w.Distance)
	case KindCycling:
		if w.Cycling == nil {
			w.Cycling = &CyclingStats{}
		}
		w.Cycling.Speed = ratio(w.Distance, w.Duration/60)
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Metric returns the kind-specific input: cadence or elevation gain.
func (w Workout) Metric() float64 {
	switch {
	case w.Kind == KindRunning && w.Running != nil:
		return w.Running.Cadence
	case w.Kind == KindCycling && w.Cycling != nil:
		return w.Cycling.ElevationGain
	}
	return 0
}

// SetMetric overwrites the kind-specific input. Callers recompute afterwards.
func (w *Workout) SetMetric(v float64) {
	switch w.Kind {
	case KindRunning:
		if w.Running == nil {
			w.Running = &RunningStats{}
		}
		w.Running.Cadence = v
	case KindCycling:
		if w.Cycling == nil {
			w.Cycling = &CyclingStats{}
		}
		w.Cycling.ElevationGain = v
	}
}

// Derived returns pace for running and speed for cycling.
func (w Workout) Derived() float64 {
	switch {
	case w.Kind == KindRunning && w.Running != nil:
		return w.Running.Pace
	case w.Kind == KindCycling && w.Cycling != nil:
		return w.Cycling.Speed
	}
	return 0
}

// Clone returns a deep copy so callers never share the variant payload.
func (w Workout) Clone() Workout {
	c := w
	if w.Running != nil {
		r := *w.Running
		c.Running = &r
	}
	if w.Cycling != nil {
		cy := *w.Cycling
		c.Cycling = &cy
	}
	return c
}

// Description reads like "Running on October 19".
func (w Workout) Description() string {
	return fmt.Sprintf("%s on %s %d", w.Kind.Label(), w.CreatedAt.Month(), w.CreatedAt.Day())
}

// Icon is the emoji shown in front of popups and list entries.
func (w Workout) Icon() string {
	if w.Kind == KindRunning {
		return "🏃‍♂️"
	}
	return "🚴‍♀️"
}
