package tracker

import (
	"fmt"
	"slices"
	"strings"

	"github.com/claude/mapty/internal/workout"
)

// SortField names what a projection orders by.
type SortField string

const (
	SortDate      SortField = "date"
	SortDistance  SortField = "distance"
	SortDuration  SortField = "duration"
	SortCadence   SortField = "cadence"
	SortElevation SortField = "elevation"
	SortPace      SortField = "pace"
	SortSpeed     SortField = "speed"
)

// Direction is the projection sort order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseSortField accepts the field names above; empty means date.
func ParseSortField(s string) (SortField, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return SortDate, nil
	case SortDate, SortDistance, SortDuration, SortCadence, SortElevation, SortPace, SortSpeed:
		return f, nil
	case "elevationgain":
		return SortElevation, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// ParseDirection accepts asc/ascending and desc/descending; empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("unknown sort direction %q", s)
}

// Projection selects and orders a read-only view of the collection. An empty
// Kind keeps every workout.
type Projection struct {
	Kind      workout.Kind
	Field     SortField
	Direction Direction
}

// Project returns a filtered, stably sorted copy of the collection. The
// stored creation order is never touched.
func (t *Tracker) Project(p Projection) []workout.Workout {
	out := make([]workout.Workout, 0, len(t.records))
	for _, w := range t.records {
		if p.Kind != "" && w.Kind != p.Kind {
			continue
		}
		out = append(out, w.Clone())
	}

	field := p.Field
	if field == "" {
		field = SortDate
	}
	slices.SortStableFunc(out, func(a, b workout.Workout) int {
		av, aok := sortKey(a, field)
		bv, bok := sortKey(b, field)
		// Workouts without the field go last whatever the direction.
		switch {
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		case !aok && !bok:
			return 0
		}
		c := compare(av, bv)
		if p.Direction == Descending {
			c = -c
		}
		return c
	})
	return out
}

func sortKey(w workout.Workout, f SortField) (float64, bool) {
	switch f {
	case SortDate:
		return float64(w.CreatedAt.UnixNano()), true
	case SortDistance:
		return w.Distance, true
	case SortDuration:
		return w.Duration, true
	case SortCadence:
		if w.Kind == workout.KindRunning {
			return w.Metric(), true
		}
	case SortElevation:
		if w.Kind == workout.KindCycling {
			return w.Metric(), true
		}
	case SortPace:
		if w.Kind == workout.KindRunning {
			return w.Derived(), true
		}
	case SortSpeed:
		if w.Kind == workout.KindCycling {
			return w.Derived(), true
		}
	}
	return 0, false
}

func compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
