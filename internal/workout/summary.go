package workout

// KindSummary aggregates every workout of one kind.
type KindSummary struct {
	Kind          Kind    `json:"kind"`
	Count         int     `json:"count"`
	TotalDistance float64 `json:"total_distance_km"`
	TotalDuration float64 `json:"total_duration_min"`
	// AvgDerived is the mean pace (running) or speed (cycling) over workouts
	// with a non-zero derived value.
	AvgDerived float64 `json:"avg_derived"`
}

// Summarize returns one summary per kind present, running first.
func Summarize(records []Workout) []KindSummary {
	var out []KindSummary
	for _, k := range []Kind{KindRunning, KindCycling} {
		s := KindSummary{Kind: k}
		var sum float64
		var n int
		for _, w := range records {
			if w.Kind != k {
				continue
			}
			s.Count++
			s.TotalDistance += w.Distance
			s.TotalDuration += w.Duration
			if d := w.Derived(); d > 0 {
				sum += d
				n++
			}
		}
		if s.Count == 0 {
			continue
		}
		if n > 0 {
			s.AvgDerived = sum / float64(n)
		}
		out = append(out, s)
	}
	return out
}

// MergeByID appends incoming workouts whose id is not in existing. Existing
// records keep their values and order.
func MergeByID(existing, incoming []Workout) []Workout {
	seen := make(map[string]bool, len(existing))
	for _, w := range existing {
		seen[w.ID] = true
	}
	out := append([]Workout(nil), existing...)
	for _, w := range incoming {
		if !seen[w.ID] {
			seen[w.ID] = true
			out = append(out, w)
		}
	}
	return out
}
