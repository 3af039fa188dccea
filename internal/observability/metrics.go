package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/claude/mapty/internal/tracker"
)

var (
	mutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "tracker",
		Name:      "mutations_total",
		Help:      "Workout collection mutations by operation.",
	}, []string{"op"})
	workoutsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "tracker",
		Name:      "workouts",
		Help:      "Number of workouts in the collection.",
	})
	persistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "storage",
		Name:      "persist_failures_total",
		Help:      "Snapshots that could not be written to the store.",
	})
	loadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "storage",
		Name:      "load_failures_total",
		Help:      "Stored snapshots that could not be read back.",
	})
)

func init() {
	prometheus.MustRegister(mutationsTotal, workoutsGauge, persistFailures, loadFailures)
}

// RecordLoadFailure counts a snapshot that fell back to an empty collection.
func RecordLoadFailure() {
	loadFailures.Inc()
}

// SetWorkouts sets the collection size gauge.
func SetWorkouts(n int) {
	workoutsGauge.Set(float64(n))
}

// TrackerObserver feeds tracker events into the metrics above.
type TrackerObserver struct{}

var _ tracker.Observer = TrackerObserver{}

func (TrackerObserver) Notify(ev tracker.Event) {
	if ev.Op == tracker.OpPersistFailed {
		persistFailures.Inc()
		return
	}
	mutationsTotal.WithLabelValues(ev.Op.String()).Inc()
	SetWorkouts(ev.Len)
}
