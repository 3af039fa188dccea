package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/claude/mapty/internal/tracker"
)

func TestTrackerObserver(t *testing.T) {
	before := testutil.ToFloat64(mutationsTotal.WithLabelValues("added"))
	beforeFail := testutil.ToFloat64(persistFailures)

	var o TrackerObserver
	o.Notify(tracker.Event{Op: tracker.OpAdded, Len: 4})
	o.Notify(tracker.Event{Op: tracker.OpPersistFailed, Len: 4, Err: errors.New("disk full")})

	if got := testutil.ToFloat64(mutationsTotal.WithLabelValues("added")) - before; got != 1 {
		t.Errorf("added mutations delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(workoutsGauge); got != 4 {
		t.Errorf("workouts gauge = %v, want 4", got)
	}
	if got := testutil.ToFloat64(persistFailures) - beforeFail; got != 1 {
		t.Errorf("persist failures delta = %v, want 1", got)
	}
}
