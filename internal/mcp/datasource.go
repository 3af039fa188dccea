package mcp

import (
	"context"

	"github.com/claude/mapty/internal/app"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/workout"
)

// DataSource abstracts the data layer for MCP tools. Both Local (in-process)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListWorkouts(ctx context.Context, p tracker.Projection, limit int) ([]workout.Workout, error)
	GetWorkout(ctx context.Context, id string) (*workout.Workout, error)
	Summary(ctx context.Context) ([]workout.KindSummary, error)
}

// Local serves MCP requests from the running application.
type Local struct {
	App *app.App
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = Local{}

func (l Local) ListWorkouts(_ context.Context, p tracker.Projection, limit int) ([]workout.Workout, error) {
	records := l.App.Project(p)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (l Local) GetWorkout(_ context.Context, id string) (*workout.Workout, error) {
	w, ok := l.App.Find(id)
	if !ok {
		return nil, tracker.ErrNotFound
	}
	return &w, nil
}

func (l Local) Summary(context.Context) ([]workout.KindSummary, error) {
	return l.App.Summary(), nil
}
