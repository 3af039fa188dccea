package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/workout"
)

// timeRange parses optional start/end bounds. A zero time means unbounded.
func timeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// within keeps records created in [start, end). Zero bounds are open.
func within(records []workout.Workout, start, end time.Time) []workout.Workout {
	if start.IsZero() && end.IsZero() {
		return records
	}
	out := make([]workout.Workout, 0, len(records))
	for _, w := range records {
		if !start.IsZero() && w.CreatedAt.Before(start) {
			continue
		}
		if !end.IsZero() && !w.CreatedAt.Before(end) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List workouts, optionally filtered by kind and creation date and sorted by a field. Records without the sort field (e.g. cadence on a cycling workout) come last."),
	mcp.WithString("kind", mcp.Description("Only this kind of workout"), mcp.Enum("running", "cycling")),
	mcp.WithString("sort", mcp.Description("Sort field. Defaults to date."), mcp.Enum("date", "distance", "duration", "cadence", "elevation", "pace", "speed")),
	mcp.WithString("dir", mcp.Description("Sort direction. Defaults to asc."), mcp.Enum("asc", "desc")),
	mcp.WithString("start", mcp.Description("Created on or after (ISO 8601 or YYYY-MM-DD)")),
	mcp.WithString("end", mcp.Description("Created before (ISO 8601 or YYYY-MM-DD)")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts to return")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout by id, including its derived pace or speed."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
)

var toolWorkoutSummary = mcp.NewTool("workout_summary",
	mcp.WithDescription("Per-kind totals: workout count, total distance (km), total duration (min) and average pace or speed."),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p tracker.Projection
	if k := req.GetString("kind", ""); k != "" {
		kind, err := workout.ParseKind(k)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p.Kind = kind
	}
	field, err := tracker.ParseSortField(req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, err := tracker.ParseDirection(req.GetString("dir", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p.Field, p.Direction = field, dir

	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	records, err := h.ds.ListWorkouts(ctx, p, 0)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	records = within(records, start, end)
	if limit := req.GetInt("limit", 0); limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	result, err := mcp.NewToolResultJSON(map[string]any{"workouts": records})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	w, err := h.ds.GetWorkout(ctx, id)
	if errors.Is(err, tracker.ErrNotFound) {
		return mcp.NewToolResultError("workout " + id + " not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(w)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) workoutSummary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := h.ds.Summary(ctx)
	if err != nil {
		h.log.Error("mcp workout_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{"kinds": summary})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
