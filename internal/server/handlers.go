package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claude/mapty/internal/app"
	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/view"
	"github.com/claude/mapty/internal/workout"
)

const maxImportBytes = 32 << 20

// formValue is a numeric input that arrives either as a JSON number or as
// the raw text of a form field.
type formValue string

func (v *formValue) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	*v = formValue(data)
	return nil
}

// workoutInput is the body of create and edit requests. The kind-specific
// value may be sent as metric, cadence or elevationGain.
type workoutInput struct {
	Kind          string               `json:"kind"`
	Coords        *workout.Coordinates `json:"coordinates"`
	Distance      formValue            `json:"distance"`
	Duration      formValue            `json:"duration"`
	Metric        formValue            `json:"metric"`
	Cadence       formValue            `json:"cadence"`
	ElevationGain formValue            `json:"elevationGain"`
}

func (in workoutInput) metric() string {
	for _, v := range []formValue{in.Metric, in.Cadence, in.ElevationGain} {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

func (in workoutInput) numbers() (distance, duration, metric float64, err error) {
	if distance, err = view.ParseNumber("distance", string(in.Distance)); err != nil {
		return
	}
	if duration, err = view.ParseNumber("duration", string(in.Duration)); err != nil {
		return
	}
	metric, err = view.ParseNumber("metric", in.metric())
	return
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	p, err := parseProjection(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	records := s.app.Project(p)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	writeJSON(w, http.StatusOK, records)
}

// handleCreateWorkout creates a workout at coords, or at the pending map
// click when coords is omitted.
func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var in workoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var kind workout.Kind
	if in.Kind != "" {
		k, err := workout.ParseKind(in.Kind)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		kind = k
	}

	var cmd app.Command
	if in.Coords == nil {
		cmd = app.SubmitWorkout{Kind: kind, Distance: string(in.Distance), Duration: string(in.Duration), Metric: in.metric()}
	} else {
		if kind == "" {
			kind = workout.KindRunning
		}
		d, dur, m, err := in.numbers()
		if err != nil {
			s.writeError(w, err)
			return
		}
		cmd = app.CreateWorkout{Kind: kind, Coords: *in.Coords, Distance: d, Duration: dur, Metric: m}
	}

	res, err := s.app.Dispatch(r.Context(), cmd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Workout)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	wo, ok := s.app.Find(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	writeJSON(w, http.StatusOK, wo)
}

func (s *Server) handleEditWorkout(w http.ResponseWriter, r *http.Request) {
	var in workoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	d, dur, m, err := in.numbers()
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.app.Dispatch(r.Context(), app.SubmitEdit{ID: chi.URLParam(r, "id"), Distance: d, Duration: dur, Metric: m})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Workout)
}

func (s *Server) handleRemoveWorkout(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, app.RemoveWorkout{ID: chi.URLParam(r, "id")})
}

func (s *Server) handleRemoveAll(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, app.RemoveAll{})
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, app.ZoomTo{ID: chi.URLParam(r, "id")})
}

func (s *Server) handleOpenEdit(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, app.OpenEdit{ID: chi.URLParam(r, "id")})
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, app.CancelEdit{})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	st := s.app.State()
	if st.Map == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": app.ErrMapUnavailable.Error(), "reason": st.MapError})
		return
	}
	writeJSON(w, http.StatusOK, st.Map)
}

func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var c workout.Coordinates
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.dispatch(w, r, app.MapClick{Coords: c})
}

func (s *Server) handleShowAll(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, app.ShowAll{})
}

func (s *Server) handleSelectKind(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	k, err := workout.ParseKind(body.Kind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.dispatch(w, r, app.SelectKind{Kind: k})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.State())
}

// handleSort applies a projection to the rendered list; the stored order is
// unchanged.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	p, err := parseProjection(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res, err := s.app.Dispatch(r.Context(), app.Sort{Projection: p})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Workouts)
}

func (s *Server) handleDismissWarning(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, app.DismissWarning{})
}

// handlePosition receives the browser's one-shot geolocation result, either
// {"lat":..,"lng":..} or {"error":"..."}.
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	if s.browser == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "position is fixed by configuration"})
		return
	}
	var body struct {
		Lat   *float64 `json:"lat"`
		Lng   *float64 `json:"lng"`
		Error string   `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var err error
	switch {
	case body.Error != "":
		err = s.browser.Reject(body.Error)
	case body.Lat != nil && body.Lng != nil:
		err = s.browser.Resolve(workout.Coordinates{Lat: *body.Lat, Lng: *body.Lng})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng, or error, required"})
		return
	}
	if errors.Is(err, geo.ErrAlreadyResolved) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.app.Load(r.Context())
	writeJSON(w, http.StatusOK, s.app.State())
}

// handleImport replaces the collection with a snapshot body, or merges it
// when ?merge=true.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	records, err := storage.Decode(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	merge, _ := strconv.ParseBool(r.URL.Query().Get("merge"))

	n, err := s.app.Import(r.Context(), records, merge)
	if err != nil {
		s.log.Error("import error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"workouts": n})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Summary())
}

// dispatch runs a command whose only output is the new view state.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, cmd app.Command) {
	if _, err := s.app.Dispatch(r.Context(), cmd); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.State())
}

// writeError maps command errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		ve *tracker.ValidationError
		ie *view.InputError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ie):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "message": view.InvalidInputMessage})
	case errors.Is(err, app.ErrNoPosition):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, tracker.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, app.ErrMapUnavailable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.log.Error("command failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func parseProjection(r *http.Request) (tracker.Projection, error) {
	q := r.URL.Query()
	var p tracker.Projection
	if k := q.Get("kind"); k != "" {
		kind, err := workout.ParseKind(k)
		if err != nil {
			return p, err
		}
		p.Kind = kind
	}
	field, err := tracker.ParseSortField(q.Get("sort"))
	if err != nil {
		return p, err
	}
	dir, err := tracker.ParseDirection(q.Get("dir"))
	if err != nil {
		return p, err
	}
	p.Field, p.Direction = field, dir
	return p, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// queryInt reads a positive integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}
