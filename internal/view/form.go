package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/claude/mapty/internal/workout"
)

// InvalidInputMessage is the inline error shown for rejected form values.
const InvalidInputMessage = "Inputs have to be positive numbers!"

// InputError reports a form field that is not a number at all.
type InputError struct {
	Field string
	Raw   string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %q is not a number", e.Field, e.Raw)
}

// ParseNumber coerces a raw form value to a number.
func ParseNumber(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &InputError{Field: field, Raw: raw}
	}
	return v, nil
}

// Form is the new-workout form. It opens at a clicked map position and is
// bound to that position until it is submitted or hidden.
type Form struct {
	Visible bool                 `json:"visible"`
	Coords  *workout.Coordinates `json:"coords,omitempty"`
	Kind    workout.Kind         `json:"kind"`
	Error   string               `json:"error,omitempty"`
}

// NewForm returns a hidden form defaulting to running.
func NewForm() *Form {
	return &Form{Kind: workout.KindRunning}
}

// Show opens the form bound to c, clearing any earlier error.
func (f *Form) Show(c workout.Coordinates) {
	f.Visible = true
	f.Coords = &c
	f.Error = ""
}

// Hide resets and closes the form. The selected kind is kept.
func (f *Form) Hide() {
	f.Visible = false
	f.Coords = nil
	f.Error = ""
}

// SelectKind toggles between the cadence and elevation inputs.
func (f *Form) SelectKind(k workout.Kind) {
	f.Kind = k
}

// Fail flags the form with the inline validation message.
func (f *Form) Fail() {
	f.Error = InvalidInputMessage
}

// ShowsCadence reports whether the cadence input is visible.
func (f *Form) ShowsCadence() bool { return f.Kind != workout.KindCycling }

// ShowsElevation reports whether the elevation input is visible.
func (f *Form) ShowsElevation() bool { return f.Kind == workout.KindCycling }
