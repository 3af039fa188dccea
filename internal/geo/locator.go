// Package geo provides the one-shot position fix the map is centred on.
package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/claude/mapty/internal/workout"
)

// ErrAlreadyResolved is returned when a Browser locator gets a second fix.
var ErrAlreadyResolved = errors.New("position already resolved")

// Locator returns the user's current position once.
type Locator interface {
	CurrentPosition(ctx context.Context) (workout.Coordinates, error)
}

// Static always reports a fixed position, e.g. a configured home location.
type Static struct {
	Position workout.Coordinates
}

func (s Static) CurrentPosition(context.Context) (workout.Coordinates, error) {
	return s.Position, nil
}

// Browser waits for the front-end to post the result of its own geolocation
// request. The first Resolve or Reject wins.
type Browser struct {
	once sync.Once
	done chan struct{}
	pos  workout.Coordinates
	err  error
}

// NewBrowser returns an unresolved Browser locator.
func NewBrowser() *Browser {
	return &Browser{done: make(chan struct{})}
}

// Resolve delivers a successful position fix.
func (b *Browser) Resolve(pos workout.Coordinates) error {
	return b.settle(pos, nil)
}

// Reject delivers a failed fix, e.g. permission denied.
func (b *Browser) Reject(reason string) error {
	return b.settle(workout.Coordinates{}, fmt.Errorf("could not get your position: %s", reason))
}

func (b *Browser) settle(pos workout.Coordinates, err error) error {
	settled := false
	b.once.Do(func() {
		b.pos, b.err = pos, err
		settled = true
		close(b.done)
	})
	if !settled {
		return ErrAlreadyResolved
	}
	return nil
}

// CurrentPosition blocks until the fix arrives or ctx is done.
func (b *Browser) CurrentPosition(ctx context.Context) (workout.Coordinates, error) {
	select {
	case <-b.done:
		return b.pos, b.err
	case <-ctx.Done():
		return workout.Coordinates{}, fmt.Errorf("waiting for position: %w", ctx.Err())
	}
}
