package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/claude/mapty/internal/workout"
)

func TestStatic(t *testing.T) {
	want := workout.Coordinates{Lat: 51.5, Lng: -0.12}
	got, err := Static{Position: want}.CurrentPosition(context.Background())
	if err != nil || got != want {
		t.Errorf("CurrentPosition = %v, %v; want %v", got, err, want)
	}
}

// TestBrowserResolve verifies a waiting caller receives the posted fix and
// that later fixes are refused.
func TestBrowserResolve(t *testing.T) {
	b := NewBrowser()
	want := workout.Coordinates{Lat: 1, Lng: 2}

	got := make(chan workout.Coordinates, 1)
	go func() {
		pos, err := b.CurrentPosition(context.Background())
		if err != nil {
			t.Errorf("CurrentPosition: %v", err)
		}
		got <- pos
	}()

	if err := b.Resolve(want); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	select {
	case pos := <-got:
		if pos != want {
			t.Errorf("pos = %v, want %v", pos, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for position")
	}

	if err := b.Reject("late"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("second settle err = %v, want ErrAlreadyResolved", err)
	}
}

func TestBrowserReject(t *testing.T) {
	b := NewBrowser()
	if err := b.Reject("User denied Geolocation"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.CurrentPosition(context.Background()); err == nil {
		t.Fatal("expected error after reject")
	}
}

func TestBrowserContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBrowser().CurrentPosition(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
