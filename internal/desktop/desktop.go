// Package desktop defines the window-system and input-injection ports the
// recorder drives, and an xdotool-backed implementation of both.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrGeometryUnavailable is returned when a window cannot be measured,
// usually because it no longer exists.
var ErrGeometryUnavailable = errors.New("window geometry unavailable")

// ErrChordInterrupted is returned by SendChord when the keys went down but
// the hold was cut short. The chord has still been delivered and released.
var ErrChordInterrupted = errors.New("chord hold interrupted")

// Window is an opaque window identifier as understood by the window system.
type Window string

// Geometry is a window's absolute position and size at measurement time.
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// String renders the geometry in X11 form, e.g. "800x600+10+20".
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", g.Width, g.Height, g.X, g.Y)
}

// WindowSystem resolves, focuses and measures windows.
type WindowSystem interface {
	// Active returns the currently focused window.
	Active(ctx context.Context) (Window, error)
	// Select lets the operator pick a window interactively.
	Select(ctx context.Context) (Window, error)
	// Focus activates w and returns once it has focus.
	Focus(ctx context.Context, w Window) error
	Measure(ctx context.Context, w Window) (Geometry, error)
}

// Injector sends synthetic input to whichever window has focus.
type Injector interface {
	TypeText(ctx context.Context, text string) error
	SendKey(ctx context.Context, name string) error
	// SendChord presses names together, holds them for hold, then releases.
	// A hold cut short by ctx yields an error wrapping ErrChordInterrupted.
	SendChord(ctx context.Context, names []string, hold time.Duration) error
	// Release sends key-up events for names regardless of their state.
	Release(ctx context.Context, names []string) error
	Sleep(ctx context.Context, d time.Duration) error
}

// TypeLine focuses w, types line into it and presses Return.
func TypeLine(ctx context.Context, ws WindowSystem, in Injector, w Window, line string) error {
	if err := ws.Focus(ctx, w); err != nil {
		return err
	}
	if err := in.TypeText(ctx, line); err != nil {
		return err
	}
	return in.SendKey(ctx, "Return")
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
