// Package dispatch replays interpreted directives against the target window.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fakeyudi/screencast/internal/desktop"
	"github.com/fakeyudi/screencast/internal/script"
)

// Operator is the operator-signal port used by pause directives.
type Operator interface {
	// Acknowledge shows prompt and blocks until the operator continues.
	Acknowledge(ctx context.Context, prompt string) error
}

// Toggle describes the chord that flips the overlay's visibility and the
// settle delays around it. The overlay polls for the chord, so a toggle that
// is too quick can be missed.
type Toggle struct {
	Chord         []string
	PressSettle   time.Duration
	ReleaseSettle time.Duration
}

// DirectiveError reports a directive that could not be executed.
type DirectiveError struct {
	Line int
	Kind script.Kind
	Err  error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Kind, e.Err)
}

func (e *DirectiveError) Unwrap() error {
	return e.Err
}

// Dispatcher executes directives one at a time, in the order given. It is
// not safe for concurrent use.
type Dispatcher struct {
	Windows  desktop.WindowSystem
	Input    desktop.Injector
	Operator Operator
	Toggle   Toggle

	Target       desktop.Window
	ScriptWindow desktop.Window

	Logger *slog.Logger

	// overlayHidden tracks the net effect of toggles sent so far.
	overlayHidden bool
}

// OverlayHidden reports whether the toggles sent so far leave the overlay
// hidden.
func (d *Dispatcher) OverlayHidden() bool {
	return d.overlayHidden
}

// Dispatch executes one directive.
func (d *Dispatcher) Dispatch(ctx context.Context, dir script.Directive) error {
	if d.Logger != nil {
		d.Logger.Debug("dispatch", "line", dir.Line(), "directive", dir.Kind())
	}
	if err := d.dispatch(ctx, dir); err != nil {
		return &DirectiveError{Line: dir.Line(), Kind: dir.Kind(), Err: err}
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, dir script.Directive) error {
	switch dir := dir.(type) {
	case script.Command:
		return desktop.TypeLine(ctx, d.Windows, d.Input, d.Target, dir.Text)

	case script.Key:
		if err := d.Windows.Focus(ctx, d.Target); err != nil {
			return err
		}
		return d.withOverlayToggled(ctx, func() error {
			for _, name := range dir.Names {
				if err := d.Input.SendKey(ctx, name); err != nil {
					return err
				}
			}
			return nil
		})

	case script.Sleep:
		dur, err := dir.Duration()
		if err != nil {
			return err
		}
		if err := d.Windows.Focus(ctx, d.Target); err != nil {
			return err
		}
		return d.Input.Sleep(ctx, dur)

	case script.Pause:
		if err := d.Windows.Focus(ctx, d.ScriptWindow); err != nil {
			return err
		}
		prompt := fmt.Sprintf("Paused at line %d. Press Enter to continue", dir.Line())
		if err := d.Operator.Acknowledge(ctx, prompt); err != nil {
			return err
		}
		return d.Windows.Focus(ctx, d.Target)

	case script.Toggle:
		return d.toggleOverlay(ctx)

	default:
		return fmt.Errorf("unsupported directive %T", dir)
	}
}

// withOverlayToggled flips the overlay, runs fn and flips it back. The
// second flip is sent even when fn fails so the visibility state is
// restored.
func (d *Dispatcher) withOverlayToggled(ctx context.Context, fn func() error) error {
	if err := d.toggleOverlay(ctx); err != nil {
		return err
	}
	fnErr := fn()
	if err := d.toggleOverlay(context.WithoutCancel(ctx)); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

// toggleOverlay sends the toggle chord. An interrupted hold still counts as
// a toggle because the overlay saw the keys go down.
func (d *Dispatcher) toggleOverlay(ctx context.Context) error {
	err := d.Input.SendChord(ctx, d.Toggle.Chord, d.Toggle.PressSettle)
	if err != nil && !errors.Is(err, desktop.ErrChordInterrupted) {
		return fmt.Errorf("toggling overlay: %w", err)
	}
	d.overlayHidden = !d.overlayHidden
	if err != nil {
		return fmt.Errorf("toggling overlay: %w", err)
	}
	return d.Input.Sleep(ctx, d.Toggle.ReleaseSettle)
}
