package desktop

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ExecFunc runs an external command and returns its combined output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Xdotool implements WindowSystem and Injector with the xdotool CLI.
type Xdotool struct {
	exec      ExecFunc
	typeDelay time.Duration
}

// NewXdotool returns an Xdotool talking to the X server on display.
func NewXdotool(display string, typeDelay time.Duration) *Xdotool {
	return NewXdotoolWithExec(displayExec(display), typeDelay)
}

// NewXdotoolWithExec returns an Xdotool that runs commands through execFn.
func NewXdotoolWithExec(execFn ExecFunc, typeDelay time.Duration) *Xdotool {
	return &Xdotool{exec: execFn, typeDelay: typeDelay}
}

func displayExec(display string) ExecFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		// #nosec G204 -- name is always xdotool; args are built by this package.
		cmd := exec.CommandContext(ctx, name, args...)
		if display != "" {
			cmd.Env = append(os.Environ(), "DISPLAY="+display)
		}
		output, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("%s %v failed: %w (%s)", name, args, err, strings.TrimSpace(string(output)))
		}
		return output, nil
	}
}

func (x *Xdotool) run(ctx context.Context, args ...string) (string, error) {
	out, err := x.exec(ctx, "xdotool", args...)
	return strings.TrimSpace(string(out)), err
}

func (x *Xdotool) Active(ctx context.Context) (Window, error) {
	out, err := x.run(ctx, "getactivewindow")
	if err != nil {
		return "", fmt.Errorf("xdotool getactivewindow: %w", err)
	}
	return parseWindowID(out)
}

func (x *Xdotool) Select(ctx context.Context) (Window, error) {
	out, err := x.run(ctx, "selectwindow")
	if err != nil {
		return "", fmt.Errorf("xdotool selectwindow: %w", err)
	}
	return parseWindowID(out)
}

func (x *Xdotool) Focus(ctx context.Context, w Window) error {
	if _, err := x.run(ctx, "windowactivate", "--sync", string(w)); err != nil {
		return fmt.Errorf("xdotool windowactivate %s: %w", w, err)
	}
	return nil
}

func (x *Xdotool) Measure(ctx context.Context, w Window) (Geometry, error) {
	out, err := x.run(ctx, "getwindowgeometry", "--shell", string(w))
	if err != nil {
		return Geometry{}, fmt.Errorf("window %s: %w: %v", w, ErrGeometryUnavailable, err)
	}
	g, err := parseShellGeometry(out)
	if err != nil {
		return Geometry{}, fmt.Errorf("window %s: %w: %v", w, ErrGeometryUnavailable, err)
	}
	return g, nil
}

func (x *Xdotool) TypeText(ctx context.Context, text string) error {
	delay := strconv.FormatInt(x.typeDelay.Milliseconds(), 10)
	if _, err := x.run(ctx, "type", "--delay", delay, "--", text); err != nil {
		return fmt.Errorf("xdotool type: %w", err)
	}
	return nil
}

func (x *Xdotool) SendKey(ctx context.Context, name string) error {
	if _, err := x.run(ctx, "key", "--", name); err != nil {
		return fmt.Errorf("xdotool key %s: %w", name, err)
	}
	return nil
}

// SendChord always attempts the key-up half, even when ctx is cancelled
// during the hold, so the chord is never left pressed.
func (x *Xdotool) SendChord(ctx context.Context, names []string, hold time.Duration) error {
	down := append([]string{"keydown", "--"}, names...)
	if _, err := x.run(ctx, down...); err != nil {
		return fmt.Errorf("xdotool keydown %v: %w", names, err)
	}
	holdErr := SleepContext(ctx, hold)
	if err := x.Release(context.WithoutCancel(ctx), names); err != nil {
		return err
	}
	if holdErr != nil {
		return fmt.Errorf("%w: %w", ErrChordInterrupted, holdErr)
	}
	return nil
}

func (x *Xdotool) Release(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	up := append([]string{"keyup", "--"}, names...)
	if _, err := x.run(ctx, up...); err != nil {
		return fmt.Errorf("xdotool keyup %v: %w", names, err)
	}
	return nil
}

func (x *Xdotool) Sleep(ctx context.Context, d time.Duration) error {
	return SleepContext(ctx, d)
}

func parseWindowID(raw string) (Window, error) {
	// selectwindow may print more than one line on some builds; the id is last.
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", fmt.Errorf("no window id in xdotool output")
	}
	id := fields[len(fields)-1]
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", fmt.Errorf("parse window id %q: %w", id, err)
	}
	return Window(id), nil
}

// parseShellGeometry reads the KEY=value lines printed by
// `xdotool getwindowgeometry --shell`.
func parseShellGeometry(raw string) (Geometry, error) {
	values := map[string]int{}
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		values[key] = n
	}
	for _, key := range []string{"X", "Y", "WIDTH", "HEIGHT"} {
		if _, ok := values[key]; !ok {
			return Geometry{}, fmt.Errorf("missing %s in geometry output", key)
		}
	}
	g := Geometry{X: values["X"], Y: values["Y"], Width: values["WIDTH"], Height: values["HEIGHT"]}
	if g.Width <= 0 || g.Height <= 0 {
		return Geometry{}, fmt.Errorf("empty geometry %s", g)
	}
	return g, nil
}
