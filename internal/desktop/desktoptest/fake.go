// Package desktoptest provides an in-memory desktop for tests. Every call is
// appended to a shared Log so ordering across fakes can be asserted.
package desktoptest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fakeyudi/screencast/internal/desktop"
)

// Log is an ordered, concurrency-safe list of events.
type Log struct {
	mu      sync.Mutex
	entries []string
}

func (l *Log) Add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the events recorded so far.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Count returns how many events start with prefix.
func (l *Log) Count(prefix string) int {
	n := 0
	for _, e := range l.Entries() {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// Desktop implements desktop.WindowSystem and desktop.Injector.
type Desktop struct {
	Log *Log

	ActiveWindow desktop.Window
	Picked       desktop.Window
	Geometries   map[desktop.Window]desktop.Geometry

	// Fail makes the named operation ("focus", "type", "key", "chord",
	// "select", "active") return an error.
	Fail map[string]error
	// OnSleep, when set, is called instead of returning immediately.
	OnSleep func(ctx context.Context, d time.Duration) error
	// OnType, when set, receives text typed into the focused window.
	OnType func(w desktop.Window, text string)

	// Held tracks keys left pressed by a failed SendChord.
	Held map[string]bool
}

// New returns a Desktop logging into log.
func New(log *Log) *Desktop {
	return &Desktop{
		Log:        log,
		Geometries: map[desktop.Window]desktop.Geometry{},
		Fail:       map[string]error{},
		Held:       map[string]bool{},
	}
}

func (d *Desktop) Active(context.Context) (desktop.Window, error) {
	d.Log.Add("active")
	if err := d.Fail["active"]; err != nil {
		return "", err
	}
	return d.ActiveWindow, nil
}

func (d *Desktop) Select(context.Context) (desktop.Window, error) {
	d.Log.Add("select")
	if err := d.Fail["select"]; err != nil {
		return "", err
	}
	d.ActiveWindow = d.Picked
	return d.Picked, nil
}

func (d *Desktop) Focus(_ context.Context, w desktop.Window) error {
	d.Log.Add("focus:%s", w)
	if err := d.Fail["focus"]; err != nil {
		return err
	}
	d.ActiveWindow = w
	return nil
}

func (d *Desktop) Measure(_ context.Context, w desktop.Window) (desktop.Geometry, error) {
	d.Log.Add("measure:%s", w)
	g, ok := d.Geometries[w]
	if !ok {
		return desktop.Geometry{}, fmt.Errorf("window %s: %w", w, desktop.ErrGeometryUnavailable)
	}
	return g, nil
}

func (d *Desktop) TypeText(_ context.Context, text string) error {
	d.Log.Add("type:%s", text)
	if err := d.Fail["type"]; err != nil {
		return err
	}
	if d.OnType != nil {
		d.OnType(d.ActiveWindow, text)
	}
	return nil
}

func (d *Desktop) SendKey(_ context.Context, name string) error {
	d.Log.Add("key:%s", name)
	return d.Fail["key"]
}

func (d *Desktop) SendChord(ctx context.Context, names []string, hold time.Duration) error {
	d.Log.Add("chord:%s", strings.Join(names, "+"))
	if err := d.Fail["chord"]; err != nil {
		// An aborted toggle leaves the chord logically pressed.
		for _, n := range names {
			d.Held[n] = true
		}
		return err
	}
	// Cancellation lands during the hold, after the keys went down.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", desktop.ErrChordInterrupted, err)
	}
	return nil
}

func (d *Desktop) Release(_ context.Context, names []string) error {
	d.Log.Add("release:%s", strings.Join(names, "+"))
	for _, n := range names {
		delete(d.Held, n)
	}
	return nil
}

func (d *Desktop) Sleep(ctx context.Context, dur time.Duration) error {
	d.Log.Add("sleep:%s", dur)
	if d.OnSleep != nil {
		return d.OnSleep(ctx, dur)
	}
	return ctx.Err()
}

// Operator records acknowledgments. Err, when set, is returned from every
// Acknowledge call.
type Operator struct {
	Log *Log
	Err error
	// OnAcknowledge runs before Acknowledge returns.
	OnAcknowledge func()
}

func (o *Operator) Acknowledge(ctx context.Context, prompt string) error {
	o.Log.Add("ack")
	if o.OnAcknowledge != nil {
		o.OnAcknowledge()
	}
	if o.Err != nil {
		return o.Err
	}
	return ctx.Err()
}
