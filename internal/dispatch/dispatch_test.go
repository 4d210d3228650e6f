package dispatch

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/screencast/internal/desktop/desktoptest"
	"github.com/fakeyudi/screencast/internal/script"
)

func newDispatcher(log *desktoptest.Log) (*Dispatcher, *desktoptest.Desktop) {
	desk := desktoptest.New(log)
	return &Dispatcher{
		Windows:  desk,
		Input:    desk,
		Operator: &desktoptest.Operator{Log: log},
		Toggle: Toggle{
			Chord:         []string{"Control_L", "Control_R"},
			PressSettle:   100 * time.Millisecond,
			ReleaseSettle: 400 * time.Millisecond,
		},
		Target:       "200",
		ScriptWindow: "100",
	}, desk
}

func TestDispatchTwoBlockScenario(t *testing.T) {
	log := &desktoptest.Log{}
	d, _ := newDispatcher(log)
	ctx := context.Background()

	doc := "```\ncommand echo \"Hello\"\n```\n```\nkey e c h o\n```\n"
	for _, dir := range script.Interpret(doc, false) {
		if err := d.Dispatch(ctx, dir); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}

	want := []string{
		"focus:200",
		`type:echo "Hello"`,
		"key:Return",
		"focus:200",
		"chord:Control_L+Control_R",
		"sleep:400ms",
		"key:e", "key:c", "key:h", "key:o",
		"chord:Control_L+Control_R",
		"sleep:400ms",
	}
	if got := log.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestDispatchSleepFocusesThenBlocks(t *testing.T) {
	log := &desktoptest.Log{}
	d, _ := newDispatcher(log)

	if err := d.Dispatch(context.Background(), script.Sleep{Raw: "1.5", LineNo: 3}); err != nil {
		t.Fatal(err)
	}
	want := []string{"focus:200", "sleep:1.5s"}
	if got := log.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDispatchInvalidSleepPayload(t *testing.T) {
	log := &desktoptest.Log{}
	d, _ := newDispatcher(log)

	err := d.Dispatch(context.Background(), script.Sleep{Raw: "later", LineNo: 9})
	var de *DirectiveError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DirectiveError, got %v", err)
	}
	if de.Line != 9 || de.Kind != script.KindSleep {
		t.Errorf("unexpected error context: %+v", de)
	}
	var pe *script.PayloadError
	if !errors.As(err, &pe) {
		t.Fatalf("expected wrapped *script.PayloadError, got %v", err)
	}
	if len(log.Entries()) != 0 {
		t.Errorf("invalid sleep should send nothing, got %q", log.Entries())
	}
}

func TestDispatchPauseRefocuses(t *testing.T) {
	log := &desktoptest.Log{}
	d, _ := newDispatcher(log)

	if err := d.Dispatch(context.Background(), script.Pause{LineNo: 4}); err != nil {
		t.Fatal(err)
	}
	want := []string{"focus:100", "ack", "focus:200"}
	if got := log.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDispatchPauseAborted(t *testing.T) {
	log := &desktoptest.Log{}
	d, _ := newDispatcher(log)
	aborted := errors.New("operator went away")
	d.Operator = &desktoptest.Operator{Log: log, Err: aborted}

	err := d.Dispatch(context.Background(), script.Pause{Auto: true, LineNo: 2})
	if !errors.Is(err, aborted) {
		t.Fatalf("expected operator error, got %v", err)
	}
	if got := log.Entries(); !reflect.DeepEqual(got, []string{"focus:100", "ack"}) {
		t.Fatalf("target must not be refocused after an abort: %q", got)
	}
}

func TestDispatchToggleOnly(t *testing.T) {
	log := &desktoptest.Log{}
	d, _ := newDispatcher(log)

	if err := d.Dispatch(context.Background(), script.Toggle{LineNo: 1}); err != nil {
		t.Fatal(err)
	}
	if !d.OverlayHidden() {
		t.Error("a lone toggle should flip the overlay state")
	}
	want := []string{"chord:Control_L+Control_R", "sleep:400ms"}
	if got := log.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestKeyRestoresOverlayWhenKeyFails(t *testing.T) {
	log := &desktoptest.Log{}
	d, desk := newDispatcher(log)
	desk.Fail["key"] = errors.New("bad keysym")

	err := d.Dispatch(context.Background(), script.Key{Names: []string{"Bogus"}, LineNo: 5})
	if err == nil {
		t.Fatal("expected key failure")
	}
	if d.OverlayHidden() {
		t.Error("overlay should be restored after a failed key sequence")
	}
	if n := log.Count("chord:"); n != 2 {
		t.Errorf("expected 2 toggles, got %d", n)
	}
}

func TestToggleCountsWhenHoldIsCancelled(t *testing.T) {
	log := &desktoptest.Log{}
	d, _ := newDispatcher(log)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Dispatch(ctx, script.Toggle{LineNo: 3})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !d.OverlayHidden() {
		t.Error("keys went down before the cancel, so the overlay state should have flipped")
	}
}

func TestToggleUnchangedWhenChordFails(t *testing.T) {
	log := &desktoptest.Log{}
	d, desk := newDispatcher(log)
	desk.Fail["chord"] = errors.New("keydown rejected")

	if err := d.Dispatch(context.Background(), script.Toggle{LineNo: 3}); err == nil {
		t.Fatal("expected chord failure")
	}
	if d.OverlayHidden() {
		t.Error("a chord that never went down must not flip the overlay state")
	}
}

// Feature: screencast, Property 3: key directives toggle the overlay exactly once on each side
func TestKeyToggleSymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		log := &desktoptest.Log{}
		d, _ := newDispatcher(log)
		names := rapid.SliceOfN(rapid.StringMatching(`[a-zA-Z0-9_]{1,10}`), 0, 8).Draw(t, "names")
		startHidden := rapid.Bool().Draw(t, "start_hidden")
		d.overlayHidden = startHidden

		if err := d.Dispatch(context.Background(), script.Key{Names: names, LineNo: 1}); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
		if d.OverlayHidden() != startHidden {
			t.Fatalf("overlay state changed: got %v, want %v", d.OverlayHidden(), startHidden)
		}

		entries := log.Entries()
		first, last := -1, -1
		for i, e := range entries {
			if e == "chord:Control_L+Control_R" {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		if log.Count("chord:") != 2 || first == last {
			t.Fatalf("expected exactly two toggles, got %q", entries)
		}
		keys := 0
		for i, e := range entries {
			if len(e) > 4 && e[:4] == "key:" {
				if i < first || i > last {
					t.Fatalf("key %q sent outside the toggle pair", e)
				}
				keys++
			}
		}
		if keys != len(names) {
			t.Fatalf("sent %d keys, want %d", keys, len(names))
		}
	})
}
