package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/fakeyudi/screencast/internal/script"
)

// Options carries the dispatch timings a preview estimates with.
type Options struct {
	TypeDelay    time.Duration
	ToggleSettle time.Duration
}

// Estimate is the predicted length of a recording, excluding operator pauses.
type Estimate struct {
	Counts  map[script.Kind]int
	Sleep   time.Duration
	Typing  time.Duration
	Overlay time.Duration
}

func (e Estimate) Total() time.Duration {
	return e.Sleep + e.Typing + e.Overlay
}

// Predict sums the time directives will take to dispatch. Sleeps with an
// invalid payload count as zero.
func Predict(directives []script.Directive, opts Options) Estimate {
	e := Estimate{Counts: map[script.Kind]int{}}
	for _, d := range directives {
		e.Counts[d.Kind()]++
		switch d := d.(type) {
		case script.Command:
			// Typed text plus the trailing Return.
			e.Typing += time.Duration(len([]rune(d.Text))+1) * opts.TypeDelay
		case script.Sleep:
			if dur, err := d.Duration(); err == nil {
				e.Sleep += dur
			}
		case script.Key:
			e.Overlay += 2 * opts.ToggleSettle
		case script.Toggle:
			e.Overlay += opts.ToggleSettle
		}
	}
	return e
}

// RenderPlain writes directives one per line without styling, for pipes
// and non-interactive terminals.
func RenderPlain(w io.Writer, directives []script.Directive) error {
	for _, d := range directives {
		if _, err := fmt.Fprintf(w, "%4d  %-7s %s\n", d.Line(), d.Kind(), plainPayload(d)); err != nil {
			return err
		}
	}
	return nil
}

func plainPayload(d script.Directive) string {
	if p, ok := d.(script.Pause); ok && p.Auto {
		return "(autopause)"
	}
	return payload(d)
}
