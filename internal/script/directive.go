// Package script turns a screencast script document into an ordered list of
// directives. Only lines inside ``` fenced blocks are interpreted; everything
// else in the document is prose and is skipped.
package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant of a Directive.
type Kind int

const (
	KindCommand Kind = iota + 1
	KindKey
	KindSleep
	KindPause
	KindToggle
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindKey:
		return "key"
	case KindSleep:
		return "sleep"
	case KindPause:
		return "pause"
	case KindToggle:
		return "toggle"
	}
	return "unknown"
}

// Directive is one parsed instruction. The set of implementations is closed:
// Command, Key, Sleep, Pause and Toggle.
type Directive interface {
	Kind() Kind
	// Line is the 1-based line number in the document the directive came from.
	Line() int
	String() string
	directive()
}

// Command is a shell command line typed into the target and submitted.
type Command struct {
	Text   string
	LineNo int
}

// Key is a sequence of symbolic key names sent as discrete key presses.
type Key struct {
	Names  []string
	LineNo int
}

// Sleep pauses the run without input. Raw holds the unparsed payload; it is
// only validated when the directive is dispatched (or linted).
type Sleep struct {
	Raw    string
	LineNo int
}

// Pause blocks until the operator acknowledges. Auto is set for the pause
// inserted at the start of a block when autopause is enabled.
type Pause struct {
	Auto   bool
	LineNo int
}

// Toggle flips the keystroke overlay's visibility.
type Toggle struct {
	LineNo int
}

func (Command) Kind() Kind { return KindCommand }
func (Key) Kind() Kind     { return KindKey }
func (Sleep) Kind() Kind   { return KindSleep }
func (Pause) Kind() Kind   { return KindPause }
func (Toggle) Kind() Kind  { return KindToggle }

func (d Command) Line() int { return d.LineNo }
func (d Key) Line() int     { return d.LineNo }
func (d Sleep) Line() int   { return d.LineNo }
func (d Pause) Line() int   { return d.LineNo }
func (d Toggle) Line() int  { return d.LineNo }

func (d Command) String() string { return "command " + d.Text }
func (d Key) String() string     { return "key " + strings.Join(d.Names, " ") }
func (d Sleep) String() string   { return "sleep " + d.Raw }
func (d Toggle) String() string  { return "toggle" }

func (d Pause) String() string {
	if d.Auto {
		return "pause (auto)"
	}
	return "pause"
}

func (Command) directive() {}
func (Key) directive()     {}
func (Sleep) directive()   {}
func (Pause) directive()   {}
func (Toggle) directive()  {}

// Duration parses the sleep payload. The payload is a number of seconds
// (fractional allowed); a Go duration such as "250ms" is also accepted.
func (d Sleep) Duration() (time.Duration, error) {
	raw := strings.TrimSpace(d.Raw)
	if raw == "" {
		return 0, &PayloadError{Line: d.LineNo, Reason: "sleep requires a duration"}
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
			return 0, &PayloadError{Line: d.LineNo, Reason: fmt.Sprintf("invalid sleep duration %q", raw)}
		}
		// float64(math.MaxInt64) is 2^63, one past the largest Duration.
		ns := secs * float64(time.Second)
		if ns >= float64(math.MaxInt64) {
			return 0, &PayloadError{Line: d.LineNo, Reason: fmt.Sprintf("sleep duration %q is too long", raw)}
		}
		return time.Duration(ns), nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil || dur < 0 {
		return 0, &PayloadError{Line: d.LineNo, Reason: fmt.Sprintf("invalid sleep duration %q", raw)}
	}
	return dur, nil
}

// PayloadError reports a directive whose payload cannot be executed.
type PayloadError struct {
	Line   int
	Reason string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}
