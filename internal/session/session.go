package session

import (
	"time"

	"github.com/fakeyudi/screencast/internal/desktop"
	"github.com/fakeyudi/screencast/internal/procs"
)

// State is a step of the recording state machine:
// Idle → Resolving → CaptureStarting → Dispatching → CaptureStopping → Done,
// with Failed reachable from any state but Done.
type State int

const (
	Idle State = iota
	Resolving
	CaptureStarting
	Dispatching
	CaptureStopping
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case CaptureStarting:
		return "capture-starting"
	case Dispatching:
		return "dispatching"
	case CaptureStopping:
		return "capture-stopping"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Session is everything known about one recording run. It outlives every
// phase so that teardown can reach the process handles even when the main
// flow has already failed.
type Session struct {
	ID         string
	ScriptPath string
	Autopause  bool
	Overwrite  bool

	Target       desktop.Window
	ScriptWindow desktop.Window
	// Geometry is measured once during resolution and never refreshed.
	Geometry desktop.Geometry

	State   State
	History []State

	StartTime time.Time
	StopTime  *time.Time

	// Directives is the number of directives in the script; Dispatched is
	// how many of them completed.
	Directives int
	Dispatched int

	Processes *procs.Manager
}

func (s *Session) transition(to State) {
	s.State = to
	s.History = append(s.History, to)
}
