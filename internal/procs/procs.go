// Package procs supervises the three external capture processes of a
// recording: the keystroke overlay, the terminal recorder and the video
// capture. Processes are started in a fixed order and stopped in reverse.
package procs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fakeyudi/screencast/internal/desktop"
)

// Kind identifies one of the capture processes.
type Kind int

const (
	Overlay Kind = iota
	TerminalRecorder
	VideoCapture
)

// StartOrder is the order processes are launched in. They are stopped in
// the reverse order.
var StartOrder = []Kind{Overlay, TerminalRecorder, VideoCapture}

func (k Kind) String() string {
	switch k {
	case Overlay:
		return "overlay"
	case TerminalRecorder:
		return "terminal-recorder"
	case VideoCapture:
		return "video-capture"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// State is a handle's position in its NotStarted → Running → Stopped life.
type State int

const (
	NotStarted State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Handle tracks one launched process. Handles are never reused.
type Handle struct {
	Kind      Kind
	PID       int
	State     State
	StartedAt time.Time
	StoppedAt time.Time
}

// Spec describes how to launch a process.
type Spec struct {
	Kind Kind
	Name string
	Args []string
	// Window, when set, runs the process in the shell of that terminal
	// window instead of as a direct child. See TerminalExecutor.
	Window desktop.Window
	// StopSignal is sent to request termination; nil means SIGTERM.
	StopSignal os.Signal
	// Output receives the process's stdout and stderr; nil discards them.
	Output io.Writer
}

// CommandLine renders the spec for logs and error messages.
func (s Spec) CommandLine() string {
	return strings.Join(append([]string{s.Name}, s.Args...), " ")
}

// ErrProcessGone is returned by Executor.Terminate for a process that had
// already exited.
var ErrProcessGone = errors.New("process already exited")

// Executor is the process-execution port.
type Executor interface {
	// Spawn launches spec asynchronously and returns its pid.
	Spawn(ctx context.Context, spec Spec) (int, error)
	// Terminate asks pid to exit and waits a bounded time for it.
	Terminate(ctx context.Context, pid int) error
	IsAlive(pid int) bool
}

// StartError reports a capture process that could not be started.
type StartError struct {
	Kind Kind
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("starting %s: %v", e.Kind, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
