package procs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fakeyudi/screencast/internal/desktop"
)

// LineWriter types line into the shell of window w and submits it.
type LineWriter func(ctx context.Context, w desktop.Window, line string) error

// TerminalOptions tunes a TerminalExecutor. Zero values pick defaults.
type TerminalOptions struct {
	// StartTimeout bounds the wait for a launched process to report its pid.
	StartTimeout time.Duration
	// StopTimeout bounds the wait for exit after "exit" is typed, and again
	// after the fallback signal.
	StopTimeout time.Duration
	Poll        time.Duration
}

const (
	defaultTerminalStart = 5 * time.Second
	defaultTerminalPoll  = 50 * time.Millisecond
)

// TerminalExecutor runs specs that name a Window inside that window's shell,
// so the process sees exactly the input typed into the window. The launch
// line records the process's pid in a temporary file; stopping types "exit"
// and falls back to a signal. Specs without a Window go to the wrapped
// executor.
type TerminalExecutor struct {
	next     Executor
	typeLine LineWriter
	opts     TerminalOptions

	mu      sync.Mutex
	windows map[int]desktop.Window
}

// NewTerminalExecutor returns an executor that types window specs through
// typeLine and hands everything else, including liveness checks, to next.
func NewTerminalExecutor(next Executor, typeLine LineWriter, opts TerminalOptions) *TerminalExecutor {
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = defaultTerminalStart
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.Poll <= 0 {
		opts.Poll = defaultTerminalPoll
	}
	return &TerminalExecutor{
		next:     next,
		typeLine: typeLine,
		opts:     opts,
		windows:  make(map[int]desktop.Window),
	}
}

func (e *TerminalExecutor) Spawn(ctx context.Context, spec Spec) (int, error) {
	if spec.Window == "" {
		return e.next.Spawn(ctx, spec)
	}
	dir, err := os.MkdirTemp("", "screencast-")
	if err != nil {
		return 0, fmt.Errorf("creating pid directory: %w", err)
	}
	defer os.RemoveAll(dir)
	pidFile := filepath.Join(dir, "launch.pid")

	if err := e.typeLine(ctx, spec.Window, launchLine(spec, pidFile)); err != nil {
		return 0, fmt.Errorf("typing `%s` into window %s: %w", spec.CommandLine(), spec.Window, err)
	}
	pid, err := e.waitPID(ctx, pidFile)
	if err != nil {
		return 0, fmt.Errorf("`%s` in window %s: %w", spec.CommandLine(), spec.Window, err)
	}

	e.mu.Lock()
	e.windows[pid] = spec.Window
	e.mu.Unlock()
	return pid, nil
}

func (e *TerminalExecutor) waitPID(ctx context.Context, path string) (int, error) {
	deadline := time.Now().Add(e.opts.StartTimeout)
	for {
		// The shell writes "<pid>\n"; a missing newline means the write is
		// still in progress.
		data, err := os.ReadFile(path)
		if err == nil && bytes.HasSuffix(data, []byte("\n")) {
			pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
			if err != nil || pid <= 0 {
				return 0, fmt.Errorf("unreadable pid %q", data)
			}
			return pid, nil
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("no pid reported within %s", e.opts.StartTimeout)
		}
		if err := desktop.SleepContext(ctx, e.opts.Poll); err != nil {
			return 0, err
		}
	}
}

func (e *TerminalExecutor) window(pid int) (desktop.Window, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.windows[pid]
	return w, ok
}

func (e *TerminalExecutor) forget(pid int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.windows, pid)
}

// Terminate types "exit" into the process's window and waits for it to
// leave. A process that stays is signalled through the wrapped executor.
func (e *TerminalExecutor) Terminate(ctx context.Context, pid int) error {
	w, ok := e.window(pid)
	if !ok {
		return e.next.Terminate(ctx, pid)
	}
	if !e.next.IsAlive(pid) {
		e.forget(pid)
		return ErrProcessGone
	}

	typeErr := e.typeLine(ctx, w, "exit")
	if typeErr == nil && e.waitExit(ctx, pid) {
		e.forget(pid)
		return nil
	}

	if err := e.next.Terminate(ctx, pid); err != nil && !errors.Is(err, ErrProcessGone) {
		return fmt.Errorf("pid %d in window %s: %w", pid, w, err)
	}
	if e.waitExit(ctx, pid) {
		e.forget(pid)
		return nil
	}
	if typeErr != nil {
		return fmt.Errorf("pid %d in window %s still running, typing exit failed: %w", pid, w, typeErr)
	}
	return fmt.Errorf("pid %d in window %s still running after exit and signal", pid, w)
}

func (e *TerminalExecutor) waitExit(ctx context.Context, pid int) bool {
	deadline := time.Now().Add(e.opts.StopTimeout)
	for e.next.IsAlive(pid) {
		if time.Now().After(deadline) {
			return false
		}
		if err := desktop.SleepContext(ctx, e.opts.Poll); err != nil {
			return !e.next.IsAlive(pid)
		}
	}
	return true
}

func (e *TerminalExecutor) IsAlive(pid int) bool {
	return e.next.IsAlive(pid)
}

// launchLine is the shell line that starts spec in the current terminal and
// writes its pid to pidFile. The process replaces a child sh, so the pid is
// the process's own and the window's shell resumes once it exits.
func launchLine(spec Spec, pidFile string) string {
	words := make([]string, 0, len(spec.Args)+1)
	for _, w := range append([]string{spec.Name}, spec.Args...) {
		words = append(words, shellQuote(w))
	}
	script := "echo $$ > " + shellQuote(pidFile) + "; exec " + strings.Join(words, " ")
	// The leading space keeps the line out of history under ignorespace.
	return " sh -c " + shellQuote(script)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
