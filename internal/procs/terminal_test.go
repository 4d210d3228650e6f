package procs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/fakeyudi/screencast/internal/desktop"
)

var launchPIDFile = regexp.MustCompile(`echo \$\$ > '\\''([^']+)'\\''`)

// windowShell stands in for the shell of a terminal window. It answers
// launch lines by reporting a pid from exec and ends that process on "exit"
// unless ignoreExit is set.
type windowShell struct {
	t          *testing.T
	exec       *fakeExecutor
	ignoreExit bool
	silent     bool
	lines      []string
	pid        int
}

func (w *windowShell) typeLine(_ context.Context, win desktop.Window, line string) error {
	w.lines = append(w.lines, string(win)+":"+line)
	if line == "exit" && !w.ignoreExit {
		w.exec.dead[w.pid] = true
		return nil
	}
	m := launchPIDFile.FindStringSubmatch(line)
	if m == nil || w.silent {
		return nil
	}
	w.exec.nextPID++
	w.pid = w.exec.nextPID
	if err := os.WriteFile(m[1], []byte(fmt.Sprintf("%d\n", w.pid)), 0o600); err != nil {
		w.t.Errorf("writing pid file: %v", err)
	}
	return nil
}

func fastTerminal(next Executor, w *windowShell) *TerminalExecutor {
	return NewTerminalExecutor(next, w.typeLine, TerminalOptions{
		StartTimeout: 50 * time.Millisecond,
		StopTimeout:  50 * time.Millisecond,
		Poll:         time.Millisecond,
	})
}

func TestTerminalExecutorLaunchesAndExitsInWindow(t *testing.T) {
	next := newFakeExecutor()
	w := &windowShell{t: t, exec: next}
	e := fastTerminal(next, w)
	ctx := context.Background()

	pid, err := e.Spawn(ctx, Spec{Kind: TerminalRecorder, Name: "asciinema", Args: []string{"rec", "demo.cast"}, Window: "200"})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if pid != w.pid || !e.IsAlive(pid) {
		t.Fatalf("pid %d, shell reported %d", pid, w.pid)
	}
	if len(next.spawned) != 0 {
		t.Errorf("window spec reached the wrapped executor: %v", next.spawned)
	}
	if err := e.Terminate(ctx, pid); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if len(next.killed) != 0 {
		t.Errorf("process signalled although exit worked: %v", next.killed)
	}
	if len(w.lines) != 2 || !strings.HasPrefix(w.lines[0], "200: sh -c ") || w.lines[1] != "200:exit" {
		t.Fatalf("typed %q", w.lines)
	}
}

func TestTerminalExecutorSignalsWhenExitIgnored(t *testing.T) {
	next := newFakeExecutor()
	w := &windowShell{t: t, exec: next, ignoreExit: true}
	e := fastTerminal(next, w)
	ctx := context.Background()

	pid, err := e.Spawn(ctx, Spec{Kind: TerminalRecorder, Name: "asciinema", Window: "200"})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := e.Terminate(ctx, pid); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if len(next.killed) != 1 || e.IsAlive(pid) {
		t.Fatalf("expected one fallback signal, killed %v", next.killed)
	}
}

func TestTerminalExecutorReportsStuckProcess(t *testing.T) {
	next := newFakeExecutor()
	w := &windowShell{t: t, exec: next, ignoreExit: true}
	e := fastTerminal(next, w)
	ctx := context.Background()

	pid, err := e.Spawn(ctx, Spec{Kind: TerminalRecorder, Name: "asciinema", Window: "200"})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	next.termErr[pid] = errors.New("operation not permitted")
	if err := e.Terminate(ctx, pid); err == nil {
		t.Fatal("expected an error for a process that would not stop")
	}
	if !e.IsAlive(pid) {
		t.Error("process should still be reported alive")
	}
}

func TestTerminalExecutorTimesOutWithoutPID(t *testing.T) {
	next := newFakeExecutor()
	w := &windowShell{t: t, exec: next, silent: true}
	e := fastTerminal(next, w)

	_, err := e.Spawn(context.Background(), Spec{Kind: TerminalRecorder, Name: "asciinema", Window: "200"})
	if err == nil || !strings.Contains(err.Error(), "no pid reported") {
		t.Fatalf("got %v, want a missing pid error", err)
	}
}

func TestTerminalExecutorPassesDirectSpecsThrough(t *testing.T) {
	next := newFakeExecutor()
	w := &windowShell{t: t, exec: next}
	e := fastTerminal(next, w)
	ctx := context.Background()

	pid, err := e.Spawn(ctx, Spec{Kind: VideoCapture, Name: "ffmpeg"})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := e.Terminate(ctx, pid); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if len(w.lines) != 0 {
		t.Errorf("direct spec typed into a window: %q", w.lines)
	}
	if len(next.spawned) != 1 || len(next.killed) != 1 {
		t.Errorf("spawned %v, killed %v", next.spawned, next.killed)
	}
}

func TestLaunchLineQuotesArguments(t *testing.T) {
	line := launchLine(Spec{Name: "rec", Args: []string{"it's here.cast"}}, "/tmp/x/launch.pid")
	want := ` sh -c 'echo $$ > '\''/tmp/x/launch.pid'\''; exec '\''rec'\'' '\''it'\''\'\'''\''s here.cast'\'''`
	if line != want {
		t.Fatalf("got  %s\nwant %s", line, want)
	}
}
