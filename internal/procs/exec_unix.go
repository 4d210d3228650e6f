//go:build unix

package procs

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	DefaultStopTimeout = 3 * time.Second
	killWait           = time.Second
)

// OSExecutor launches processes in their own process group so a stop
// reaches any children they spawn.
type OSExecutor struct {
	stopTimeout time.Duration

	mu    sync.Mutex
	procs map[int]*osProcess
}

type osProcess struct {
	cmd    *exec.Cmd
	stop   os.Signal
	exited chan struct{}
}

// NewOSExecutor returns an executor that escalates to SIGKILL when a
// process ignores its stop signal for stopTimeout.
func NewOSExecutor(stopTimeout time.Duration) *OSExecutor {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &OSExecutor{stopTimeout: stopTimeout, procs: make(map[int]*osProcess)}
}

func (e *OSExecutor) Spawn(ctx context.Context, spec Spec) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	// Not CommandContext: capture processes must outlive cancellation so
	// they can be stopped in order.
	// #nosec G204 -- command lines come from the recorder's own config.
	cmd := exec.Command(spec.Name, spec.Args...)
	out := spec.Output
	if out == nil {
		out = io.Discard
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Start(); err != nil {
		return 0, errors.Wrapf(err, "failed to start command `%s`", spec.CommandLine())
	}

	p := &osProcess{cmd: cmd, stop: spec.StopSignal, exited: make(chan struct{})}
	if p.stop == nil {
		p.stop = syscall.SIGTERM
	}
	pid := cmd.Process.Pid

	e.mu.Lock()
	e.procs[pid] = p
	e.mu.Unlock()

	go func() {
		defer close(p.exited)
		_ = cmd.Wait()
	}()
	return pid, nil
}

func (e *OSExecutor) lookup(pid int) *osProcess {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.procs[pid]
}

func (e *OSExecutor) Terminate(ctx context.Context, pid int) error {
	p := e.lookup(pid)
	if p == nil {
		return e.terminateForeign(pid)
	}

	select {
	case <-p.exited:
		return ErrProcessGone
	default:
	}

	sig, ok := p.stop.(syscall.Signal)
	if !ok {
		sig = syscall.SIGTERM
	}
	if err := unix.Kill(-pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return ErrProcessGone
		}
		return errors.Wrapf(err, "signal %s to pid %d", sig, pid)
	}

	timer := time.NewTimer(e.stopTimeout)
	defer timer.Stop()
	select {
	case <-p.exited:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	_ = unix.Kill(-pid, unix.SIGKILL)
	select {
	case <-p.exited:
		return nil
	case <-time.After(killWait):
		return errors.Errorf("pid %d did not exit after SIGKILL", pid)
	}
}

// terminateForeign handles a pid this executor did not start.
func (e *OSExecutor) terminateForeign(pid int) error {
	if !e.IsAlive(pid) {
		return ErrProcessGone
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return ErrProcessGone
		}
		return errors.Wrapf(err, "signal SIGTERM to pid %d", pid)
	}
	return nil
}

func (e *OSExecutor) IsAlive(pid int) bool {
	if p := e.lookup(pid); p != nil {
		select {
		case <-p.exited:
			return false
		default:
			return true
		}
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
