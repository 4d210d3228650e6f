package procs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Manager.
type Options struct {
	// Settle is the wait after the overlay starts and after each stop.
	Settle time.Duration
	Sleep  SleepFunc
	Logger *slog.Logger
}

// Manager starts and stops capture processes and owns their handles. It is
// driven from a single goroutine and does no locking.
type Manager struct {
	exec    Executor
	settle  time.Duration
	sleep   SleepFunc
	logger  *slog.Logger
	handles map[Kind]*Handle
}

// NewManager returns a Manager launching processes through exec.
func NewManager(exec Executor, opts Options) *Manager {
	m := &Manager{
		exec:    exec,
		settle:  opts.Settle,
		sleep:   opts.Sleep,
		logger:  opts.Logger,
		handles: make(map[Kind]*Handle, len(StartOrder)),
	}
	if m.sleep == nil {
		m.sleep = func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		}
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	return m
}

// Start launches spec and returns its handle as soon as a pid is known.
// After the overlay starts, Start waits for the settle delay and checks the
// overlay is still alive.
func (m *Manager) Start(ctx context.Context, spec Spec) (*Handle, error) {
	if h, ok := m.handles[spec.Kind]; ok {
		return nil, &StartError{Kind: spec.Kind, Err: fmt.Errorf("already %s (pid %d)", h.State, h.PID)}
	}

	pid, err := m.exec.Spawn(ctx, spec)
	if err != nil {
		return nil, &StartError{Kind: spec.Kind, Err: err}
	}
	h := &Handle{Kind: spec.Kind, PID: pid, State: Running, StartedAt: time.Now()}
	m.handles[spec.Kind] = h
	m.logger.Info("process started", "kind", spec.Kind, "pid", pid, "command", spec.CommandLine())

	if spec.Kind == Overlay {
		if err := m.sleep(ctx, m.settle); err != nil {
			return h, &StartError{Kind: spec.Kind, Err: err}
		}
		if !m.exec.IsAlive(pid) {
			h.State = Stopped
			h.StoppedAt = time.Now()
			return h, &StartError{Kind: spec.Kind, Err: fmt.Errorf("exited during startup (pid %d)", pid)}
		}
	}
	return h, nil
}

// StartAll launches every kind in StartOrder. If any start fails, the
// processes already running are stopped in reverse order before the
// *StartError is returned.
func (m *Manager) StartAll(ctx context.Context, specs map[Kind]Spec) error {
	for _, kind := range StartOrder {
		spec, ok := specs[kind]
		if !ok {
			err := &StartError{Kind: kind, Err: errors.New("no launch spec")}
			m.stopAfterFailure(ctx, err)
			return err
		}
		spec.Kind = kind
		if _, err := m.Start(ctx, spec); err != nil {
			m.stopAfterFailure(ctx, err)
			return err
		}
	}
	return nil
}

func (m *Manager) stopAfterFailure(ctx context.Context, cause error) {
	m.logger.Warn("startup failed, stopping started processes", "error", cause)
	if err := m.StopAll(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("cleanup after failed start", "error", err)
	}
}

// Stop requests termination of h and waits for the settle delay. It is
// idempotent: stopping a handle that is not running does nothing. A process
// that already exited on its own is marked stopped without error. If the
// process survives a failed termination the handle stays running so a later
// Stop can retry it.
func (m *Manager) Stop(ctx context.Context, h *Handle) error {
	if h == nil || h.State != Running {
		return nil
	}
	err := m.exec.Terminate(ctx, h.PID)
	if errors.Is(err, ErrProcessGone) {
		h.State = Stopped
		h.StoppedAt = time.Now()
		m.logger.Debug("process already gone", "kind", h.Kind, "pid", h.PID)
		return nil
	}
	if err != nil && m.exec.IsAlive(h.PID) {
		return fmt.Errorf("stopping %s (pid %d): %w", h.Kind, h.PID, err)
	}
	h.State = Stopped
	h.StoppedAt = time.Now()
	m.logger.Info("process stopped", "kind", h.Kind, "pid", h.PID)
	if err := m.sleep(ctx, m.settle); err != nil {
		return fmt.Errorf("settling after %s stop: %w", h.Kind, err)
	}
	return nil
}

// StopAll stops every running process in reverse start order. It always
// attempts every handle and returns the joined errors.
func (m *Manager) StopAll(ctx context.Context) error {
	var errs []error
	for _, kind := range slices.Backward(StartOrder) {
		if err := m.Stop(ctx, m.handles[kind]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handle returns a copy of the handle for kind, or a NotStarted handle.
func (m *Manager) Handle(kind Kind) Handle {
	if h, ok := m.handles[kind]; ok {
		return *h
	}
	return Handle{Kind: kind, State: NotStarted}
}

// Handles returns copies of all handles in start order.
func (m *Manager) Handles() []Handle {
	out := make([]Handle, 0, len(StartOrder))
	for _, kind := range StartOrder {
		out = append(out, m.Handle(kind))
	}
	return out
}

// Alive reports whether the process of kind is running and alive.
func (m *Manager) Alive(kind Kind) bool {
	h, ok := m.handles[kind]
	return ok && h.State == Running && m.exec.IsAlive(h.PID)
}

// Live reports whether every capture process is running and alive.
func (m *Manager) Live() bool {
	for _, kind := range StartOrder {
		if !m.Alive(kind) {
			return false
		}
	}
	return true
}
