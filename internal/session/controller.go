// Package session runs one recording from window resolution through
// directive dispatch to teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/screencast/internal/desktop"
	"github.com/fakeyudi/screencast/internal/dispatch"
	"github.com/fakeyudi/screencast/internal/operator"
	"github.com/fakeyudi/screencast/internal/procs"
	"github.com/fakeyudi/screencast/internal/script"
)

// Controller wires the capability ports a recording needs.
type Controller struct {
	Windows  desktop.WindowSystem
	Input    desktop.Injector
	Operator dispatch.Operator
	Executor procs.Executor

	Toggle dispatch.Toggle
	// Settle is the wait after the overlay starts and after each stop.
	Settle time.Duration

	Logger *slog.Logger
}

// Request describes one recording.
type Request struct {
	ScriptPath string
	Directives []script.Directive
	// Window is the explicit target; empty asks the operator to pick one.
	Window    desktop.Window
	Autopause bool
	Overwrite bool
	// Plan is completed with the measured geometry before capture starts.
	Plan procs.Plan
}

// Run performs the recording described by req. Whatever happens after
// resolution, including cancellation of ctx, the capture processes are
// stopped and the overlay chord is released before Run returns. The returned
// Session is never nil.
func (c *Controller) Run(ctx context.Context, req Request) (s *Session, err error) {
	s = &Session{
		ID:         uuid.NewString(),
		ScriptPath: req.ScriptPath,
		Autopause:  req.Autopause,
		Overwrite:  req.Overwrite,
		Directives: len(req.Directives),
		StartTime:  time.Now(),
	}
	s.History = []State{Idle}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("session_id", s.ID)

	s.Processes = procs.NewManager(c.Executor, procs.Options{
		Settle: c.Settle,
		Sleep:  c.Input.Sleep,
		Logger: logger,
	})

	if err := c.resolve(ctx, s, req.Window); err != nil {
		s.transition(Failed)
		return s, classify(ctx, err)
	}

	defer func() {
		if terr := c.teardown(ctx, s, logger); terr != nil {
			logger.Warn("teardown incomplete", "error", terr)
			if err == nil {
				err = fmt.Errorf("teardown: %w", terr)
			}
		}
		now := time.Now()
		s.StopTime = &now
		if err != nil {
			s.transition(Failed)
		} else {
			s.transition(Done)
		}
	}()

	s.transition(CaptureStarting)
	plan := req.Plan
	plan.Target = s.Target
	plan.Geometry = s.Geometry
	plan.Overwrite = req.Overwrite
	if err := s.Processes.StartAll(ctx, plan.Specs()); err != nil {
		return s, classify(ctx, err)
	}
	if err := requireLive(s.Processes); err != nil {
		return s, classify(ctx, err)
	}

	s.transition(Dispatching)
	d := &dispatch.Dispatcher{
		Windows:      c.Windows,
		Input:        c.Input,
		Operator:     c.Operator,
		Toggle:       c.Toggle,
		Target:       s.Target,
		ScriptWindow: s.ScriptWindow,
		Logger:       logger,
	}
	for _, dir := range req.Directives {
		if ctx.Err() != nil {
			return s, classify(ctx, ctx.Err())
		}
		if err := d.Dispatch(ctx, dir); err != nil {
			return s, classify(ctx, err)
		}
		s.Dispatched++
	}
	return s, nil
}

func (c *Controller) resolve(ctx context.Context, s *Session, explicit desktop.Window) error {
	s.transition(Resolving)
	target, scriptWin, err := desktop.Resolve(ctx, c.Windows, explicit)
	if err != nil {
		return &ResolutionError{Stage: "windows", Err: err}
	}
	s.Target, s.ScriptWindow = target, scriptWin

	g, err := c.Windows.Measure(ctx, target)
	if err != nil {
		if !errors.Is(err, desktop.ErrGeometryUnavailable) {
			err = fmt.Errorf("window %s: %w: %w", target, desktop.ErrGeometryUnavailable, err)
		}
		return &ResolutionError{Stage: "geometry", Err: err}
	}
	s.Geometry = g
	return nil
}

// teardown stops whatever capture processes are running and releases the
// overlay chord. It ignores cancellation of ctx so it always runs to the end.
func (c *Controller) teardown(ctx context.Context, s *Session, logger *slog.Logger) error {
	ctx = context.WithoutCancel(ctx)
	s.transition(CaptureStopping)

	var errs []error
	if err := s.Processes.StopAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.Input.Release(ctx, c.Toggle.Chord); err != nil {
		errs = append(errs, fmt.Errorf("releasing overlay chord: %w", err))
	}
	logger.Debug("teardown complete", "dispatched", s.Dispatched, "directives", s.Directives)
	return errors.Join(errs...)
}

// requireLive fails when a capture process died between start and dispatch.
func requireLive(m *procs.Manager) error {
	for _, kind := range procs.StartOrder {
		if !m.Alive(kind) {
			return &procs.StartError{Kind: kind, Err: errors.New("not running when dispatch began")}
		}
	}
	return nil
}

// classify reports interruptions as ErrOperatorAborted while keeping the
// underlying error in the chain.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, operator.ErrAborted) {
		if errors.Is(err, ErrOperatorAborted) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrOperatorAborted, err)
	}
	return err
}
