package session

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// WithInterrupts returns a context canceled by the first SIGINT or SIGTERM.
// Later signals are logged and otherwise ignored so that teardown can finish
// instead of the process dying with capture processes still running. Call
// stop to restore default signal handling.
func WithInterrupts(parent context.Context, logger *slog.Logger) (ctx context.Context, stop func()) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		first := true
		for {
			select {
			case sig := <-ch:
				if first {
					logger.Warn("interrupted, stopping capture", "signal", sig)
					cancel()
					first = false
					continue
				}
				logger.Warn("teardown in progress, ignoring signal", "signal", sig)
			case <-done:
				return
			}
		}
	}()

	return ctx, func() {
		signal.Stop(ch)
		close(done)
		cancel()
	}
}
