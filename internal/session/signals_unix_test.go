//go:build unix

package session

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestWithInterruptsCancelsOnFirstSignal(t *testing.T) {
	ctx, stop := WithInterrupts(context.Background(), nil)
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not canceled after SIGINT")
	}

	// A second signal must not kill the test process.
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
}

func TestWithInterruptsStopCancels(t *testing.T) {
	ctx, stop := WithInterrupts(context.Background(), nil)
	stop()
	if ctx.Err() == nil {
		t.Fatal("stop did not cancel the context")
	}
}
