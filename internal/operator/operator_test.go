package operator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestAcknowledgeReadsOneLinePerCall(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader("\n\n"), &out)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := term.Acknowledge(ctx, "Paused"); err != nil {
			t.Fatalf("Acknowledge %d: %v", i, err)
		}
	}
	if !errors.Is(term.Acknowledge(ctx, "Paused"), ErrAborted) {
		t.Fatal("expected ErrAborted once input is exhausted")
	}
	if !strings.Contains(out.String(), "Paused") {
		t.Errorf("prompt not written: %q", out.String())
	}
}

func TestAcknowledgeHonoursCancellation(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	term := NewTerminal(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := term.Acknowledge(ctx, "Paused"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want DeadlineExceeded", err)
	}

	// The line typed after the timeout satisfies the next pause.
	go func() { _, _ = w.Write([]byte("\n")) }()
	if err := term.Acknowledge(context.Background(), "Paused"); err != nil {
		t.Fatalf("Acknowledge after cancellation: %v", err)
	}
}
