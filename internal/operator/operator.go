// Package operator implements the operator-signal port on a terminal.
package operator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

// ErrAborted is returned when the operator's input closes while a pause is
// waiting for an acknowledgment.
var ErrAborted = errors.New("operator input closed")

var promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("178"))

// Terminal reads acknowledgments as lines from in.
type Terminal struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan error
}

// NewTerminal returns a Terminal prompting on out and reading from in.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(f.Fd())
}

// Acknowledge prints prompt and waits for one line of input. A line that
// arrives after ctx is done is kept for the next call.
func (t *Terminal) Acknowledge(ctx context.Context, prompt string) error {
	t.once.Do(t.startReader)
	fmt.Fprint(t.out, promptStyle.Render(prompt)+" ")

	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return ctx.Err()
	case err, ok := <-t.lines:
		if !ok || err != nil {
			return ErrAborted
		}
		return nil
	}
}

// startReader runs a single background reader so a cancelled wait does not
// leave a competing read on in.
func (t *Terminal) startReader() {
	t.lines = make(chan error)
	go func() {
		defer close(t.lines)
		r := bufio.NewReader(t.in)
		for {
			_, err := r.ReadString('\n')
			if err != nil {
				t.lines <- err
				return
			}
			t.lines <- nil
		}
	}()
}
