package script_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/screencast/internal/script"
)

// blockLine is a generated line inside a fenced block together with whether
// the interpreter should turn it into a directive.
type blockLine struct {
	text       string
	recognized bool
}

func generateBlockLine(t *rapid.T, label string) blockLine {
	word := rapid.StringMatching(`[a-z0-9]{1,8}`)
	switch rapid.IntRange(0, 7).Draw(t, label+"_kind") {
	case 0:
		return blockLine{"command " + word.Draw(t, label+"_cmd"), true}
	case 1:
		return blockLine{"key " + word.Draw(t, label+"_k1") + " " + word.Draw(t, label+"_k2"), true}
	case 2:
		return blockLine{"sleep " + word.Draw(t, label+"_dur"), true}
	case 3:
		return blockLine{"pause", true}
	case 4:
		return blockLine{"toggle", true}
	case 5:
		return blockLine{"# " + word.Draw(t, label+"_comment"), false}
	case 6:
		return blockLine{"echo " + word.Draw(t, label+"_unknown"), false}
	default:
		return blockLine{"", false}
	}
}

// generateDocument builds a document of prose and balanced fenced blocks.
// It returns the document, the expected directive count without autopause,
// and the number of blocks holding at least one non-blank line.
func generateDocument(t *rapid.T) (string, int, int) {
	var sb strings.Builder
	want, nonEmptyBlocks := 0, 0
	numBlocks := rapid.IntRange(0, 4).Draw(t, "num_blocks")
	for b := 0; b < numBlocks; b++ {
		sb.WriteString(rapid.StringMatching(`[A-Za-z ]{0,30}`).Draw(t, "prose") + "\n")
		sb.WriteString("```" + rapid.SampledFrom([]string{"", "screencast", "sh"}).Draw(t, "info") + "\n")
		hasContent := false
		numLines := rapid.IntRange(0, 6).Draw(t, "num_lines")
		for i := 0; i < numLines; i++ {
			l := generateBlockLine(t, "line")
			if l.recognized {
				want++
			}
			if l.text != "" {
				hasContent = true
			}
			sb.WriteString(l.text + "\n")
		}
		if hasContent {
			nonEmptyBlocks++
		}
		sb.WriteString("```\n")
	}
	return sb.String(), want, nonEmptyBlocks
}

// Feature: screencast, Property 1: directive count matches recognized block lines
func TestInterpretDirectiveCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		doc, want, _ := generateDocument(t)
		got := script.Interpret(doc, false)
		if len(got) != want {
			t.Fatalf("got %d directives, want %d\n%s", len(got), want, doc)
		}
	})
}

// Feature: screencast, Property 2: autopause only inserts one pause per block entry
func TestInterpretAutopausePreservesOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		doc, _, nonEmptyBlocks := generateDocument(t)
		plain := script.Interpret(doc, false)
		paused := script.Interpret(doc, true)

		var real []script.Directive
		autos := 0
		for _, d := range paused {
			if p, ok := d.(script.Pause); ok && p.Auto {
				autos++
				continue
			}
			real = append(real, d)
		}
		if autos != nonEmptyBlocks {
			t.Fatalf("got %d auto pauses, want %d", autos, nonEmptyBlocks)
		}
		if len(real) != len(plain) {
			t.Fatalf("real directives: got %d, want %d", len(real), len(plain))
		}
		for i := range plain {
			if !reflect.DeepEqual(real[i], plain[i]) {
				t.Fatalf("directive %d: got %#v, want %#v", i, real[i], plain[i])
			}
		}
	})
}

func TestInterpretCommandAndSleep(t *testing.T) {
	doc := "```\ncommand echo hi\nsleep 1\n```\n"
	got := script.Interpret(doc, false)
	want := []script.Directive{
		script.Command{Text: "echo hi", LineNo: 2},
		script.Sleep{Raw: "1", LineNo: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	d, err := got[1].(script.Sleep).Duration()
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if d != time.Second {
		t.Errorf("Duration: got %v, want 1s", d)
	}
}

func TestInterpretTwoBlocks(t *testing.T) {
	doc := strings.Join([]string{
		"# Demo",
		"Some prose with command outside a block.",
		"```",
		`command echo "Hello"`,
		"```",
		"More prose.",
		"```",
		"key e c h o",
		"```",
	}, "\n")

	got := script.Interpret(doc, false)
	want := []script.Directive{
		script.Command{Text: `echo "Hello"`, LineNo: 4},
		script.Key{Names: []string{"e", "c", "h", "o"}, LineNo: 8},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestInterpretAutopauseBeforeFirstLine(t *testing.T) {
	doc := "```\n\ncommand ls\ntoggle\n```\n```\n```\n"
	got := script.Interpret(doc, true)
	want := []script.Directive{
		script.Pause{Auto: true, LineNo: 3},
		script.Command{Text: "ls", LineNo: 3},
		script.Toggle{LineNo: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestInterpretUnterminatedBlock(t *testing.T) {
	doc := "intro\n```\ncommand make\nkey Return\npause"
	got := script.Interpret(doc, false)
	want := []script.Directive{
		script.Command{Text: "make", LineNo: 3},
		script.Key{Names: []string{"Return"}, LineNo: 4},
		script.Pause{LineNo: 5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestInterpretIgnoresOutsideAndUnknown(t *testing.T) {
	doc := "command outside\n```\ncommands plural\nKEY upper\n  command   padded  \n```\ncommand after\n"
	got := script.Interpret(doc, false)
	want := []script.Directive{script.Command{Text: "padded", LineNo: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	if len(script.Interpret("", true)) != 0 {
		t.Error("empty document should yield no directives")
	}
}

func TestSleepDuration(t *testing.T) {
	cases := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"1", time.Second, false},
		{"0.5", 500 * time.Millisecond, false},
		{"0", 0, false},
		{"250ms", 250 * time.Millisecond, false},
		{"", 0, true},
		{"-1", 0, true},
		{"soon", 0, true},
		{"NaN", 0, true},
		{"9223372036", 9223372036 * time.Second, false},
		{"9300000000", 0, true},
		{"1e10", 0, true},
		{"1e300", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := script.Sleep{Raw: tc.raw, LineNo: 7}.Duration()
			if tc.wantErr {
				var pe *script.PayloadError
				if !errors.As(err, &pe) {
					t.Fatalf("expected PayloadError, got %v", err)
				}
				if pe.Line != 7 {
					t.Errorf("Line: got %d, want 7", pe.Line)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLintReportsBadSleeps(t *testing.T) {
	doc := "```\nsleep 1\nsleep forever\ncommand ls\nsleep\n```\n"
	errs := script.Lint(script.Interpret(doc, false))
	if len(errs) != 2 {
		t.Fatalf("got %d lint errors, want 2: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Error(), "line 3") {
		t.Errorf("first error should point at line 3, got %q", errs[0])
	}
	if !strings.Contains(errs[1].Error(), "line 5") {
		t.Errorf("second error should point at line 5, got %q", errs[1])
	}
}

func TestWatchReinterpretsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.md")
	if err := os.WriteFile(path, []byte("```\n```\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan []script.Directive, 16)
	done := make(chan error, 1)
	go func() {
		done <- script.Watch(ctx, path, false, func(ds []script.Directive) { got <- ds })
	}()

	// Keep rewriting until the watcher is registered and reports back.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ds := <-got:
			if len(ds) == 1 && ds[0].Kind() == script.KindToggle {
				cancel()
				if err := <-done; err != nil {
					t.Fatalf("Watch: %v", err)
				}
				return
			}
		case <-ticker.C:
			_ = os.WriteFile(path, []byte("```\ntoggle\n```\n"), 0o644)
		case <-ctx.Done():
			t.Fatal("watcher never reported the rewritten script")
		}
	}
}
