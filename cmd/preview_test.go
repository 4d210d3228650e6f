package cmd

import (
	"strings"
	"testing"
)

func TestPreviewPlain(t *testing.T) {
	dir := isolate(t)
	path := writeScript(t, dir, "Intro text\n\n```bash\ncommand echo hi\nkey Return\n```\n\n```\ntoggle\nsleep soon\n```\n")

	out, err := executeCommand(rootCmd, "preview", "--plain", "-a", path)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	for _, want := range []string{"(autopause)", "command echo hi", "key     Return", "toggle", "warning: line 10"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "(autopause)"); n != 2 {
		t.Errorf("got %d autopauses, want 2", n)
	}
}

func TestPreviewMissingScript(t *testing.T) {
	isolate(t)
	_, err := executeCommand(rootCmd, "preview", "--plain", "missing.md")
	if err == nil || !strings.Contains(err.Error(), "script not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
