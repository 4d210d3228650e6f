package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}

// ForFormat returns the renderer for "json" or "markdown".
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q (want json or markdown)", format)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// MarkdownRenderer renders a Report as human-readable Markdown.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(r *Report) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Screencast %s\n\n", r.Session.Script)

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- Session: %s\n", r.Session.ID)
	fmt.Fprintf(&sb, "- State: %s\n", r.Session.State)
	fmt.Fprintf(&sb, "- Started: %s\n", r.Session.StartTime.Format("2006-01-02 15:04:05 MST"))
	if r.Session.Duration != "" {
		fmt.Fprintf(&sb, "- Duration: %s\n", r.Session.Duration)
	}
	fmt.Fprintf(&sb, "- Directives: %d of %d dispatched\n", r.Session.Dispatched, r.Session.Directives)
	if r.Session.Autopause {
		sb.WriteString("- Autopause: on\n")
	}
	if r.Error != "" {
		fmt.Fprintf(&sb, "- Error: %s\n", r.Error)
	}
	sb.WriteString("\n")

	sb.WriteString("## Windows\n\n")
	if r.Windows.Target == "" {
		sb.WriteString("_No target window resolved._\n")
	} else {
		fmt.Fprintf(&sb, "- Target: %s (%s)\n", r.Windows.Target, r.Windows.Geometry)
		fmt.Fprintf(&sb, "- Script: %s\n", r.Windows.Script)
	}
	sb.WriteString("\n")

	sb.WriteString("## Processes\n\n")
	if len(r.Processes) == 0 {
		sb.WriteString("_No capture processes._\n")
	} else {
		sb.WriteString("| Kind | PID | State |\n")
		sb.WriteString("|------|-----|-------|\n")
		for _, p := range r.Processes {
			pid := "-"
			if p.PID != 0 {
				pid = fmt.Sprint(p.PID)
			}
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", p.Kind, pid, p.State)
		}
	}
	sb.WriteString("\n")

	sb.WriteString("## Artifacts\n\n")
	if len(r.Artifacts) == 0 {
		sb.WriteString("_No artifacts._\n")
	} else {
		for _, a := range r.Artifacts {
			fmt.Fprintf(&sb, "- `%s` %s\n", a.Path, a.Size)
		}
	}

	return []byte(sb.String()), nil
}
