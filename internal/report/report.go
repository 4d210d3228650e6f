// Package report summarizes a finished recording for the operator and for
// tooling that post-processes screencasts.
package report

import (
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fakeyudi/screencast/internal/desktop"
	"github.com/fakeyudi/screencast/internal/session"
)

// Report is the complete, renderable summary of one recording.
type Report struct {
	Session   Meta       `json:"session"`
	Windows   Windows    `json:"windows"`
	Processes []Process  `json:"processes"`
	Artifacts []Artifact `json:"artifacts"`
	Error     string     `json:"error,omitempty"`
}

// Meta holds summary metadata about the session.
type Meta struct {
	ID         string    `json:"id"`
	Script     string    `json:"script"`
	State      string    `json:"state"`
	StartTime  time.Time `json:"start_time"`
	StopTime   time.Time `json:"stop_time"`
	Duration   string    `json:"duration"` // e.g. "1m12s"
	Autopause  bool      `json:"autopause"`
	Directives int       `json:"directives"`
	Dispatched int       `json:"dispatched"`
}

// Windows records the windows the session worked with.
type Windows struct {
	Target   string           `json:"target"`
	Script   string           `json:"script"`
	Geometry desktop.Geometry `json:"geometry"`
}

// Process is the final state of one capture process.
type Process struct {
	Kind      string    `json:"kind"`
	PID       int       `json:"pid,omitempty"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at,omitzero"`
	StoppedAt time.Time `json:"stopped_at,omitzero"`
}

// Artifact is an output file of the recording.
type Artifact struct {
	Path    string `json:"path"`
	Bytes   uint64 `json:"bytes"`
	Size    string `json:"size"` // human-readable, e.g. "4.2 MB"
	Missing bool   `json:"missing,omitempty"`
}

// New builds the report for s. runErr is the error Run returned, if any.
// Artifacts are stat'ed at call time; a path that does not exist is listed
// as missing.
func New(s *session.Session, runErr error, artifacts ...string) *Report {
	r := &Report{
		Session: Meta{
			ID:         s.ID,
			Script:     s.ScriptPath,
			State:      s.State.String(),
			StartTime:  s.StartTime,
			Autopause:  s.Autopause,
			Directives: s.Directives,
			Dispatched: s.Dispatched,
		},
		Windows: Windows{
			Target:   string(s.Target),
			Script:   string(s.ScriptWindow),
			Geometry: s.Geometry,
		},
	}
	if s.StopTime != nil {
		r.Session.StopTime = *s.StopTime
		r.Session.Duration = s.StopTime.Sub(s.StartTime).Round(time.Second).String()
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	if s.Processes != nil {
		for _, h := range s.Processes.Handles() {
			r.Processes = append(r.Processes, Process{
				Kind:      h.Kind.String(),
				PID:       h.PID,
				State:     h.State.String(),
				StartedAt: h.StartedAt,
				StoppedAt: h.StoppedAt,
			})
		}
	}
	for _, path := range artifacts {
		r.Artifacts = append(r.Artifacts, stat(path))
	}
	return r
}

func stat(path string) Artifact {
	a := Artifact{Path: path}
	info, err := os.Stat(path)
	if err != nil {
		a.Missing = true
		a.Size = "missing"
		return a
	}
	a.Bytes = uint64(info.Size())
	a.Size = humanize.Bytes(a.Bytes)
	return a
}
