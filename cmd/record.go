package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/screencast/internal/config"
	"github.com/fakeyudi/screencast/internal/desktop"
	"github.com/fakeyudi/screencast/internal/dispatch"
	"github.com/fakeyudi/screencast/internal/operator"
	"github.com/fakeyudi/screencast/internal/procs"
	"github.com/fakeyudi/screencast/internal/report"
	"github.com/fakeyudi/screencast/internal/script"
	"github.com/fakeyudi/screencast/internal/session"
)

var (
	recordWindow       string
	recordAutopause    bool
	recordForce        bool
	recordVideo        string
	recordTranscript   string
	recordReport       string
	recordReportFormat string
	recordStrict       bool
)

// ports are the capabilities a recording drives.
type ports struct {
	Windows  desktop.WindowSystem
	Input    desktop.Injector
	Operator dispatch.Operator
	Executor procs.Executor
}

// newPorts builds the ports for a recording. Tests replace it with fakes.
var newPorts = func(cmd *cobra.Command, c config.Config) ports {
	x := desktop.NewXdotool(c.Display, c.TypeDelay())
	// The terminal recorder runs in the target window's shell so it records
	// what the directives type there.
	typeLine := func(ctx context.Context, w desktop.Window, line string) error {
		return desktop.TypeLine(ctx, x, x, w, line)
	}
	executor := procs.NewTerminalExecutor(procs.NewOSExecutor(c.StopTimeout()), typeLine,
		procs.TerminalOptions{StopTimeout: c.StopTimeout()})
	return ports{
		Windows:  x,
		Input:    x,
		Operator: operator.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout()),
		Executor: executor,
	}
}

var recordCmd = &cobra.Command{
	Use:   "record <script>",
	Short: "Record a screencast of the fenced blocks in a script",
	Long: `Record plays the fenced blocks of a Markdown script into the target
window while a keystroke overlay, a terminal recorder and a video capture
run. Without --window the operator is asked to click the target window.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("script not found: %s", path)
			}
			return err
		}

		directives := script.Interpret(string(data), recordAutopause)
		if err := lint(cmd, directives, recordStrict); err != nil {
			return err
		}
		if len(directives) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: no directives found in %s\n", path)
		}
		if f, ok := cmd.InOrStdin().(*os.File); ok && hasPause(directives) && !operator.IsInteractive(f) {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: stdin is not a terminal; pauses end the recording when input closes")
		}

		c := GetConfig()
		video, transcript := artifactPaths(c.OutputDir, path, recordVideo, recordTranscript)
		if !recordForce {
			for _, p := range []string{video, transcript} {
				if _, err := os.Stat(p); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", p)
				}
			}
		}

		var renderer report.Renderer
		if recordReport != "" {
			if renderer, err = report.ForFormat(recordReportFormat); err != nil {
				return err
			}
		}

		// Usage problems end here; anything after is a runtime failure.
		cmd.SilenceUsage = true

		p := newPorts(cmd, c)
		ctrl := &session.Controller{
			Windows:  p.Windows,
			Input:    p.Input,
			Operator: p.Operator,
			Executor: p.Executor,
			Toggle: dispatch.Toggle{
				Chord:         c.OverlayToggleChord,
				PressSettle:   c.PressSettle(),
				ReleaseSettle: c.ReleaseSettle(),
			},
			Settle: c.ProcessSettle(),
			Logger: logger,
		}
		req := session.Request{
			ScriptPath: path,
			Directives: directives,
			Window:     desktop.Window(recordWindow),
			Autopause:  recordAutopause,
			Overwrite:  recordForce,
			Plan: procs.Plan{
				Display:         c.Display,
				FrameRate:       c.FrameRate,
				VideoPath:       video,
				TranscriptPath:  transcript,
				Shell:           c.Shell,
				OverlayCommand:  c.OverlayCommand,
				RecorderCommand: c.RecorderCommand,
				VideoCommand:    c.VideoCommand,
			},
		}

		ctx, stop := session.WithInterrupts(cmd.Context(), logger)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Recording %d directives from %s\n", len(directives), path)
		s, runErr := ctrl.Run(ctx, req)

		r := report.New(s, runErr, video, transcript)
		if recordReport != "" {
			if err := report.Write(recordReport, r, renderer); err != nil {
				logger.Warn("session report not written", "path", recordReport, "error", err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", recordReport)
			}
		}

		if runErr != nil {
			logRunError(logger, runErr)
			return runErr
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d directives in %s\n", s.Dispatched, r.Session.Duration)
		for _, a := range r.Artifacts {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s (%s)\n", a.Path, a.Size)
		}
		return nil
	},
}

// artifactPaths returns the video and transcript paths, defaulting to the
// script's base name inside outputDir.
func artifactPaths(outputDir, scriptPath, video, transcript string) (string, string) {
	base := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	if video == "" {
		video = filepath.Join(outputDir, base+".mkv")
	}
	if transcript == "" {
		transcript = filepath.Join(outputDir, base+".cast")
	}
	return video, transcript
}

// lint reports payload problems as warnings, or as an error when strict.
func lint(cmd *cobra.Command, directives []script.Directive, strict bool) error {
	problems := script.Lint(directives)
	if len(problems) == 0 {
		return nil
	}
	if strict {
		return fmt.Errorf("script has %d invalid directives: %w", len(problems), errors.Join(problems...))
	}
	for _, p := range problems {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", p)
	}
	return nil
}

func hasPause(directives []script.Directive) bool {
	for _, d := range directives {
		if d.Kind() == script.KindPause {
			return true
		}
	}
	return false
}

func logRunError(l *slog.Logger, err error) {
	var (
		re *session.ResolutionError
		se *procs.StartError
		de *dispatch.DirectiveError
	)
	switch {
	case errors.Is(err, session.ErrOperatorAborted):
		l.Warn("recording aborted", "error", err)
	case errors.As(err, &re):
		l.Error("window resolution failed", "stage", re.Stage, "error", re.Err)
	case errors.As(err, &se):
		l.Error("capture process failed to start", "kind", se.Kind, "error", se.Err)
	case errors.As(err, &de):
		l.Error("directive failed", "line", de.Line, "directive", de.Kind, "error", de.Err)
	default:
		l.Error("recording failed", "error", err)
	}
}

func init() {
	f := recordCmd.Flags()
	f.StringVarP(&recordWindow, "window", "w", "", "target window id (default: click to select)")
	f.BoolVarP(&recordAutopause, "autopause", "a", false, "pause for the operator before every block")
	f.BoolVarP(&recordForce, "force", "f", false, "overwrite existing video and transcript")
	f.StringVar(&recordVideo, "video", "", "video output path (default <output_dir>/<script>.mkv)")
	f.StringVar(&recordTranscript, "transcript", "", "terminal transcript path (default <output_dir>/<script>.cast)")
	f.StringVar(&recordReport, "report", "", "write a session report to this path")
	f.StringVar(&recordReportFormat, "report-format", "json", "session report format: json or markdown")
	f.BoolVar(&recordStrict, "strict", false, "refuse to record a script with invalid directives")
	rootCmd.AddCommand(recordCmd)
}
