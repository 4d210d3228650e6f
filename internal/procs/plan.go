package procs

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fakeyudi/screencast/internal/desktop"
)

// Plan holds everything needed to build the launch specs of a recording.
type Plan struct {
	// Target is the terminal window whose shell is recorded.
	Target         desktop.Window
	Geometry       desktop.Geometry
	Display        string
	FrameRate      int
	VideoPath      string
	TranscriptPath string
	Overwrite      bool
	Shell          string

	OverlayCommand  string
	RecorderCommand string
	VideoCommand    string
}

// Specs returns the launch spec of every capture process.
func (p Plan) Specs() map[Kind]Spec {
	return map[Kind]Spec{
		Overlay:          p.overlaySpec(),
		TerminalRecorder: p.recorderSpec(),
		VideoCapture:     p.videoSpec(),
	}
}

// OverlayGeometry places the keystroke overlay across the bottom of the
// target window.
func (p Plan) OverlayGeometry() desktop.Geometry {
	g := p.Geometry
	h := g.Height / 5
	if h > 200 {
		h = 200
	}
	if h < 1 {
		h = g.Height
	}
	return desktop.Geometry{X: g.X, Y: g.Y + g.Height - h, Width: g.Width, Height: h}
}

func (p Plan) overlaySpec() Spec {
	return Spec{
		Kind: Overlay,
		Name: p.OverlayCommand,
		Args: []string{
			"--no-systray",
			"--position", "fixed",
			"--geometry", p.OverlayGeometry().String(),
		},
	}
}

func (p Plan) recorderSpec() Spec {
	args := []string{"rec", "--quiet"}
	if p.Overwrite {
		args = append(args, "--overwrite")
	}
	if p.Shell != "" {
		args = append(args, "--command", p.Shell)
	}
	args = append(args, p.TranscriptPath)
	return Spec{
		Kind: TerminalRecorder,
		Name: p.RecorderCommand,
		Args:   args,
		Window: p.Target,
	}
}

func (p Plan) videoSpec() Spec {
	overwrite := "-n"
	if p.Overwrite {
		overwrite = "-y"
	}
	g := p.Geometry
	display := p.Display
	if display == "" {
		display = ":0"
	}
	return Spec{
		Kind: VideoCapture,
		Name: p.VideoCommand,
		Args: []string{
			"-nostdin", "-loglevel", "error", overwrite,
			"-f", "x11grab",
			"-framerate", strconv.Itoa(p.FrameRate),
			"-video_size", fmt.Sprintf("%dx%d", g.Width, g.Height),
			"-i", fmt.Sprintf("%s+%d,%d", display, g.X, g.Y),
			"-c:v", "libx264rgb", "-crf", "0", "-preset", "ultrafast",
			p.VideoPath,
		},
		// ffmpeg finalizes the container on SIGINT.
		StopSignal: os.Interrupt,
	}
}
