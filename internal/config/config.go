package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ProjectFile is the per-directory config file read by LoadProject.
const ProjectFile = ".screencastrc"

// Config holds all configurable screencast settings. Zero values mean
// "not set" so that Merge can layer files over each other.
type Config struct {
	Display   string `json:"display,omitempty"`
	FrameRate int    `json:"frame_rate,omitempty"`
	Shell     string `json:"shell,omitempty"` // shell the terminal recorder runs
	OutputDir string `json:"output_dir,omitempty"`
	LogLevel  string `json:"log_level,omitempty"` // "debug" | "info" | "warn" | "error"

	OverlayCommand  string `json:"overlay_command,omitempty"`
	RecorderCommand string `json:"recorder_command,omitempty"`
	VideoCommand    string `json:"video_command,omitempty"`

	TypeDelayMS            int      `json:"type_delay_ms,omitempty"`
	OverlayToggleChord     []string `json:"overlay_toggle_chord,omitempty"`
	OverlayPressSettleMS   int      `json:"overlay_press_settle_ms,omitempty"`
	OverlayReleaseSettleMS int      `json:"overlay_release_settle_ms,omitempty"`
	ProcessSettleMS        int      `json:"process_settle_ms,omitempty"`
	StopTimeoutMS          int      `json:"stop_timeout_ms,omitempty"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	display := os.Getenv("DISPLAY")
	if display == "" {
		display = ":0"
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}
	return Config{
		Display:                display,
		FrameRate:              30,
		Shell:                  shell,
		OutputDir:              ".",
		LogLevel:               "info",
		OverlayCommand:         "screenkey",
		RecorderCommand:        "asciinema",
		VideoCommand:           "ffmpeg",
		TypeDelayMS:            40,
		OverlayToggleChord:     []string{"Control_L", "Control_R"},
		OverlayPressSettleMS:   100,
		OverlayReleaseSettleMS: 400,
		ProcessSettleMS:        1000,
		StopTimeoutMS:          3000,
	}
}

func (c Config) TypeDelay() time.Duration     { return ms(c.TypeDelayMS) }
func (c Config) PressSettle() time.Duration   { return ms(c.OverlayPressSettleMS) }
func (c Config) ReleaseSettle() time.Duration { return ms(c.OverlayReleaseSettleMS) }
func (c Config) ProcessSettle() time.Duration { return ms(c.ProcessSettleMS) }
func (c Config) StopTimeout() time.Duration   { return ms(c.StopTimeoutMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Dir returns the screencast config directory, ~/.config/screencast.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "screencast"), nil
}

// GlobalPath returns the path of the global config file.
func GlobalPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadGlobal reads ~/.config/screencast/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .screencastrc in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(ProjectFile, false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// SaveGlobal writes cfg to the global config file, creating the config
// directory if needed.
func SaveGlobal(cfg *Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	apply(&result, global)
	apply(&result, project)
	return result
}

// apply copies every field set in src over dst.
func apply(dst, src *Config) {
	if src == nil {
		return
	}
	setString(&dst.Display, src.Display)
	setString(&dst.Shell, src.Shell)
	setString(&dst.OutputDir, src.OutputDir)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.OverlayCommand, src.OverlayCommand)
	setString(&dst.RecorderCommand, src.RecorderCommand)
	setString(&dst.VideoCommand, src.VideoCommand)

	setInt(&dst.FrameRate, src.FrameRate)
	setInt(&dst.TypeDelayMS, src.TypeDelayMS)
	setInt(&dst.OverlayPressSettleMS, src.OverlayPressSettleMS)
	setInt(&dst.OverlayReleaseSettleMS, src.OverlayReleaseSettleMS)
	setInt(&dst.ProcessSettleMS, src.ProcessSettleMS)
	setInt(&dst.StopTimeoutMS, src.StopTimeoutMS)

	if len(src.OverlayToggleChord) > 0 {
		dst.OverlayToggleChord = src.OverlayToggleChord
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// ApplyEnv overrides cfg with SCREENCAST_DISPLAY and SCREENCAST_LOG_LEVEL
// when they are set.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	setString(&cfg.Display, getenv("SCREENCAST_DISPLAY"))
	setString(&cfg.LogLevel, getenv("SCREENCAST_LOG_LEVEL"))
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
