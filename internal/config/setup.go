package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RunSetup runs the interactive setup wizard on in and out. Each prompt
// defaults to the current value of existing, or to Defaults if existing is
// nil. The result is not saved.
func RunSetup(in io.Reader, out io.Writer, existing *Config) (*Config, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askInt := func(prompt string, defaultVal int) (int, error) {
		for {
			ans, err := ask(prompt, strconv.Itoa(defaultVal))
			if err != nil {
				return 0, err
			}
			n, err := strconv.Atoi(ans)
			if err == nil && n > 0 {
				return n, nil
			}
			fmt.Fprintf(out, "  %q is not a positive number\n", ans)
		}
	}

	cfg := Defaults()
	if existing != nil {
		apply(&cfg, existing)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │   screencast — first-time setup │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error

	if cfg.Display, err = ask("  X display to capture", cfg.Display); err != nil {
		return nil, err
	}
	if cfg.FrameRate, err = askInt("  Video frame rate", cfg.FrameRate); err != nil {
		return nil, err
	}
	if cfg.TypeDelayMS, err = askInt("  Delay between typed characters (ms)", cfg.TypeDelayMS); err != nil {
		return nil, err
	}
	if cfg.OverlayCommand, err = ask("  Keystroke overlay command", cfg.OverlayCommand); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = ask("  Default output directory", cfg.OutputDir); err != nil {
		return nil, err
	}

	level, err := ask("  Log level (debug/info/warn/error)", cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		cfg.LogLevel = strings.ToLower(level)
	default:
		cfg.LogLevel = "info"
	}

	fmt.Fprintln(out)
	return &cfg, nil
}
