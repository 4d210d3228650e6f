package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/screencast/internal/config"
	"github.com/fakeyudi/screencast/internal/session"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// logger is built from --log-level, then log_level, in PersistentPreRunE.
var logger = slog.New(slog.DiscardHandler)

var logLevelFlag string

var rootCmd = &cobra.Command{
	Use:   "screencast",
	Short: "Record scripted terminal screencasts with a keystroke overlay",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// First run: no global config yet → offer the setup wizard, but only
		// when stdin is an interactive terminal.
		if in, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(in.Fd()) {
			if path, err := config.GlobalPath(); err == nil {
				if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
					fmt.Fprintln(cmd.OutOrStdout())
					fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to screencast! Looks like this is your first time.")
					if err := runSetup(cmd, in); err != nil {
						return err
					}
				}
			}
		}

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		config.ApplyEnv(&cfg, os.Getenv)

		level := cfg.LogLevel
		if logLevelFlag != "" {
			level = logLevelFlag
		}
		l, err := newLogger(cmd.ErrOrStderr(), level)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the root command. Exits with code 130 when the operator
// aborted a recording and 1 on any other error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, session.ErrOperatorAborted) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn or error (default from config)")
}
