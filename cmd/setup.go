package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/screencast/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure screencast (re-run anytime to edit settings)",
	// Bypass the normal PersistentPreRunE so setup works before a config exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && !term.IsTerminal(f.Fd()) {
			return errors.New("setup needs an interactive terminal; edit the config file instead")
		}
		return runSetup(cmd, in)
	},
}

// runSetup runs the interactive wizard and saves the global config.
func runSetup(cmd *cobra.Command, in io.Reader) error {
	out := cmd.OutOrStdout()

	// Load the existing global config as defaults if present.
	var existing *config.Config
	if path, err := config.GlobalPath(); err == nil {
		if _, err := os.Stat(path); err == nil {
			if c, err := config.LoadGlobal(); err == nil {
				existing = c
			}
		}
	}

	c, err := config.RunSetup(in, out, existing)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	if err := config.SaveGlobal(c); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	path, _ := config.GlobalPath()
	fmt.Fprintf(out, "  ✓ Config saved to %s.\n", path)
	fmt.Fprintln(out, "  Setup complete. Run 'screencast preview <script>' to check a script.")
	fmt.Fprintln(out)
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
