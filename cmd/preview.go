package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/screencast/internal/script"
	"github.com/fakeyudi/screencast/internal/tui"
)

var (
	previewAutopause bool
	previewPlain     bool
	previewWatch     bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <script>",
	Short: "Show the directives a script would dispatch without recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("script not found: %s", path)
			}
			return err
		}
		directives := script.Interpret(string(data), previewAutopause)

		c := GetConfig()
		opts := tui.Options{TypeDelay: c.TypeDelay(), ToggleSettle: c.PressSettle() + c.ReleaseSettle()}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		plain := previewPlain || !term.IsTerminal(os.Stdout.Fd())
		if plain {
			out := cmd.OutOrStdout()
			if err := printPreview(cmd, directives); err != nil {
				return err
			}
			if !previewWatch {
				return nil
			}
			err := script.Watch(ctx, path, previewAutopause, func(d []script.Directive) {
				fmt.Fprintf(out, "\n-- %s changed --\n", path)
				if err := printPreview(cmd, d); err != nil {
					logger.Warn("preview output failed", "error", err)
				}
			})
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		}

		var updates chan []script.Directive
		if previewWatch {
			updates = make(chan []script.Directive)
			go func() {
				defer close(updates)
				err := script.Watch(ctx, path, previewAutopause, func(d []script.Directive) {
					select {
					case updates <- d:
					case <-ctx.Done():
					}
				})
				if err != nil && ctx.Err() == nil {
					logger.Warn("watching script stopped", "path", path, "error", err)
				}
			}()
		}
		err = tui.Run(directives, path, opts, updates)
		stop()
		return err
	},
}

// printPreview writes directives and any problems in plain text.
func printPreview(cmd *cobra.Command, directives []script.Directive) error {
	if err := tui.RenderPlain(cmd.OutOrStdout(), directives); err != nil {
		return err
	}
	for _, p := range script.Lint(directives) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", p)
	}
	return nil
}

func init() {
	previewCmd.Flags().BoolVarP(&previewAutopause, "autopause", "a", false, "show the pauses --autopause would insert")
	previewCmd.Flags().BoolVar(&previewPlain, "plain", false, "plain text output instead of TUI")
	previewCmd.Flags().BoolVar(&previewWatch, "watch", false, "re-read the script whenever it changes")
	rootCmd.AddCommand(previewCmd)
}
