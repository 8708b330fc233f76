package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"tableflip.dev/stepper/pkg/commands/options"
	"tableflip.dev/stepper/pkg/logging"
	"tableflip.dev/stepper/pkg/tui/app"
)

func addUI(topLevel *cobra.Command) {
	lo := &options.LogOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "open the step counter widget",
		Long: options.Wrap80(`Open the terminal widget. It follows the daemon's step_update events and
can reset the counter, open the developer tools and switch to the pet.
Logs go to --log-file because the terminal belongs to the widget.`),
		Example: `
stepper ui
stepper ui --log-file /tmp/stepper-ui.log --log-level debug
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return errors.New("stepper ui needs an interactive terminal")
			}

			client, err := do.Client()
			if err != nil {
				return err
			}

			log := logging.Discard()
			if lo.File != "" {
				f, err := os.OpenFile(lo.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				if log, _, err = logging.New(logging.Options{Level: lo.Level, Output: f}); err != nil {
					return err
				}
			}
			log.Info("widget starting", "daemon", client.Addr())

			return app.Run(cmd.Context(), app.Options{
				Backend:        client,
				Log:            log,
				DarkBackground: termenv.HasDarkBackground(),
			})
		},
	}

	options.AddLogArgs(cmd, lo)

	topLevel.AddCommand(cmd)
}
