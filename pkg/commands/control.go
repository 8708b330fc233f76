package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tableflip.dev/stepper/pkg/bus"
	"tableflip.dev/stepper/pkg/commands/options"
)

// addControl registers a command that runs one daemon command and prints
// done on success.
func addControl(topLevel *cobra.Command, use, short, command, done string) {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Example: fmt.Sprintf(`
stepper %s
stepper %s --json
`, use, use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			client, err := do.Client()
			if err != nil {
				return oo.HandleError(err)
			}
			if err := client.Invoke(cmd.Context(), command, nil); err != nil {
				return oo.HandleError(err)
			}
			return oo.Print(map[string]string{"command": command, "status": "ok"}, done)
		},
	}

	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addReset(topLevel *cobra.Command) {
	addControl(topLevel, "reset", "reset the step counter to zero", bus.CommandResetCounter, "Counter reset.")
}

func addPet(topLevel *cobra.Command) {
	addControl(topLevel, "pet", "switch the daemon to the pet window", bus.CommandSwitchToPetWindow, "Showing the pet window.")
}

func addMain(topLevel *cobra.Command) {
	addControl(topLevel, "main", "switch the daemon back to the step card", bus.CommandSwitchToMainWindow, "Showing the main window.")
}

func addQuit(topLevel *cobra.Command) {
	addControl(topLevel, "quit", "stop the daemon", bus.CommandQuitApp, "Daemon stopping.")
}
