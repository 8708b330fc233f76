package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tableflip.dev/stepper/pkg/bus"
	"tableflip.dev/stepper/pkg/commands/options"
)

func addDevtools(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "devtools",
		Short: "open developer tools on the daemon's visible window",
		Example: `
stepper devtools
stepper devtools --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			client, err := do.Client()
			if err != nil {
				return oo.HandleError(err)
			}
			var res bus.DevtoolsResult
			if err := client.Invoke(cmd.Context(), bus.CommandOpenDevtools, &res); err != nil {
				return oo.HandleError(err)
			}
			return oo.Print(res, fmt.Sprintf("Developer tools attached to the %s window.\nInspect state at %s", res.Window, res.URL))
		},
	}

	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
