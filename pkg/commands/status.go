package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/stepper/pkg/commands/options"
	"tableflip.dev/stepper/pkg/runner/status"
)

func addStatus(topLevel *cobra.Command) {
	so := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "show the running daemon's step count and windows",
		Example: `
stepper status
stepper status -o yaml
stepper status --json
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			client, err := do.Client()
			if err != nil {
				return so.HandleError(err)
			}
			s := status.Status{
				Daemon: client,
				Addr:   client.Addr(),
				Output: so.Output(),
			}
			return so.HandleError(s.Do(cmd.Context()))
		},
	}

	options.AddFormatArg(cmd, so)

	topLevel.AddCommand(cmd)
}
