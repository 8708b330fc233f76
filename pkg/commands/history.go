package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/stepper/pkg/commands/options"
	"tableflip.dev/stepper/pkg/runner/history"
	"tableflip.dev/stepper/pkg/store"
	"tableflip.dev/stepper/pkg/timeutil"
)

func addHistory(topLevel *cobra.Command) {
	ho := &options.HistoryOptions{}
	hoo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "list recorded steps per day",
		Example: `
stepper history
stepper history --days 7
stepper history --since 2w --json
stepper history --watch
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			p, err := store.Load(nil)
			if err != nil {
				return hoo.HandleError(err)
			}
			since := 0
			if ho.Since != "" {
				if since, _, err = timeutil.ParseDays(ho.Since); err != nil {
					return hoo.HandleError(err)
				}
			}
			h := history.History{
				Persistence: p,
				Days:        ho.Days,
				Since:       since,
				Output:      hoo.Output(),
				Watch:       ho.Watch,
			}
			return hoo.HandleError(h.Do(cmd.Context()))
		},
	}

	options.AddHistoryArgs(cmd, ho)
	options.AddOutputArg(cmd, hoo)

	topLevel.AddCommand(cmd)
}
