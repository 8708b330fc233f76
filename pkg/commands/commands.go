package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/stepper/pkg/commands/options"
)

var (
	oo = &options.OutputOptions{}
	do = &options.DaemonOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "stepper",
		Short: options.Wrap80("Count mouse travel as steps, with a terminal widget and a pet that runs faster the more you move."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	options.AddDaemonArgs(cmd, do)

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addDaemon(topLevel)
	addUI(topLevel)
	addStatus(topLevel)
	addReset(topLevel)
	addPet(topLevel)
	addMain(topLevel)
	addDevtools(topLevel)
	addQuit(topLevel)
	addHistory(topLevel)
	addInfo(topLevel)
	addMCP(topLevel)
	addCompletion(topLevel)
	addVersion(topLevel)
}
