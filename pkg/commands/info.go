package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/stepper/pkg/runner/info"
	"tableflip.dev/stepper/pkg/store"
)

func addInfo(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Details about the config in use and where history is stored.",
		Example: `
stepper info
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, err := store.LoadConfig()
			if err != nil {
				return err
			}
			p, err := store.Load(cfg)
			if err != nil {
				return err
			}
			s := info.Info{
				Config:      cfg,
				Persistence: p,
			}
			err = s.Do(cmd.Context())
			return oo.HandleError(err)
		},
	}

	topLevel.AddCommand(cmd)
}
