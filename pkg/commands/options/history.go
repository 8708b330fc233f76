package options

import (
	"github.com/spf13/cobra"
)

// HistoryOptions
type HistoryOptions struct {
	Days  int
	Since string
	Watch bool
}

func AddHistoryArgs(cmd *cobra.Command, o *HistoryOptions) {
	cmd.Flags().IntVarP(&o.Days, "days", "n", 0,
		"Only show the most recent days; 0 shows all.")
	cmd.Flags().StringVar(&o.Since, "since", "",
		"Only show days inside this window ending today, such as 3d or 2w.")
	cmd.Flags().BoolVarP(&o.Watch, "watch", "w", false,
		"Keep running and reprint when the history changes.")
}
