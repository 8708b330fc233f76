package options

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tableflip.dev/stepper/pkg/store"
)

// LogOptions
type LogOptions struct {
	Level string
	File  string
}

func AddLogArgs(cmd *cobra.Command, o *LogOptions) {
	cmd.Flags().StringVar(&o.Level, "log-level", "",
		"One of debug, info, warn or error.")
	cmd.Flags().StringVar(&o.File, "log-file", "",
		"Write logs to this file instead of stderr.")
	_ = viper.BindPFlag(store.KeyLogLevel, cmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag(store.KeyLogFile, cmd.Flags().Lookup("log-file"))
}
