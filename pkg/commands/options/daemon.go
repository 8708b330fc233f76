package options

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tableflip.dev/stepper/pkg/bus"
	"tableflip.dev/stepper/pkg/store"
)

// DaemonOptions locate the daemon.
type DaemonOptions struct {
	Addr string
}

// AddDaemonArgs registers --addr on every subcommand and binds it to the
// addr config key, so the flag wins over STEPPER_ADDR and the config file.
func AddDaemonArgs(cmd *cobra.Command, o *DaemonOptions) {
	cmd.PersistentFlags().StringVar(&o.Addr, "addr", "",
		"Daemon address as host:port. Defaults to the addr config key.")
	_ = viper.BindPFlag(store.KeyAddr, cmd.PersistentFlags().Lookup("addr"))
}

// Client resolves the daemon address from --addr, STEPPER_ADDR or the config
// file, in that order.
func (o *DaemonOptions) Client() (*bus.Client, error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	return bus.NewClient(cfg.Addr)
}
