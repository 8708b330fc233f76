package commands

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tableflip.dev/stepper/pkg/commands/options"
	"tableflip.dev/stepper/pkg/logging"
	"tableflip.dev/stepper/pkg/pointer"
	"tableflip.dev/stepper/pkg/pointer/robot"
	"tableflip.dev/stepper/pkg/runner/daemon"
	"tableflip.dev/stepper/pkg/store"
	"tableflip.dev/stepper/pkg/tracker"
)

const logRingSize = 256

func addDaemon(topLevel *cobra.Command) {
	lo := &options.LogOptions{}
	simulate := false

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "track the mouse and serve step updates",
		Long: options.Wrap80(`Run the step tracker. It polls the cursor, turns travelled pixels into
steps, records daily totals and serves the step_update event and the widget
commands on the configured address.`),
		Example: `
stepper daemon
stepper daemon --simulate --addr 127.0.0.1:7500
STEPPER_TRACKER_PIXELS_PER_STEP=50 stepper daemon
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, err := store.LoadConfig()
			if err != nil {
				return err
			}
			if simulate {
				cfg.Pointer = store.PointerSimulated
			}

			var out io.Writer = os.Stderr
			if cfg.LogFile != "" {
				f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			log, ring, err := logging.New(logging.Options{Level: cfg.LogLevel, Output: out, RingSize: logRingSize})
			if err != nil {
				return err
			}

			p, err := store.Load(cfg)
			if err != nil {
				return err
			}

			d := &daemon.Daemon{
				Config:  cfg,
				Locator: locator(cfg.Pointer),
				History: p,
				Log:     log,
				Ring:    ring,
				OnListening: func(a net.Addr) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stepper daemon listening on %s\n", a)
				},
			}
			if cfg.File != "" {
				d.Viper = viper.GetViper()
			}
			return d.Do(cmd.Context())
		},
	}

	options.AddLogArgs(cmd, lo)
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Use a wandering simulated cursor instead of the desktop pointer.")

	topLevel.AddCommand(cmd)
}

func locator(kind string) tracker.Locator {
	if kind == store.PointerSimulated {
		return pointer.NewWander(time.Now().UnixNano(), 0, 0, 0)
	}
	return robot.Locator{}
}
