// Package info prints where stepper reads its config and stores history.
package info

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/stepper/pkg/store"
)

type Info struct {
	Config      *store.Config
	Persistence store.Persistence
	Out         io.Writer
}

func (n *Info) Do(ctx context.Context) error {
	out := n.Out
	if out == nil {
		out = color.Output
	}

	if override := os.Getenv("STEPPER_CONFIG_PATH"); override != "" {
		_, _ = fmt.Fprintln(out, "STEPPER_CONFIG_PATH found on env, using", override)
	} else {
		_, _ = fmt.Fprintln(out, "STEPPER_CONFIG_PATH env var not set")
	}

	if n.Config == nil {
		var err error
		n.Config, err = store.LoadConfig()
		if err != nil {
			return err
		}
	}

	file := n.Config.File
	if file == "" {
		file = color.New(color.Faint).Sprint("none, using defaults")
	}

	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Config file"), file)
	tbl.AddRow(bold.Sprint("History path"), n.Config.BasePath())
	tbl.AddRow(bold.Sprint("Daemon address"), n.Config.Addr)
	tbl.AddRow(bold.Sprint("Pointer"), n.Config.Pointer)
	tbl.AddRow(bold.Sprint("Pixels per step"), n.Config.PixelsPerStep)
	tbl.AddRow(bold.Sprint("Poll interval"), n.Config.PollInterval)
	tbl.AddRow(bold.Sprint("Pet window"), n.Config.PetWindow)
	_, _ = fmt.Fprintln(out, tbl)

	if n.Persistence == nil {
		return fmt.Errorf("failed to create persistence object")
	}

	days := n.Persistence.History(ctx)
	if len(days) == 0 {
		_, _ = fmt.Fprintf(out, "Days recorded: %s\n", "none")
		return nil
	}
	_, _ = fmt.Fprintf(out, "Days recorded: %d (%s to %s)\n", len(days), days[0].Day, days[len(days)-1].Day)
	return nil
}
