// Package status reports what a running daemon is doing.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"gopkg.in/yaml.v3"

	"tableflip.dev/stepper/pkg/bus"
	"tableflip.dev/stepper/pkg/counter"
	"tableflip.dev/stepper/pkg/runner/daemon"
)

// Daemon is the part of the bus client status needs.
type Daemon interface {
	Invoke(ctx context.Context, command string, out any) error
	Fetch(ctx context.Context, path string, out any) error
}

// Report is the machine readable status.
type Report struct {
	Addr     string        `json:"addr" yaml:"addr"`
	Steps    int64         `json:"steps" yaml:"steps"`
	Progress float64       `json:"progress" yaml:"progress"`
	Distance string        `json:"distance" yaml:"distance"`
	Speed    float64       `json:"speed" yaml:"speed"`
	State    *daemon.State `json:"state,omitempty" yaml:"state,omitempty"`
}

// Status prints a Report in the requested format.
type Status struct {
	Daemon Daemon
	Addr   string
	// Output is one of "", "json" or "yaml".
	Output string
	Out    io.Writer
}

// Do fetches and prints the status.
func (s *Status) Do(ctx context.Context) error {
	r, err := s.Fetch(ctx)
	if err != nil {
		return err
	}
	out := s.Out
	if out == nil {
		out = color.Output
	}

	switch s.Output {
	case "json":
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(b))
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "":
		_, _ = fmt.Fprintln(out, table(r))
	default:
		return fmt.Errorf("unknown output format %q", s.Output)
	}
	return nil
}

// Fetch collects the step count and the daemon's debug state.
func (s *Status) Fetch(ctx context.Context) (*Report, error) {
	if s.Daemon == nil {
		return nil, fmt.Errorf("status requires a daemon connection")
	}
	var steps int64
	if err := s.Daemon.Invoke(ctx, bus.CommandGetCurrentSteps, &steps); err != nil {
		return nil, err
	}
	r := &Report{
		Addr:     s.Addr,
		Steps:    steps,
		Progress: counter.ProgressPercent(steps),
		Distance: counter.FormatDistance(steps) + "m",
		Speed:    counter.SpeedMultiplier(steps),
	}
	var st daemon.State
	if err := s.Daemon.Fetch(ctx, "/debug/state", &st); err == nil {
		r.State = &st
	}
	return r, nil
}

func table(r *Report) *uitable.Table {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Daemon"), r.Addr)
	tbl.AddRow(bold.Sprint("Steps"), r.Steps)
	tbl.AddRow(bold.Sprint("Progress"), fmt.Sprintf("%.1f%%", r.Progress))
	tbl.AddRow(bold.Sprint("Distance"), r.Distance)
	tbl.AddRow(bold.Sprint("Speed"), fmt.Sprintf("%.1fx", r.Speed))
	if r.State == nil {
		tbl.AddRow(bold.Sprint("State"), faint.Sprint("unavailable"))
		return tbl
	}
	if r.State.Tracker.PermissionError {
		tbl.AddRow(bold.Sprint("Pointer"), color.RedString("unreadable"))
	}
	windows := make([]string, 0, len(r.State.Windows))
	for _, w := range r.State.Windows {
		name := string(w.Name)
		if w.Visible {
			name = color.GreenString(name + "*")
		}
		windows = append(windows, name)
	}
	tbl.AddRow(bold.Sprint("Windows"), strings.Join(windows, " "))
	tbl.AddRow(bold.Sprint("Subscribers"), r.State.Subscribers)
	if r.State.Today != nil {
		tbl.AddRow(bold.Sprint("Today"), fmt.Sprintf("%d (%s)", r.State.Today.Steps, r.State.Today.Day))
	}
	return tbl
}
