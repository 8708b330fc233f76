// Package mcp provides the Model Context Protocol server integration for
// stepper.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/stepper/pkg/bus"
	"tableflip.dev/stepper/pkg/store"
)

// Commander runs commands on the daemon. *bus.Client satisfies it.
type Commander interface {
	Invoke(ctx context.Context, command string, out any) error
}

// Service coordinates the daemon and history operations shared by the MCP
// tools and resources.
type Service struct {
	Commander   Commander
	Persistence store.Persistence
}

// ErrNoHistory is returned when the service has no history store.
var ErrNoHistory = errors.New("step history unavailable")

// HistorySummary is the payload of the step_history tool and resource.
type HistorySummary struct {
	Days  []store.DayTotal `json:"days"`
	Count int              `json:"count"`
	Total int64            `json:"total"`
}

// NewService constructs a Service.
func NewService(cmd Commander, p store.Persistence) *Service {
	return &Service{Commander: cmd, Persistence: p}
}

// CurrentSteps asks the daemon for its count.
func (s *Service) CurrentSteps(ctx context.Context) (int64, error) {
	var n int64
	if err := s.invoke(ctx, bus.CommandGetCurrentSteps, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Reset zeroes the daemon's counter.
func (s *Service) Reset(ctx context.Context) error {
	return s.invoke(ctx, bus.CommandResetCounter, nil)
}

// ShowPet brings the pet window to the front.
func (s *Service) ShowPet(ctx context.Context) error {
	return s.invoke(ctx, bus.CommandSwitchToPetWindow, nil)
}

// ShowMain brings the step card to the front.
func (s *Service) ShowMain(ctx context.Context) error {
	return s.invoke(ctx, bus.CommandSwitchToMainWindow, nil)
}

// OpenDevtools attaches developer tools and reports where.
func (s *Service) OpenDevtools(ctx context.Context) (bus.DevtoolsResult, error) {
	var res bus.DevtoolsResult
	if err := s.invoke(ctx, bus.CommandOpenDevtools, &res); err != nil {
		return bus.DevtoolsResult{}, err
	}
	return res, nil
}

// History returns the most recent days, newest last. A limit of zero or less
// returns everything.
func (s *Service) History(ctx context.Context, limit int) (HistorySummary, error) {
	if s.Persistence == nil {
		return HistorySummary{}, ErrNoHistory
	}
	days := s.Persistence.History(ctx)
	if limit > 0 && len(days) > limit {
		days = days[len(days)-limit:]
	}
	sum := HistorySummary{Days: days, Count: len(days)}
	for _, d := range days {
		sum.Total += d.Steps
	}
	return sum, nil
}

func (s *Service) invoke(ctx context.Context, command string, out any) error {
	if s.Commander == nil {
		return errors.New("no daemon connection")
	}
	if err := s.Commander.Invoke(ctx, command, out); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}
