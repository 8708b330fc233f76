package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/stepper/pkg/bus"
)

type subscribedMsg struct {
	ch     <-chan bus.Event
	cancel context.CancelFunc
	err    error
}

type busEventMsg struct {
	event bus.Event
}

type subscriptionClosedMsg struct{}

type resubscribeMsg struct{}

type pulseClearMsg struct {
	seq int
}

type commandResultMsg struct {
	command  string
	devtools bus.DevtoolsResult
	err      error
}

func startSubscribeCmd(parent context.Context, backend Backend) tea.Cmd {
	if backend == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(parent)
		ch, err := backend.Listen(ctx, bus.EventStepUpdate, bus.EventWindowChanged)
		if err != nil {
			cancel()
			return subscribedMsg{err: err}
		}
		return subscribedMsg{ch: ch, cancel: cancel}
	}
}

func resubscribeAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return resubscribeMsg{} })
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.subCh == nil {
		return nil
	}
	ch := m.subCh
	return func() tea.Msg {
		if ev, ok := <-ch; ok {
			return busEventMsg{event: ev}
		}
		return subscriptionClosedMsg{}
	}
}

func (m *Model) stopSubscription() {
	if m.subCancel != nil {
		m.subCancel()
		m.subCancel = nil
	}
	m.subCh = nil
}
