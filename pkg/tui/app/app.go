// Package app is the Bubble Tea step widget. It subscribes to step_update
// events, derives the card figures and dispatches commands to the daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"tableflip.dev/stepper/pkg/bus"
	"tableflip.dev/stepper/pkg/counter"
	"tableflip.dev/stepper/pkg/logging"
	"tableflip.dev/stepper/pkg/tui/components/alert"
	"tableflip.dev/stepper/pkg/tui/components/card"
	"tableflip.dev/stepper/pkg/tui/components/eventviewer"
	"tableflip.dev/stepper/pkg/tui/components/help"
	"tableflip.dev/stepper/pkg/tui/components/pet"
	"tableflip.dev/stepper/pkg/tui/theme"
)

const (
	// PulseDuration is how long the count stays highlighted after it grows.
	PulseDuration = 300 * time.Millisecond
	// ResubscribeDelay is the pause before re-opening a dropped subscription.
	ResubscribeDelay = time.Second
	// CommandTimeout bounds a single command round trip.
	CommandTimeout = 5 * time.Second
)

// Backend is the daemon as seen by the widget. *bus.Client satisfies it.
type Backend interface {
	Invoke(ctx context.Context, command string, out any) error
	Listen(ctx context.Context, events ...string) (<-chan bus.Event, error)
}

// Options configures a Model.
type Options struct {
	Backend Backend
	Log     *slog.Logger
	// DarkBackground selects the help colours.
	DarkBackground bool
}

type viewMode int

const (
	viewCard viewMode = iota
	viewPet
)

// Model is the widget state. Update is the only writer of the counter
// state, so messages apply strictly in arrival order.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	backend Backend
	log     *slog.Logger
	theme   theme.Theme

	state     counter.State
	pulseSeq  int
	lastSpeed float64

	mode      viewMode
	connected bool
	showLog   bool
	showHelp  bool

	card   *card.Model
	pet    *pet.Model
	events *eventviewer.Model
	help   *help.Model
	alert  *alert.Model

	subCh     <-chan bus.Event
	subCancel context.CancelFunc

	width  int
	height int
}

// New constructs the widget. The subscription opens in Init and is released
// when the widget quits or ctx ends.
func New(ctx context.Context, opts Options) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	th := theme.Default()
	m := &Model{
		ctx:       ctx,
		cancel:    cancel,
		backend:   opts.Backend,
		log:       log,
		theme:     th,
		lastSpeed: counter.SpeedMultiplier(0),
		card:      card.New(th.Card),
		pet:       pet.New(th.Pet),
		events:    eventviewer.New(200, th.Log),
		help:      help.New(60, 20, opts.DarkBackground),
	}
	m.refresh()
	return m
}

// Init opens the subscription and starts the pet animation.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(startSubscribeCmd(m.ctx, m.backend), m.pet.Init())
}

// State returns a copy of the counter state.
func (m *Model) State() counter.State {
	return m.state
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.applySizes()

	case tea.KeyPressMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case subscribedMsg:
		if msg.err != nil {
			m.connected = false
			m.card.SetConnected(false)
			m.log.Warn("subscribe failed", "err", msg.err)
			m.events.Add(eventviewer.LevelWarn, "bus", "subscribe failed", msg.err.Error())
			cmds = append(cmds, resubscribeAfter(ResubscribeDelay))
			break
		}
		m.stopSubscription()
		m.subCh = msg.ch
		m.subCancel = msg.cancel
		m.connected = true
		m.card.SetConnected(true)
		m.log.Info("subscribed", "events", []string{bus.EventStepUpdate, bus.EventWindowChanged})
		m.events.Add(eventviewer.LevelInfo, "bus", "subscribed", "")
		if cmd := m.waitForEvent(); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case busEventMsg:
		if cmd := m.handleEvent(msg.event); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if cmd := m.waitForEvent(); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case subscriptionClosedMsg:
		m.stopSubscription()
		m.connected = false
		m.card.SetConnected(false)
		if m.ctx.Err() == nil {
			m.log.Warn("subscription dropped")
			m.events.Add(eventviewer.LevelWarn, "bus", "subscription dropped", "reconnecting")
			cmds = append(cmds, resubscribeAfter(ResubscribeDelay))
		}

	case resubscribeMsg:
		if m.subCh == nil && m.ctx.Err() == nil {
			cmds = append(cmds, startSubscribeCmd(m.ctx, m.backend))
		}

	case pulseClearMsg:
		if msg.seq == m.pulseSeq {
			m.state.ClearPulse()
			m.refresh()
		}

	case commandResultMsg:
		cmds = append(cmds, m.handleResult(msg))

	case pet.FrameMsg:
		var cmd tea.Cmd
		m.pet, cmd = m.pet.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		m.stop()
		return tea.Quit
	}

	if m.alert != nil {
		switch key {
		case "enter", "esc", "space", " ":
			m.alert = nil
		}
		return nil
	}

	if m.showHelp {
		switch key {
		case "?", "esc", "q":
			m.showHelp = false
			return nil
		}
		var cmd tea.Cmd
		m.help, cmd = m.help.Update(msg)
		return cmd
	}

	switch key {
	case "q":
		m.stop()
		return tea.Quit
	case "Q":
		return m.invoke(bus.CommandQuitApp)
	case "r":
		return m.invoke(bus.CommandResetCounter)
	case "d":
		return m.invoke(bus.CommandOpenDevtools)
	case "p":
		return m.invoke(bus.CommandSwitchToPetWindow)
	case "m":
		return m.invoke(bus.CommandSwitchToMainWindow)
	case "l":
		m.showLog = !m.showLog
		m.applySizes()
	case "?":
		m.showHelp = true
	case "esc":
		m.showLog = false
		m.applySizes()
	case "up", "down", "pgup", "pgdown":
		if m.showLog {
			var cmd tea.Cmd
			m.events, cmd = m.events.Update(msg)
			return cmd
		}
	}
	return nil
}

func (m *Model) handleEvent(ev bus.Event) tea.Cmd {
	switch ev.Name {
	case bus.EventStepUpdate:
		v, err := bus.DecodeCount(ev.Payload)
		if err != nil {
			m.log.Warn("dropping step update", "payload", string(ev.Payload), "err", err)
			m.events.Add(eventviewer.LevelWarn, "bus", "bad step_update", err.Error())
			return nil
		}
		increased := m.state.Apply(v)
		m.refresh()
		if !increased {
			return nil
		}
		m.pulseSeq++
		seq := m.pulseSeq
		return tea.Tick(PulseDuration, func(time.Time) tea.Msg {
			return pulseClearMsg{seq: seq}
		})

	case bus.EventWindowChanged:
		w, err := bus.DecodeWindow(ev.Payload)
		if err != nil {
			m.log.Warn("dropping window change", "err", err)
			return nil
		}
		m.followWindow(w)
		m.events.Add(eventviewer.LevelInfo, "shell", "window changed", w)
	}
	return nil
}

func (m *Model) followWindow(w string) {
	switch w {
	case "pet":
		m.mode = viewPet
	case "main":
		m.mode = viewCard
	}
}

// refresh pushes the derived figures into the views.
func (m *Model) refresh() {
	stats := counter.Derive(m.state)
	m.card.SetStats(stats)
	m.pet.SetSpeed(stats.Speed)
	m.pet.SetSteps(card.FormatCount(stats.Count) + " steps")
	if stats.Speed != m.lastSpeed {
		m.log.Debug("pet speed changed", "speed", fmt.Sprintf("%.1fx", stats.Speed), "steps", stats.Count)
		m.lastSpeed = stats.Speed
	}
}

func (m *Model) invoke(command string) tea.Cmd {
	if m.backend == nil {
		return nil
	}
	ctx, backend := m.ctx, m.backend
	m.log.Debug("sending command", "command", command)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
		defer cancel()
		res := commandResultMsg{command: command}
		var out any
		if command == bus.CommandOpenDevtools {
			out = &res.devtools
		}
		res.err = backend.Invoke(ctx, command, out)
		return res
	}
}

func (m *Model) handleResult(msg commandResultMsg) tea.Cmd {
	if msg.err != nil {
		m.log.Warn("command failed", "command", msg.command, "err", msg.err)
		m.events.Add(eventviewer.LevelError, msg.command, "command failed", failureDetail(msg.err))
	} else {
		m.log.Info("command sent", "command", msg.command)
		m.events.Add(eventviewer.LevelInfo, msg.command, "command sent", "")
	}

	switch msg.command {
	case bus.CommandResetCounter:
		if msg.err != nil {
			return nil
		}
		m.state.Reset()
		// Invalidate any pending pulse clear.
		m.pulseSeq++
		m.refresh()

	case bus.CommandOpenDevtools:
		if msg.err != nil {
			m.showAlert(alert.Error, "Developer tools", "Failed to open developer tools: "+failureDetail(msg.err))
			return nil
		}
		body := "Developer tools opened"
		if msg.devtools.Window != "" {
			body += " on the " + msg.devtools.Window + " window"
		}
		body += "."
		if msg.devtools.URL != "" {
			body += "\n" + msg.devtools.URL
		}
		m.showAlert(alert.Info, "Developer tools", body)

	case bus.CommandSwitchToPetWindow:
		if msg.err != nil {
			m.showAlert(alert.Error, "Pet window", "Failed to show the pet window: "+failureDetail(msg.err))
			return nil
		}
		m.mode = viewPet

	case bus.CommandSwitchToMainWindow:
		if msg.err != nil {
			m.showAlert(alert.Error, "Main window", "Failed to show the main window: "+failureDetail(msg.err))
			return nil
		}
		m.mode = viewCard

	case bus.CommandQuitApp:
		if msg.err != nil {
			m.showAlert(alert.Error, "Quit", "Failed to stop stepper: "+failureDetail(msg.err))
			return nil
		}
		m.stop()
		return tea.Quit
	}
	return nil
}

func (m *Model) showAlert(kind alert.Kind, title, body string) {
	m.alert = alert.New(kind, title, body, m.theme.Modal)
	m.alert.SetSize(m.width, m.height)
}

// failureDetail prefers the daemon's own message over the transport wrapping.
func failureDetail(err error) string {
	var cmdErr *bus.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Message
	}
	return err.Error()
}

func (m *Model) stop() {
	m.stopSubscription()
	m.cancel()
}

func (m *Model) applySizes() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.card.SetSize(m.width, m.height)
	m.help.SetSize(m.width, m.height)
	if m.alert != nil {
		m.alert.SetSize(m.width, m.height)
	}
	logHeight := m.height / 3
	if logHeight < 5 {
		logHeight = 5
	}
	m.events.SetSize(m.width, logHeight)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.alert != nil {
		return m.place(m.alert.View())
	}
	if m.showHelp {
		return m.help.View()
	}

	var body string
	switch m.mode {
	case viewPet:
		body = m.pet.View()
	default:
		body = m.card.View()
	}
	sections := []string{body}
	if m.showLog {
		sections = append(sections, m.events.View())
	}
	sections = append(sections, m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) place(s string) string {
	if m.width == 0 || m.height == 0 {
		return s
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

func (m *Model) footer() string {
	parts := make([]string, 0, len(help.Bindings))
	for _, b := range help.Bindings {
		if (b.Key == "p" && m.mode == viewPet) || (b.Key == "m" && m.mode == viewCard) {
			continue
		}
		parts = append(parts, m.theme.Footer.Key.Render(b.Key)+" "+m.theme.Footer.Description.Render(b.Short))
	}
	return strings.Join(parts, m.theme.Footer.Status.Render(" • "))
}

// Run starts the widget in the alternate screen and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
