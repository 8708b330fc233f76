// Package card renders the main step card: the count, the progress bar to
// the next thousand, the distance and delta tiles and the status chip.
package card

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tableflip.dev/stepper/pkg/counter"
	"tableflip.dev/stepper/pkg/tui/theme"
)

const (
	minBarWidth = 10
	maxBarWidth = 48
)

// Status chip labels.
const (
	ChipListening = "● listening"
	ChipWaiting   = "waiting for mouse movement..."
)

var printer = message.NewPrinter(language.English)

// Model is a passive view over counter.Stats.
type Model struct {
	stats     counter.Stats
	connected bool
	width     int
	styles    theme.CardTheme
	gradient  []string
}

// New constructs a card with the given styles.
func New(styles theme.CardTheme) *Model {
	m := &Model{styles: styles}
	m.SetSize(40, 0)
	return m
}

// SetStats replaces the figures shown on the card.
func (m *Model) SetStats(s counter.Stats) {
	m.stats = s
}

// SetConnected toggles the offline banner.
func (m *Model) SetConnected(ok bool) {
	m.connected = ok
}

// SetSize fits the card to the terminal width. Height is ignored; the card
// is always its natural height.
func (m *Model) SetSize(width, _ int) {
	bar := width - m.styles.Frame.GetHorizontalFrameSize()
	if bar < minBarWidth {
		bar = minBarWidth
	}
	if bar > maxBarWidth {
		bar = maxBarWidth
	}
	if bar == m.width {
		return
	}
	m.width = bar
	m.gradient = theme.Gradient(bar)
}

// View renders the card.
func (m *Model) View() string {
	s := m.stats
	countStyle := m.styles.Count
	if s.Pulse {
		countStyle = m.styles.Pulse
	}

	progressHeader := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Caption.Render("to next 1,000"),
		strings.Repeat(" ", max(1, m.width-lipgloss.Width("to next 1,000")-4)),
		m.styles.Caption.Render(fmt.Sprintf("%3.0f%%", s.Progress)),
	)

	rows := []string{
		m.styles.Title.Render("Mouse Steps"),
		"",
		countStyle.Render(" " + FormatCount(s.Count) + " "),
		m.styles.Caption.Render("steps"),
		"",
		progressHeader,
		m.bar(s.Progress),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			m.tile(s.Distance+"m", "distance"),
			" ",
			m.tile(s.Delta, "delta"),
		),
		"",
		m.chip(),
	}
	if !m.connected {
		rows = append(rows, m.styles.Offline.Render("offline: waiting for the daemon"))
	}
	return m.styles.Frame.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) bar(percent float64) string {
	filled := int(math.Round(percent / 100 * float64(m.width)))
	if filled > m.width {
		filled = m.width
	}
	var b strings.Builder
	for i := 0; i < m.width; i++ {
		if i < filled {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(m.gradient[i])).Render("█"))
			continue
		}
		b.WriteString(m.styles.BarEmpty.Render("░"))
	}
	return b.String()
}

func (m *Model) tile(value, label string) string {
	inner := max(10, (m.width-5)/2)
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.StatValue.Render(value),
		m.styles.StatLabel.Render(label),
	)
	return m.styles.StatFrame.Width(inner).Render(body)
}

func (m *Model) chip() string {
	if m.stats.Count > 0 {
		return m.styles.ChipLive.Render(ChipListening)
	}
	return m.styles.ChipIdle.Render(ChipWaiting)
}

// FormatCount renders n with thousands separators.
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}
