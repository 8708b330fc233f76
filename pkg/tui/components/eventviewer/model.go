// Package eventviewer keeps a scrollable log of bus traffic and command
// outcomes, newest first.
package eventviewer

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/stepper/pkg/tui/theme"
)

// Level is the severity of an entry.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERR"
	}
	return "INFO"
}

// Entry is one logged line.
type Entry struct {
	At      time.Time
	Level   Level
	Source  string
	Summary string
	Detail  string
}

// Text is the summary joined with its detail.
func (e Entry) Text() string {
	if e.Detail == "" {
		return e.Summary
	}
	return e.Summary + ": " + e.Detail
}

// Model holds at most limit entries. The oldest are discarded first.
type Model struct {
	vp      viewport.Model
	entries []Entry // oldest first
	limit   int
	errors  int

	// pinned keeps the newest entry in view until the user scrolls away.
	pinned bool
	w, h   int
	styles theme.LogTheme
	now    func() time.Time
}

// New returns an empty log keeping up to limit entries, 200 when limit is
// not positive.
func New(limit int, styles theme.LogTheme) *Model {
	if limit <= 0 {
		limit = 200
	}
	return &Model{
		vp:     viewport.New(viewport.WithWidth(1), viewport.WithHeight(1)),
		limit:  limit,
		pinned: true,
		styles: styles,
		now:    time.Now,
	}
}

// Add records an entry stamped with the current time.
func (m *Model) Add(level Level, source, summary, detail string) {
	if source == "" {
		source = "ui"
	}
	m.entries = append(m.entries, Entry{At: m.now(), Level: level, Source: source, Summary: summary, Detail: detail})
	if level == LevelError {
		m.errors++
	}
	if drop := len(m.entries) - m.limit; drop > 0 {
		for _, e := range m.entries[:drop] {
			if e.Level == LevelError {
				m.errors--
			}
		}
		m.entries = append(m.entries[:0], m.entries[drop:]...)
	}
	m.render()
}

// Entries returns a copy of the log, newest first.
func (m *Model) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[len(out)-1-i] = e
	}
	return out
}

// Update scrolls the log. Scrolling down unpins it from the newest entry.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	m.pinned = m.vp.AtTop()
	return m, cmd
}

// SetSize fits the log, border included, into width x height.
func (m *Model) SetSize(width, height int) {
	width, height = max(width, 4), max(height, 3)
	if width == m.w && height == m.h {
		return
	}
	m.w, m.h = width, height
	m.vp.SetWidth(width - m.styles.Frame.GetHorizontalFrameSize())
	m.vp.SetHeight(max(1, height-m.styles.Frame.GetVerticalFrameSize()-1))
	m.render()
}

// View is empty until the log has been sized.
func (m *Model) View() string {
	if m.w == 0 {
		return ""
	}
	title := fmt.Sprintf("Event log (%d)", len(m.entries))
	if m.errors > 0 {
		title += m.styles.Error.Render(fmt.Sprintf("  %d failed", m.errors))
	}
	body := lipgloss.JoinVertical(lipgloss.Left, m.styles.Header.Render(title), m.vp.View())
	return m.styles.Frame.Width(m.w).Height(m.h).Render(body)
}

func (m *Model) render() {
	if len(m.entries) == 0 {
		m.vp.SetContent(m.styles.Time.Render("No events yet"))
		return
	}
	width := uint(max(1, m.vp.Width()))
	lines := make([]string, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		lines = append(lines, truncate.StringWithTail(m.line(m.entries[i]), width, "…"))
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.pinned {
		m.vp.GotoTop()
	}
}

func (m *Model) line(e Entry) string {
	text := m.styles.Info
	switch e.Level {
	case LevelWarn:
		text = m.styles.Warn
	case LevelError:
		text = m.styles.Error
	}
	return m.styles.Time.Render(e.At.Format("15:04:05")) + " " +
		text.Render(fmt.Sprintf("%-4s", e.Level)) + " " +
		m.styles.Source.Render(e.Source) + " " +
		text.Render(e.Text())
}
