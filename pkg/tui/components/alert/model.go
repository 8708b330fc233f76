// Package alert renders a blocking message box that must be dismissed.
package alert

import (
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/wordwrap"

	"tableflip.dev/stepper/pkg/tui/theme"
)

// Kind distinguishes informational alerts from failures.
type Kind int

const (
	Info Kind = iota
	Error
)

// Model is a single alert.
type Model struct {
	Kind  Kind
	Title string
	Body  string

	width  int
	styles theme.ModalTheme
}

// New constructs an alert.
func New(kind Kind, title, body string, styles theme.ModalTheme) *Model {
	return &Model{Kind: kind, Title: title, Body: body, width: 40, styles: styles}
}

// SetSize bounds the alert to the screen; the box never exceeds 60 columns.
func (m *Model) SetSize(width, _ int) {
	w := width - m.styles.Frame.GetHorizontalFrameSize() - 4
	if w > 60 {
		w = 60
	}
	if w < 16 {
		w = 16
	}
	m.width = w
}

// View renders the box.
func (m *Model) View() string {
	title := m.styles.Title
	if m.Kind == Error {
		title = title.Foreground(lipgloss.Color("#FF5F5F"))
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		title.Render(m.Title),
		"",
		m.styles.Body.Render(wordwrap.String(m.Body, m.width)),
		"",
		m.styles.Hint.Render("enter to dismiss"),
	)
	return m.styles.Frame.Render(body)
}
