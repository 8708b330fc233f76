// Package help shows the widget's key reference rendered with Glamour.
package help

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss/v2"

	"tableflip.dev/stepper/pkg/tui/theme"
)

//go:embed help.md
var page string

// Binding is one key of the widget. Short labels the footer hint and Long
// the help table.
type Binding struct {
	Key   string
	Short string
	Long  string
}

// Bindings lists the widget keys in display order.
var Bindings = []Binding{
	{Key: "r", Short: "reset", Long: "reset the counter"},
	{Key: "p", Short: "pet", Long: "switch to the pet window"},
	{Key: "m", Short: "card", Long: "switch back to the step card"},
	{Key: "d", Short: "devtools", Long: "open developer tools"},
	{Key: "l", Short: "log", Long: "show or hide the event log"},
	{Key: "?", Short: "help", Long: "show or hide this help"},
	{Key: "q", Short: "quit", Long: "quit the widget (the daemon keeps counting)"},
	{Key: "Q", Short: "stop", Long: "stop stepper, daemon included"},
}

// Markdown is the help page with the key table filled in.
func Markdown() string {
	var b strings.Builder
	b.WriteString("| Key | Action |\n| --- | --- |\n")
	for _, k := range Bindings {
		fmt.Fprintf(&b, "| `%s` | %s |\n", k.Key, k.Long)
	}
	return strings.ReplaceAll(strings.TrimSpace(page), "{{keys}}", strings.TrimSpace(b.String()))
}

// Model is the scrollable help overlay.
type Model struct {
	vp    viewport.Model
	frame lipgloss.Style
	style string
	w, h  int
	wrap  int
	err   error
}

// New sizes the overlay; dark picks the Glamour style for dark backgrounds.
func New(width, height int, dark bool) *Model {
	style := "light"
	if dark {
		style = "dark"
	}
	m := &Model{
		vp: viewport.New(viewport.WithWidth(1), viewport.WithHeight(1)),
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(theme.GradientStart)),
		style: style,
	}
	m.vp.MouseWheelEnabled = true
	m.SetSize(width, height)
	return m
}

// Update scrolls the page.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// SetSize clamps to at least 32x8 and re-renders when the wrap width
// changes.
func (m *Model) SetSize(width, height int) {
	m.w, m.h = max(width, 32), max(height, 8)
	m.vp.SetHeight(max(m.h-m.frame.GetVerticalFrameSize(), 1))
	inner := max(m.w-m.frame.GetHorizontalFrameSize(), 1)
	m.vp.SetWidth(inner)
	if inner != m.wrap {
		m.wrap = inner
		m.render()
	}
}

// View draws the framed page.
func (m *Model) View() string {
	return m.frame.Width(m.w).Height(m.h).Render(m.vp.View())
}

func (m *Model) render() {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(max(m.wrap-2, 10)),
	)
	var out string
	if err == nil {
		out, err = r.Render(Markdown())
	}
	m.err = err
	if err != nil {
		out = "help unavailable: " + err.Error()
	}
	m.vp.SetContent(out)
	m.vp.GotoTop()
}
