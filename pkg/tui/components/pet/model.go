// Package pet renders the compact pet companion. The dog trots faster as the
// step count grows.
package pet

import (
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"tableflip.dev/stepper/pkg/tui/theme"
)

// BaseFrameInterval is the frame time at a speed multiplier of 1.
const BaseFrameInterval = 400 * time.Millisecond

var frames = []string{
	"  / \\__\n (    @\\___\n /         O\n/   (_____/\n/_____/   U",
	"  / \\__\n (    @\\___\n /         O\n/   (_____/\n /____/  U ",
}

// FrameMsg advances the animation of the pet with the matching id.
type FrameMsg struct {
	id int64
}

var lastID atomic.Int64

// Model animates the pet.
type Model struct {
	id     int64
	frame  int
	speed  float64
	steps  string
	styles theme.PetTheme
}

// New constructs a pet at speed 1.
func New(styles theme.PetTheme) *Model {
	return &Model{id: lastID.Add(1), speed: 1, styles: styles}
}

// Init starts the animation.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

// Update advances the frame on its own FrameMsg and re-arms the timer.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	fm, ok := msg.(FrameMsg)
	if !ok || fm.id != m.id {
		return m, nil
	}
	m.frame = (m.frame + 1) % len(frames)
	return m, m.tick()
}

// SetSpeed sets the animation speed multiplier; values below 1 are raised
// to 1.
func (m *Model) SetSpeed(speed float64) {
	if speed < 1 {
		speed = 1
	}
	m.speed = speed
}

// Speed reports the current multiplier.
func (m *Model) Speed() float64 {
	return m.speed
}

// SetSteps sets the caption under the sprite.
func (m *Model) SetSteps(label string) {
	m.steps = label
}

// FrameInterval is the delay between frames at the current speed.
func (m *Model) FrameInterval() time.Duration {
	return time.Duration(float64(BaseFrameInterval) / m.speed)
}

func (m *Model) tick() tea.Cmd {
	id := m.id
	return tea.Tick(m.FrameInterval(), func(time.Time) tea.Msg {
		return FrameMsg{id: id}
	})
}

// View renders the pet with its step caption.
func (m *Model) View() string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		m.styles.Sprite.Render(frames[m.frame]),
		"",
		m.steps,
		m.styles.Speed.Render(fmt.Sprintf("%.1fx", m.speed)),
	)
	return m.styles.Frame.Render(body)
}
