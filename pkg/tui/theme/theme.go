package theme

import (
	"github.com/charmbracelet/lipgloss/v2"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Brand colours of the step card.
const (
	GradientStart = "#667eea"
	GradientEnd   = "#764ba2"
)

// Theme centralizes Lip Gloss styles for the Bubble Tea UI.
type Theme struct {
	Card   CardTheme
	Footer FooterTheme
	Modal  ModalTheme
	Pet    PetTheme
	Log    LogTheme
}

// CardTheme styles the main step card.
type CardTheme struct {
	Frame     lipgloss.Style
	Title     lipgloss.Style
	Count     lipgloss.Style
	Pulse     lipgloss.Style
	Caption   lipgloss.Style
	BarEmpty  lipgloss.Style
	StatValue lipgloss.Style
	StatLabel lipgloss.Style
	StatFrame lipgloss.Style
	ChipIdle  lipgloss.Style
	ChipLive  lipgloss.Style
	Offline   lipgloss.Style
}

// FooterTheme groups styles used by the key hint bar.
type FooterTheme struct {
	Key         lipgloss.Style
	Description lipgloss.Style
	Status      lipgloss.Style
}

// ModalTheme styles centered alerts.
type ModalTheme struct {
	Frame lipgloss.Style
	Title lipgloss.Style
	Body  lipgloss.Style
	Hint  lipgloss.Style
}

// LogTheme styles the event log panel.
type LogTheme struct {
	Frame  lipgloss.Style
	Header lipgloss.Style
	Time   lipgloss.Style
	Source lipgloss.Style
	Info   lipgloss.Style
	Warn   lipgloss.Style
	Error  lipgloss.Style
}

// PetTheme styles the pet companion view.
type PetTheme struct {
	Frame  lipgloss.Style
	Sprite lipgloss.Style
	Speed  lipgloss.Style
}

// Default returns the built-in theme used across the UI.
func Default() Theme {
	accent := lipgloss.Color(GradientStart)
	muted := lipgloss.Color("244")

	return Theme{
		Card: CardTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(accent).
				Padding(1, 3),
			Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(GradientEnd)),
			Count:     lipgloss.NewStyle().Bold(true).Foreground(accent),
			Pulse:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(accent),
			Caption:   lipgloss.NewStyle().Foreground(muted),
			BarEmpty:  lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
			StatValue: lipgloss.NewStyle().Bold(true),
			StatLabel: lipgloss.NewStyle().Foreground(muted),
			StatFrame: lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(0, 2),
			ChipIdle: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")).
				Foreground(muted).
				Padding(0, 1),
			ChipLive: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("42")).
				Foreground(lipgloss.Color("42")).
				Padding(0, 1),
			Offline: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
		},
		Footer: FooterTheme{
			Key:         lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
			Description: lipgloss.NewStyle().Foreground(muted),
			Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		},
		Modal: ModalTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color(GradientEnd)).
				Padding(1, 2),
			Title: lipgloss.NewStyle().Bold(true),
			Body:  lipgloss.NewStyle(),
			Hint:  lipgloss.NewStyle().Foreground(muted).Italic(true),
		},
		Pet: PetTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(GradientEnd)).
				Padding(0, 2),
			Sprite: lipgloss.NewStyle().Foreground(lipgloss.Color("#e0a96d")),
			Speed:  lipgloss.NewStyle().Foreground(muted),
		},
		Log: LogTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240")),
			Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("248")),
			Time:   lipgloss.NewStyle().Foreground(muted),
			Source: lipgloss.NewStyle().Foreground(lipgloss.Color(GradientStart)),
			Info:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
			Warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB347")),
			Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
		},
	}
}

// Gradient returns n hex colours blended from GradientStart to GradientEnd.
func Gradient(n int) []string {
	if n <= 0 {
		return nil
	}
	from, _ := colorful.Hex(GradientStart)
	to, _ := colorful.Hex(GradientEnd)
	out := make([]string, n)
	for i := range out {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		out[i] = from.BlendLab(to, t).Clamped().Hex()
	}
	return out
}
