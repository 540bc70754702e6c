package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/gptwork/internal/workspace"
)

// Color constants matching the dark dashboard theme
const (
	ColorBg     = "#0d1117"
	ColorCard   = "#161b22"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds all lipgloss styles for the TUI
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style
	Muted    lipgloss.Style

	StatusIdle    lipgloss.Style
	StatusPending lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusError   lipgloss.Style

	TextBlock lipgloss.Style
	ErrorText lipgloss.Style

	Border       lipgloss.Style
	ActiveBorder lipgloss.Style

	Tab       lipgloss.Style
	ActiveTab lipgloss.Style

	Selected lipgloss.Style
}

func badge(bg string) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color(ColorBg)).
		Padding(0, 1).
		Bold(true)
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)),

		StatusIdle:    badge(ColorGray),
		StatusPending: badge(ColorYellow),
		StatusSuccess: badge(ColorGreen),
		StatusError:   badge(ColorRed),

		TextBlock: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		ErrorText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorRed)).
			Bold(true),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1),

		ActiveBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBlue)).
			Padding(0, 1),

		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Padding(0, 1),

		ActiveTab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true).
			Padding(0, 1),

		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true),
	}
}

// StatusBadge renders a field's run state.
func (s *Styles) StatusBadge(state workspace.RunState) string {
	switch state {
	case workspace.RunPending:
		return s.StatusPending.Render("Running")
	case workspace.RunSuccess:
		return s.StatusSuccess.Render("Done")
	case workspace.RunError:
		return s.StatusError.Render("Error")
	default:
		return s.StatusIdle.Render("Idle")
	}
}

// NoticeStyle colors a notice by severity.
func NoticeStyle(sev workspace.Severity) lipgloss.Style {
	switch sev {
	case workspace.SeveritySuccess:
		return badge(ColorGreen)
	case workspace.SeverityWarning:
		return badge(ColorYellow)
	case workspace.SeverityError:
		return badge(ColorRed)
	default:
		return badge(ColorBlue)
	}
}
