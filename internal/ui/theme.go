// Package ui holds the lipgloss styles shared by the CLI and the terminal
// notification presenter.
package ui

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color

	Title   lipgloss.Style
	Header  lipgloss.Style
	Faint   lipgloss.Style
	Good    lipgloss.Style
	Warn    lipgloss.Style
	Bad     lipgloss.Style
	Banner  lipgloss.Style
	Numeric lipgloss.Style
}

var Default = Theme{
	Primary: lipgloss.Color("#7c3aed"),
	Success: lipgloss.Color("#10b981"),
	Warning: lipgloss.Color("#f59e0b"),
	Error:   lipgloss.Color("#ef4444"),
	Muted:   lipgloss.Color("#737373"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
	Faint:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Good:    lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981")),
	Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")),
	Bad:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444")),
	Numeric: lipgloss.NewStyle().Align(lipgloss.Right),
	Banner: lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1),
}

// BannerWith returns the bordered box style tinted with accent.
func (t Theme) BannerWith(accent lipgloss.Color) lipgloss.Style {
	return t.Banner.BorderForeground(accent)
}

// ForPercentage picks the style for a budget usage percentage.
func (t Theme) ForPercentage(pct, warn, critical float64) lipgloss.Style {
	switch {
	case pct >= critical:
		return t.Bad
	case pct >= warn:
		return t.Warn
	default:
		return t.Good
	}
}

// ProgressBar draws a fixed-width bar, clamped to full when over 100%.
func (t Theme) ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(pct / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}
	return string(bar)
}
