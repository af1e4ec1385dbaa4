package ui

import "github.com/charmbracelet/lipgloss"

// Ruby red accent with a neutral gray scale.
const (
	ColorRuby     = "161"
	ColorRubyDim  = "125"
	ColorGreen    = "78"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds all UI styles for TUI rendering.
type Styles struct {
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Stage    lipgloss.Style
	Active   lipgloss.Style
	Progress lipgloss.Style
	Border   lipgloss.Style
	Label    lipgloss.Style
	Covered  lipgloss.Style
	Missing  lipgloss.Style
}

// DefaultStyles returns styled components for TUI mode.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorRuby)),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Stage:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRubyDim)),
		Active:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorRuby)),
		Progress: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRuby)),
		Border:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Covered:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Missing:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorYellow)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:   plain,
		Success:  plain,
		Warning:  plain,
		Error:    plain,
		Dim:      plain,
		Stage:    plain,
		Active:   plain,
		Progress: plain,
		Border:   plain,
		Label:    plain,
		Covered:  plain,
		Missing:  plain,
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
