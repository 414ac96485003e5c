package ui

import "github.com/charmbracelet/lipgloss"

// Palette: cinnabar seal red on ink.
const (
	ColorCinnabar = "160"
	ColorRust     = "130"
	ColorPaper    = "230"
	ColorGray     = "245"
	ColorInk      = "238"
	ColorJade     = "35"
	ColorAmber    = "214"
)

// Styles holds the lipgloss styles used by the renderers.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Active  lipgloss.Style
	Label   lipgloss.Style
	Border  lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorCinnabar)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorJade)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAmber)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCinnabar)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorInk)),
		Active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPaper)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Border:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRust)),
	}
}

// NoColorStyles returns unstyled components.
func NoColorStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Header: s, Success: s, Warning: s, Error: s, Dim: s, Active: s, Label: s, Border: s}
}

// GetStyles returns the styles for the color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
