package ui

import "github.com/charmbracelet/lipgloss"

type Style struct {
	Header        lipgloss.Style
	ModeActive    lipgloss.Style
	ModeInactive  lipgloss.Style
	UserMessage   lipgloss.Style
	AssistantCard lipgloss.Style
	ErrorCard     lipgloss.Style
	ModeTag       lipgloss.Style
	Help          lipgloss.Style
}

func DefaultStyles() *Style {
	return &Style{
		Header: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#1A56DB", Dark: "#76A9FA"}),
		ModeActive: lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.AdaptiveColor{Light: "#1A56DB", Dark: "#1E429F"}),
		ModeInactive: lipgloss.NewStyle().Padding(0, 1).
			Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}),
		UserMessage: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#1A56DB", Dark: "#3F83F8"}),
		AssistantCard: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}),
		ErrorCard: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#E02424", Dark: "#F98080"}),
		ModeTag: lipgloss.NewStyle().Faint(true),
		Help:    lipgloss.NewStyle().Faint(true),
	}
}
