// Package theme is the quote board's palette, shared by the ui model and its
// components.
package theme

import "github.com/charmbracelet/lipgloss"

var (
	Accent     = lipgloss.Color("#7C3AED")
	AccentDeep = lipgloss.Color("#4C1D95")
	Good       = lipgloss.Color("#10B981")
	Bad        = lipgloss.Color("#EF4444")
	Warn       = lipgloss.Color("#F59E0B")
	Dim        = lipgloss.Color("#6B7280")
	Line       = lipgloss.Color("#374151")
	White      = lipgloss.Color("#FFFFFF")
)

var (
	// Banner is the inverted title bar.
	Banner = lipgloss.NewStyle().Bold(true).Foreground(White).Background(Accent).Padding(0, 2)

	Panel = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Line).Padding(0, 1)

	Heading  = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	Positive = lipgloss.NewStyle().Foreground(Good)
	Best     = Positive.Bold(true)
	Negative = lipgloss.NewStyle().Foreground(Bad)
	Alert    = lipgloss.NewStyle().Foreground(Warn).Bold(true)
	Muted    = lipgloss.NewStyle().Foreground(Dim)
)

// TableHeader and TableSelected style bubbles tables.
var (
	TableHeader   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(Line).BorderBottom(true).Foreground(Accent).Bold(true)
	TableSelected = lipgloss.NewStyle().Foreground(White).Background(AccentDeep)
)
