package ui

import "github.com/charmbracelet/lipgloss"

// Lipgloss Styles
var (
	docStyle    = lipgloss.NewStyle().Margin(1, 2)
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true).Render
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	promptStyle = lipgloss.NewStyle().MarginTop(1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	selectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	winStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	loseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("228")).Bold(true)

	waterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("31"))
	shipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Bold(true)
	hitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func cellStyle(cell string) lipgloss.Style {
	switch cell {
	case cellShip, cellSunk:
		return shipStyle
	case cellHit, cellBoom:
		return hitStyle
	case cellMine:
		return mineStyle
	default:
		return waterStyle
	}
}
