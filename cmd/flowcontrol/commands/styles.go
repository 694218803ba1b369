package commands

import "github.com/charmbracelet/lipgloss"

var (
	styleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	stylePending = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleFailure = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// stateStyle returns the lipgloss style a job state renders with in
// terminal output.
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "PENDING":
		return stylePending
	case "RUNNING":
		return styleRunning
	case "SUCCESS":
		return styleSuccess
	case "FAILURE":
		return styleFailure
	default:
		return styleIdle
	}
}
