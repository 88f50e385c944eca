// Package tui provides the Bubble Tea progress display for sync runs.
//
// The display is cosmetic only: it consumes the same per-asset results
// the logger sees, and sync behaves identically when stdout is not a
// terminal.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// Styles for TUI components.
var (
	// TitleStyle for the header line.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// SuccessStyle for uploaded and reused counts.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for reuse and skip states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for failed assets.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// MutedStyle for the in-flight asset key and help text.
	MutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)
