package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - connected, own messages
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - system notices
	MutedColor   = lipgloss.Color("#626262") // Gray - timestamps, secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum width for printed (non-TUI) output
)

var (
	// TitleStyle is for the chat banner and list titles
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(PrimaryColor).
			Bold(true).
			Padding(0, 1)

	// StatusOnlineStyle marks a live connection
	StatusOnlineStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	// StatusOfflineStyle marks a lost connection
	StatusOfflineStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true)

	// TimestampStyle is for message timestamps
	TimestampStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// MessageStyle is for relayed message text
	MessageStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// SystemStyle is for notices generated by the client itself
	SystemStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Italic(true)

	// ErrorMessageStyle is for error text
	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	// MutedStyle is for secondary text
	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// KeyStyle is for table and detail keys
	KeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(10)

	// PromptStyle is for interactive prompts
	PromptStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)
)

// Markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	OnlineMarker  = "●"
)

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _ := GetTerminalSize()
	return width
}

// GetTerminalSize returns the current terminal width and height
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, 24 // Default fallback
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if width > MaxContentWidth {
		width = MaxContentWidth
	}
	return width, height
}

// BoxStyle returns a bordered box in the given color
func BoxStyle(width int, color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(width-2). // Account for border characters
		Padding(0, 1)
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int, char string) string {
	if width < 0 {
		width = 0
	}
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat(char, width))
}
