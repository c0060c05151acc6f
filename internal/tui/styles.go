// Package tui provides the terminal user interface for hwachat.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	hwaerrors "github.com/brilliance/hwachat/internal/errors"
)

// Fixed palette
var (
	colorPrimary   = lipgloss.Color("#54a0ff") // Blue
	colorSecondary = lipgloss.Color("#1dd1a1") // Green
	colorAccent    = lipgloss.Color("#feca57") // Yellow
	colorError     = lipgloss.Color("#ff6b6b") // Red
	colorBorder    = lipgloss.Color("#3b4261")
	colorText      = lipgloss.Color("#c0caf5")
	colorTextDim   = lipgloss.Color("#565f89")
	colorTextMute  = lipgloss.Color("#414868")
)

var (
	// Sidebar
	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	sidebarTitleStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	selectedGroupStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true)

	groupStyle = lipgloss.NewStyle().
			Foreground(colorText)

	// Chat pane
	chatPaneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	headerTitleStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	// Connection badge
	connectedBadgeStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	reconnectBadgeStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true)

	offlineBadgeStyle = lipgloss.NewStyle().
				Foreground(colorError).
				Bold(true)

	// Message bubbles
	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true).
			MarginLeft(4)

	userBubbleStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSecondary).
			Padding(0, 1).
			MarginLeft(4)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginRight(4)

	systemMessageStyle = lipgloss.NewStyle().
				Foreground(colorTextDim).
				Italic(true).
				MarginLeft(2)

	attachmentChipStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Italic(true).
				MarginLeft(4)

	typingStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Italic(true)

	// Input
	inputLabelStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	inputPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	// Status bar
	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorTextMute)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Bold(true)

	statusDescStyle = lipgloss.NewStyle().
			Foreground(colorTextMute)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorTextMute).
			Italic(true)

	loadingStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)
)

// FormatError returns a styled error message with additional context
// from the structured error types.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %v", err)))

	if status := hwaerrors.HTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	switch {
	case hwaerrors.IsValidationError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: images must be JPEG/PNG up to 5 MB, documents PDF up to 10 MB"))
	case hwaerrors.IsConnectionError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: check your connection, then press ctrl+r to reconnect"))
	case hwaerrors.IsUploadError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: file upload failed. Check the file exists and is accessible"))
	}

	return sb.String()
}

// PrintError prints a styled error message.
func PrintError(err error) {
	if err == nil {
		return
	}
	fmt.Println(FormatError(err))
}
