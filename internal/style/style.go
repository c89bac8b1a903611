// Package style provides consistent terminal styling using Lipgloss.
// Uses the Ayu theme colors from internal/ui for semantic consistency.
package style

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/agentboard/agentboard/internal/ui"
)

var (
	// Success style for positive outcomes (green)
	Success = lipgloss.NewStyle().
		Foreground(ui.ColorPass).
		Bold(true)

	// Warning style for cautionary messages (yellow)
	Warning = lipgloss.NewStyle().
		Foreground(ui.ColorWarn).
		Bold(true)

	// Error style for failures (red)
	Error = lipgloss.NewStyle().
		Foreground(ui.ColorFail).
		Bold(true)

	// Info style for informational messages (blue)
	Info = lipgloss.NewStyle().
		Foreground(ui.ColorAccent)

	// Dim style for secondary information (gray)
	Dim = lipgloss.NewStyle().
		Foreground(ui.ColorMuted)

	Bold = lipgloss.NewStyle().
		Bold(true)

	SuccessPrefix = Success.Render(ui.IconPass)
	WarningPrefix = Warning.Render(ui.IconWarn)
	ErrorPrefix   = Error.Render(ui.IconFail)
	ArrowPrefix   = Info.Render("→")
)

// Fwarning writes a warning message with consistent formatting.
// The format and args work like fmt.Printf.
func Fwarning(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "%s %s\n", Warning.Render(ui.IconWarn+" Warning:"), msg)
}

// Fsuccess writes a success line prefixed with a checkmark.
func Fsuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", SuccessPrefix, fmt.Sprintf(format, args...))
}
