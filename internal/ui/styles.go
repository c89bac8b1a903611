// Package ui provides terminal styling for agentboard CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/agentboard/agentboard/internal/activity"
	"github.com/agentboard/agentboard/internal/model"
)

func init() {
	if !ShouldUseColor() {
		// disable colors when not appropriate (non-TTY, NO_COLOR, etc.)
		lipgloss.SetColorProfile(termenv.Ascii)
	} else {
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}

// ApplyThemeMode applies the theme mode settings to lipgloss.
// Call after InitTheme.
func ApplyThemeMode() {
	if !ShouldUseColor() {
		return
	}
	lipgloss.SetHasDarkBackground(HasDarkBackground())
}

// Ayu theme color palette
// Source: https://github.com/ayu-theme/ayu-colors
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300", // ayu light bright green
		Dark:  "#c2d94c", // ayu dark bright green
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49", // ayu light bright yellow
		Dark:  "#ffb454", // ayu dark bright yellow
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171", // ayu light bright red
		Dark:  "#f07178", // ayu dark bright red
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99", // ayu light muted
		Dark:  "#6c7680", // ayu dark muted
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6", // ayu light bright blue
		Dark:  "#59c2ff", // ayu dark bright blue
	}

	// P0/P1/P2 get color; P3 is neutral.
	ColorPriorityP0 = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorPriorityP1 = lipgloss.AdaptiveColor{Light: "#ff8f40", Dark: "#ff8f40"}
	ColorPriorityP2 = lipgloss.AdaptiveColor{Light: "#e6b450", Dark: "#e6b450"}
)

// Icons used across commands.
const (
	IconPass    = "✓"
	IconWarn    = "⚠"
	IconFail    = "✗"
	IconInfo    = "ℹ"
	IconWorking = "●"
	IconIdle    = "○"
	IconBlocked = "⊘"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	accentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	boldStyle   = lipgloss.NewStyle().Bold(true)

	// commandStyle gives command names subtle contrast.
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#5c6166",
		Dark:  "#bfbdb6",
	})
)

func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }
func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderBold(s string) string   { return boldStyle.Render(s) }

// RenderCommand renders a command or flag name.
func RenderCommand(s string) string { return commandStyle.Render(s) }

// AgentStatusIcon returns the plain icon for an agent status.
func AgentStatusIcon(s model.AgentStatus) string {
	switch s {
	case model.AgentWorking:
		return IconWorking
	case model.AgentBlocked:
		return IconBlocked
	default:
		return IconIdle
	}
}

// RenderAgentStatus renders "icon status": working in accent, blocked in
// red, idle muted.
func RenderAgentStatus(s model.AgentStatus) string {
	text := AgentStatusIcon(s) + " " + string(s)
	switch s {
	case model.AgentWorking:
		return accentStyle.Render(text)
	case model.AgentBlocked:
		return failStyle.Render(text)
	default:
		return mutedStyle.Render(text)
	}
}

// RenderPriority renders P0-P2 in color and P3 plain.
func RenderPriority(p model.Priority) string {
	switch p {
	case model.P0:
		return lipgloss.NewStyle().Foreground(ColorPriorityP0).Bold(true).Render(string(p))
	case model.P1:
		return lipgloss.NewStyle().Foreground(ColorPriorityP1).Render(string(p))
	case model.P2:
		return lipgloss.NewStyle().Foreground(ColorPriorityP2).Render(string(p))
	default:
		return string(p)
	}
}

// RenderAge renders an agent's last-activity age colored by freshness.
func RenderAge(age activity.Age) string {
	switch age.Freshness {
	case activity.Active:
		return passStyle.Render(age.Label)
	case activity.Stale:
		return warnStyle.Render(age.Label)
	case activity.Stuck:
		return failStyle.Render(age.Label)
	default:
		return mutedStyle.Render(age.Label)
	}
}

// RenderActivityKind renders the marker for an activity entry.
func RenderActivityKind(k activity.Kind) string {
	switch k {
	case activity.KindSuccess:
		return passStyle.Render(IconPass)
	case activity.KindWarning:
		return warnStyle.Render(IconWarn)
	case activity.KindError:
		return failStyle.Render(IconFail)
	default:
		return accentStyle.Render(IconInfo)
	}
}
