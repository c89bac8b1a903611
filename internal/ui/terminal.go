package ui

import (
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ThemeMode represents the CLI color scheme mode.
type ThemeMode string

const (
	// ThemeModeAuto lets the terminal background guide color selection.
	ThemeModeAuto ThemeMode = "auto"
	// ThemeModeDark forces dark mode colors (light text on dark background).
	ThemeModeDark ThemeMode = "dark"
	// ThemeModeLight forces light mode colors (dark text on light background).
	ThemeModeLight ThemeMode = "light"
)

var themeMode = ThemeModeAuto

var hasDarkBackground = true

// InitTheme initializes the theme mode. Call this early in main.
// configTheme is the ui.theme config value (may be empty).
func InitTheme(configTheme string) {
	themeMode = resolveThemeMode(configTheme)
	hasDarkBackground = detectDarkBackground(themeMode)
}

// GetThemeMode returns the current CLI color scheme mode.
// Priority order:
//  1. AGENTBOARD_THEME environment variable ("dark", "light", "auto")
//  2. Configured value (passed to InitTheme)
//  3. Default: "auto"
func GetThemeMode() ThemeMode {
	return themeMode
}

// HasDarkBackground returns true if we're displaying on a dark background.
func HasDarkBackground() bool {
	return hasDarkBackground
}

func parseThemeMode(s string) (ThemeMode, bool) {
	switch strings.ToLower(s) {
	case "dark":
		return ThemeModeDark, true
	case "light":
		return ThemeModeLight, true
	case "auto":
		return ThemeModeAuto, true
	}
	return "", false
}

func resolveThemeMode(configTheme string) ThemeMode {
	// Invalid values fall through to the next source.
	if mode, ok := parseThemeMode(os.Getenv("AGENTBOARD_THEME")); ok {
		return mode
	}
	if mode, ok := parseThemeMode(configTheme); ok {
		return mode
	}
	return ThemeModeAuto
}

func detectDarkBackground(mode ThemeMode) bool {
	switch mode {
	case ThemeModeDark:
		return true
	case ThemeModeLight:
		return false
	default:
		return termenv.HasDarkBackground()
	}
}

// IsTerminal returns true if stdout is connected to a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor determines if ANSI color codes should be used.
// Respects NO_COLOR (https://no-color.org/), CLICOLOR, and CLICOLOR_FORCE conventions.
func ShouldUseColor() bool {
	// NO_COLOR takes precedence - any value disables color
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if _, exists := os.LookupEnv("CLICOLOR_FORCE"); exists {
		return true
	}
	return IsTerminal()
}

// ShouldUseEmoji determines if emoji decorations should be used.
// Disabled in non-TTY mode to keep output machine-readable.
func ShouldUseEmoji() bool {
	if _, exists := os.LookupEnv("AGENTBOARD_NO_EMOJI"); exists {
		return false
	}
	return IsTerminal()
}
