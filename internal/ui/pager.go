package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions configures pager behavior for command output.
type PagerOptions struct {
	// NoPager disables pager for this command (--no-pager flag)
	NoPager bool
}

func shouldUsePager(opts PagerOptions) bool {
	if opts.NoPager {
		return false
	}
	if os.Getenv("AGENTBOARD_NO_PAGER") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// getPagerCommand checks AGENTBOARD_PAGER, then PAGER, defaulting to "less".
func getPagerCommand() string {
	if pager := os.Getenv("AGENTBOARD_PAGER"); pager != "" {
		return pager
	}
	if pager := os.Getenv("PAGER"); pager != "" {
		return pager
	}
	return "less"
}

// getTerminalHeight returns 0 when stdout is not a TTY.
func getTerminalHeight() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	_, height, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return height
}

func contentHeight(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// ToPager pipes content to a pager if appropriate, otherwise writes it to w.
// Prints directly if the pager is disabled, stdout is not a TTY, or the
// content fits in the terminal.
func ToPager(w io.Writer, content string, opts PagerOptions) error {
	if !shouldUsePager(opts) {
		_, err := fmt.Fprint(w, content)
		return err
	}

	// leave room for the prompt
	if h := getTerminalHeight(); h > 0 && contentHeight(content) <= h-1 {
		_, err := fmt.Fprint(w, content)
		return err
	}

	parts := strings.Fields(getPagerCommand())
	if len(parts) == 0 {
		_, err := fmt.Fprint(w, content)
		return err
	}

	cmd := exec.Command(parts[0], parts[1:]...) //nolint:gosec // G204: pager comes from the user's environment
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// -R: allow ANSI color codes
	// -F: quit if content fits on one screen
	// -X: don't clear screen on exit
	if os.Getenv("LESS") == "" {
		cmd.Env = append(os.Environ(), "LESS=-RFX")
	}
	return cmd.Run()
}
