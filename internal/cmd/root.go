// Package cmd implements the agentboard command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentboard/agentboard/internal/config"
	"github.com/agentboard/agentboard/internal/style"
	"github.com/agentboard/agentboard/internal/ui"
)

// Command groups shown in help.
const (
	GroupBoard  = "board"
	GroupConfig = "config"
	GroupDiag   = "diag"
)

var (
	configPath string
	verbose    bool

	// cfg and logger are set by loadConfig before any command runs.
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "agentboard",
	Short: "Live board of coding agents and the issues they work",
	Long: `agentboard follows a project's event stream and keeps the current state
of every agent and issue: who is working what, what is blocked, and what
changed recently.

It can watch the stream live, replay a recorded journal, or print the last
saved board.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupBoard, Title: "Board:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	cfg = c

	level := c.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	ui.InitTheme(c.UI.Theme)
	ui.ApplyThemeMode()
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return exitCode(os.Stderr, rootCmd.Execute())
}

func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if code, ok := IsSilentExit(err); ok {
		return code
	}
	fmt.Fprintf(w, "%s %v\n", style.ErrorPrefix, err)
	return 1
}
