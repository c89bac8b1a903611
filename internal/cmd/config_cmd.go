package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentboard/agentboard/internal/config"
	"github.com/agentboard/agentboard/internal/style"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: GroupConfig,
	Short:   "Show or create the configuration file",
	RunE:    requireSubcommand,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and
AGENTBOARD_* environment variables have been applied.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runConfigShow(cmd.OutOrStdout(), cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runConfigInit(cmd.OutOrStdout(), configPath, configInitForce)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where configuration and state are kept",
	Run: func(cmd *cobra.Command, _ []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "config:     %s\n", configPath)
		fmt.Fprintf(w, "journal:    %s\n", cfg.JournalPath())
		fmt.Fprintf(w, "checkpoint: %s\n", cfg.CheckpointPath())
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd, configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires a subcommand: %s", cmd.UsageString())
	}
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
}

func runConfigShow(w io.Writer, c *config.Config) error {
	shown := *c
	if shown.Server.Token != "" {
		shown.Server.Token = "********"
	}
	data, err := shown.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func runConfigInit(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	style.Fsuccess(w, "wrote %s", path)
	return nil
}
