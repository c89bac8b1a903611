package cmd

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
var (
	Version = "0.1.0"
	Build   = "dev"
	// Commit is the git revision the binary was built from (optional ldflag).
	Commit = ""
)

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: GroupDiag,
	Short:   "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout(), resolveCommitHash())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(w io.Writer, commit string) {
	if commit != "" {
		fmt.Fprintf(w, "agentboard version %s (%s: %s)\n", Version, Build, shortCommit(commit))
		return
	}
	fmt.Fprintf(w, "agentboard version %s (%s)\n", Version, Build)
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}

func resolveCommitHash() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				return setting.Value
			}
		}
	}
	return ""
}
