package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentboard/agentboard/internal/ui"
)

var (
	groupHeaderRE   = regexp.MustCompile(`(?m)^([A-Z][A-Za-z &]+:)\s*$`)
	sectionHeaderRE = regexp.MustCompile(`(?m)^(Examples|Flags|Usage|Global Flags|Aliases|Available Commands):`)
	cmdLineRE       = regexp.MustCompile(`(?m)^(  )([a-z][a-z0-9]*(?:-[a-z0-9]+)*)(\s{2,})(.*)$`)
	flagLineRE      = regexp.MustCompile(`(?m)^(\s+)(-\w,\s+--[\w-]+|--[\w-]+)(\s+)(string|int|duration|bool|strings)?(\s*.*)$`)
	defaultRE       = regexp.MustCompile(`(\(default[^)]*\))`)
)

// colorizedHelpFunc wraps Cobra's default help with semantic coloring.
func colorizedHelpFunc(cmd *cobra.Command, _ []string) {
	var output strings.Builder
	if cmd.Long != "" {
		output.WriteString(cmd.Long)
		output.WriteString("\n\n")
	} else if cmd.Short != "" {
		output.WriteString(cmd.Short)
		output.WriteString("\n\n")
	}
	output.WriteString(cmd.UsageString())

	fmt.Fprint(cmd.OutOrStdout(), colorizeHelpOutput(output.String()))
}

// colorizeHelpOutput puts group and section headers in the accent color and
// gives command and flag names subtle styling. Default values are muted.
func colorizeHelpOutput(help string) string {
	result := groupHeaderRE.ReplaceAllStringFunc(help, func(match string) string {
		return ui.RenderAccent(strings.TrimSpace(match))
	})

	result = sectionHeaderRE.ReplaceAllStringFunc(result, ui.RenderAccent)

	result = cmdLineRE.ReplaceAllStringFunc(result, func(match string) string {
		parts := cmdLineRE.FindStringSubmatch(match)
		if len(parts) != 5 {
			return match
		}
		return parts[1] + ui.RenderCommand(parts[2]) + parts[3] + parts[4]
	})

	result = flagLineRE.ReplaceAllStringFunc(result, func(match string) string {
		parts := flagLineRE.FindStringSubmatch(match)
		if len(parts) < 6 {
			return match
		}
		indent, flags, spacing, typeStr, desc := parts[1], parts[2], parts[3], parts[4], parts[5]
		desc = defaultRE.ReplaceAllStringFunc(desc, ui.RenderMuted)
		if typeStr != "" {
			return indent + ui.RenderCommand(flags) + spacing + ui.RenderMuted(typeStr) + desc
		}
		return indent + ui.RenderCommand(flags) + spacing + desc
	})

	return result
}

func init() {
	rootCmd.SetHelpFunc(colorizedHelpFunc)
}
