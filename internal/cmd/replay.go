package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/journal"
	"github.com/agentboard/agentboard/internal/processor"
	"github.com/agentboard/agentboard/internal/runtime"
	"github.com/agentboard/agentboard/internal/style"
	"github.com/agentboard/agentboard/internal/ui"
)

type replayOptions struct {
	project  string
	activity int
	untilSeq int64
	noPager  bool
}

var replayFlags replayOptions

var replayCmd = &cobra.Command{
	Use:     "replay [journal]",
	GroupID: GroupBoard,
	Short:   "Rebuild the board from a recorded journal",
	Long: `Replay a journal written by 'watch --journal' through the same event
processor used live, then print the resulting board.

Events are applied in file order. Duplicates are dropped and events that
fail validation are reported in the activity log, exactly as when live.

Examples:
  agentboard replay
  agentboard replay ./events.jsonl --activity 20
  agentboard replay --until-seq 120`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.JournalPath()
		if len(args) == 1 {
			path = args[0]
		}
		opts := replayFlags
		if opts.project == "" {
			opts.project = cfg.UI.Project
		}

		var buf bytes.Buffer
		if err := runReplay(&buf, path, opts, logger, time.Now()); err != nil {
			return err
		}
		return ui.ToPager(cmd.OutOrStdout(), buf.String(), ui.PagerOptions{NoPager: opts.noPager})
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayFlags.project, "project", "p", "", "only show issues of this project")
	replayCmd.Flags().IntVar(&replayFlags.activity, "activity", 0, "also print the newest N activity entries")
	replayCmd.Flags().Int64Var(&replayFlags.untilSeq, "until-seq", 0, "stop after the last event with this sequence number or lower")
	replayCmd.Flags().BoolVar(&replayFlags.noPager, "no-pager", false, "do not pipe output through a pager")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(w io.Writer, path string, opts replayOptions, log *slog.Logger, now time.Time) error {
	res, err := journal.Read(path)
	if err != nil {
		return fmt.Errorf("reading journal: %w", err)
	}

	envs := res.Events
	if opts.untilSeq > 0 {
		envs = untilSeq(envs, opts.untilSeq)
	}

	ropts := runtime.Options{Logger: log}
	if cfg != nil {
		ropts.MaxActivity = cfg.Activity.MaxItems
		ropts.MaxProcessed = cfg.Activity.MaxProcessed
	}
	rt := runtime.NewOffline(ropts)

	counts := map[string]int{}
	for _, out := range rt.Replay(envs) {
		counts[out.String()]++
	}

	if err := checkProject(rt.Issues, opts.project); err != nil {
		return err
	}

	summary := summarizeOutcomes(counts, []string{
		processor.Applied.String(),
		processor.Duplicate.String(),
		processor.Rejected.String(),
		processor.Ignored.String(),
	})
	fmt.Fprintf(w, "%s Replayed %d events from %s: %s\n", style.SuccessPrefix, len(envs), path, summary)
	if res.Skipped > 0 {
		style.Fwarning(w, "skipped %d unreadable lines", res.Skipped)
	}
	fmt.Fprintln(w)

	renderBoard(w, rt.Agents, rt.Issues, opts.project, now)
	if opts.activity > 0 {
		fmt.Fprintln(w)
		renderActivity(w, rt.Activity.Items(), opts.activity)
	}
	return nil
}

// untilSeq keeps the journal prefix up to the last event at or below seq.
func untilSeq(envs []events.Envelope, seq int64) []events.Envelope {
	last := -1
	for i, env := range envs {
		if env.Seq <= seq {
			last = i
		}
	}
	return envs[:last+1]
}
