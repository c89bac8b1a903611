package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentboard/agentboard/internal/journal"
	"github.com/agentboard/agentboard/internal/model"
	"github.com/agentboard/agentboard/internal/runtime"
	"github.com/agentboard/agentboard/internal/store"
	"github.com/agentboard/agentboard/internal/style"
	"github.com/agentboard/agentboard/internal/suggest"
)

type boardOptions struct {
	checkpoint string
	project    string
	json       bool
	check      bool
}

var boardFlags boardOptions

var boardCmd = &cobra.Command{
	Use:     "board",
	GroupID: GroupBoard,
	Short:   "Print the last saved board",
	Long: `Print the board saved by the last 'watch' session: agents with their
current issue and last activity, then issues grouped by workflow column.

With --check, exits 1 (without output) when any agent or issue is blocked.

Examples:
  agentboard board
  agentboard board --project web --json
  agentboard board --check || echo "something is blocked"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := boardFlags
		if opts.checkpoint == "" {
			opts.checkpoint = cfg.CheckpointPath()
		}
		if opts.project == "" {
			opts.project = cfg.UI.Project
		}
		return runBoard(cmd.OutOrStdout(), opts, time.Now())
	},
}

func init() {
	boardCmd.Flags().StringVar(&boardFlags.checkpoint, "checkpoint", "", "checkpoint file (default from config)")
	boardCmd.Flags().StringVarP(&boardFlags.project, "project", "p", "", "only show issues of this project")
	boardCmd.Flags().BoolVar(&boardFlags.json, "json", false, "output as JSON")
	boardCmd.Flags().BoolVar(&boardFlags.check, "check", false, "exit 1 if anything is blocked")
	rootCmd.AddCommand(boardCmd)
}

// checkProject rejects a project filter that matches no issue, suggesting
// close project IDs.
func checkProject(issues *store.IssueStore, project string) error {
	if project == "" || issues.Len() == 0 || len(issues.ByProject(project)) > 0 {
		return nil
	}
	seen := map[string]bool{}
	var ids []string
	for _, is := range issues.List() {
		if is.ProjectID != "" && !seen[is.ProjectID] {
			seen[is.ProjectID] = true
			ids = append(ids, is.ProjectID)
		}
	}
	return errors.New(suggest.NotFound("project", project, suggest.Similar(project, ids, 3)))
}

// boardJSON is the --json shape of the board.
type boardJSON struct {
	SavedAt    time.Time      `json:"savedAt"`
	CurrentSeq int64          `json:"currentSeq"`
	Agents     []model.Agent  `json:"agents"`
	Columns    []store.Column `json:"columns"`
}

func runBoard(w io.Writer, opts boardOptions, now time.Time) error {
	cp, err := journal.LoadCheckpoint(opts.checkpoint)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no saved board at %s; run 'agentboard watch' first", opts.checkpoint)
	}
	if err != nil {
		return err
	}

	rt := runtime.NewOffline(runtime.Options{})
	rt.HandleSnapshot(cp.Snapshot)

	if opts.check {
		if len(rt.Issues.Blocked()) > 0 || len(rt.Agents.ByStatus(model.AgentBlocked)) > 0 {
			return NewSilentExit(1)
		}
		return nil
	}

	if err := checkProject(rt.Issues, opts.project); err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(boardJSON{
			SavedAt:    cp.SavedAt,
			CurrentSeq: cp.Snapshot.CurrentSeq,
			Agents:     rt.Agents.List(),
			Columns:    rt.Issues.Kanban(opts.project),
		})
	}

	fmt.Fprintf(w, "%s\n\n", style.Dim.Render(fmt.Sprintf("saved %s · seq %d", cp.SavedAt.Local().Format(time.DateTime), cp.Snapshot.CurrentSeq)))
	renderBoard(w, rt.Agents, rt.Issues, opts.project, now)
	return nil
}
