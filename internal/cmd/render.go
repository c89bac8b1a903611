package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentboard/agentboard/internal/activity"
	"github.com/agentboard/agentboard/internal/model"
	"github.com/agentboard/agentboard/internal/store"
	"github.com/agentboard/agentboard/internal/style"
	"github.com/agentboard/agentboard/internal/ui"
)

var titleCaser = cases.Title(language.English)

// columnTitle turns a workflow state into a kanban heading.
func columnTitle(s model.IssueState) string {
	return titleCaser.String(string(s))
}

func renderAgents(w io.Writer, agents []model.Agent, issues *store.IssueStore, now time.Time) {
	fmt.Fprintf(w, "%s %s\n", style.Bold.Render("Agents"), style.Dim.Render(fmt.Sprintf("(%d)", len(agents))))
	if len(agents) == 0 {
		fmt.Fprintf(w, "  %s\n\n", style.Dim.Render("no agents"))
		return
	}

	tbl := style.NewTable(
		style.Column{Name: "NAME", Width: 16},
		style.Column{Name: "STATUS", Width: 10},
		style.Column{Name: "ISSUE", Width: 28},
		style.Column{Name: "ACTIVE", Width: 7, Align: style.AlignRight},
	)
	for _, a := range agents {
		name := a.Name
		if name == "" {
			name = a.ID
		}
		issue := "-"
		if is, ok := issues.ForAgent(a.ID); ok {
			issue = fmt.Sprintf("#%d %s", is.Number, is.Title)
		}
		if a.Status == model.AgentBlocked && a.BlockReason != "" {
			issue = a.BlockReason
		}
		tbl.AddRow(name, ui.RenderAgentStatus(a.Status), issue, ui.RenderAge(activity.AgentAge(a, now)))
	}
	fmt.Fprintln(w, tbl.Render())
}

func renderKanban(w io.Writer, columns []store.Column, agents *store.AgentStore) {
	total, done, cancelled := 0, 0, 0
	for _, col := range columns {
		total += len(col.Issues)
		switch col.State {
		case model.StateDone:
			done = len(col.Issues)
		case model.StateCancelled:
			cancelled = len(col.Issues)
		}
	}

	for _, col := range columns {
		fmt.Fprintf(w, "%s %s\n", style.Bold.Render(columnTitle(col.State)), style.Dim.Render(fmt.Sprintf("(%d)", len(col.Issues))))
		for _, is := range col.Issues {
			fmt.Fprintf(w, "  %s %s %s", style.Dim.Render(fmt.Sprintf("#%d", is.Number)), ui.RenderPriority(is.Priority), is.Title)
			if is.AssignedAgentID != "" {
				owner := is.AssignedAgentID
				if a, ok := agents.Get(owner); ok && a.Name != "" {
					owner = a.Name
				}
				fmt.Fprintf(w, " %s", style.Info.Render("← "+owner))
			}
			if is.IsBlocked {
				fmt.Fprintf(w, " %s", style.Error.Render(ui.IconBlocked+" "+is.BlockReason))
			}
			fmt.Fprintln(w)
		}
	}

	if open := total - cancelled; open > 0 {
		fmt.Fprintf(w, "\n%s %s\n", style.Bold.Render("Done"), style.ProgressBar(done*100/open, 20))
	}
}

func renderBoard(w io.Writer, agents *store.AgentStore, issues *store.IssueStore, projectID string, now time.Time) {
	renderAgents(w, agents.List(), issues, now)
	renderKanban(w, issues.Kanban(projectID), agents)
}

// renderActivity prints at most limit entries, newest first.
func renderActivity(w io.Writer, items []activity.Item, limit int) {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	fmt.Fprintf(w, "%s\n", style.Bold.Render("Activity"))
	for _, it := range items {
		fmt.Fprintln(w, formatActivity(it))
	}
}

func formatActivity(it activity.Item) string {
	msg := it.Message
	if it.Kind == activity.KindError {
		msg = style.Error.Render(msg)
	}
	return fmt.Sprintf("  %s %s %s", style.Dim.Render(it.Timestamp.Local().Format(time.TimeOnly)), ui.RenderActivityKind(it.Kind), msg)
}

// summarizeOutcomes renders counts like "12 applied, 1 rejected".
func summarizeOutcomes(counts map[string]int, order []string) string {
	var parts []string
	for _, k := range order {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}
	if len(parts) == 0 {
		return "nothing applied"
	}
	return strings.Join(parts, ", ")
}
