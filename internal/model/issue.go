package model

import "time"

// IssueState is a step in the issue workflow.
type IssueState string

const (
	StateBacklog     IssueState = "backlog"
	StateAnalysis    IssueState = "analysis"
	StateDevelopment IssueState = "development"
	StateTesting     IssueState = "testing"
	StateReview      IssueState = "review"
	StateDone        IssueState = "done"
	StateCancelled   IssueState = "cancelled"
)

// Columns lists the issue states in kanban (workflow) order.
var Columns = []IssueState{
	StateBacklog,
	StateAnalysis,
	StateDevelopment,
	StateTesting,
	StateReview,
	StateDone,
	StateCancelled,
}

// Valid reports whether s is one of the seven workflow states.
func (s IssueState) Valid() bool {
	for _, c := range Columns {
		if c == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further work happens in this state.
// Cancelled issues may still be reopened to backlog.
func (s IssueState) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

// issueTransitions is the closed transition table for issues.
// Done has no outgoing edges.
var issueTransitions = map[IssueState][]IssueState{
	StateBacklog:     {StateAnalysis, StateCancelled},
	StateAnalysis:    {StateDevelopment, StateBacklog, StateCancelled},
	StateDevelopment: {StateTesting, StateAnalysis, StateCancelled},
	StateTesting:     {StateReview, StateDevelopment, StateCancelled},
	StateReview:      {StateDone, StateDevelopment, StateCancelled},
	StateDone:        {},
	StateCancelled:   {StateBacklog},
}

// CanTransitionIssue reports whether an issue may move from one state to another.
func CanTransitionIssue(from, to IssueState) bool {
	for _, next := range issueTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Priority orders issues within a kanban column. P0 is the most urgent.
type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
)

// Rank returns the sort rank of the priority (lower sorts first).
// Unknown priorities sort after P3.
func (p Priority) Rank() int {
	switch p {
	case P0:
		return 0
	case P1:
		return 1
	case P2:
		return 2
	case P3:
		return 3
	}
	return 4
}

// Valid reports whether p is P0..P3.
func (p Priority) Valid() bool {
	return p.Rank() < 4
}

// Issue is a unit of work tracked on the board.
type Issue struct {
	ID              string     `json:"id"`
	Number          int        `json:"number"`
	Title           string     `json:"title"`
	ProjectID       string     `json:"projectId"`
	State           IssueState `json:"state"`
	AssignedAgentID string     `json:"assignedAgentId,omitempty"`
	IsBlocked       bool       `json:"isBlocked"`
	BlockReason     string     `json:"blockReason,omitempty"`
	Priority        Priority   `json:"priority"`
	CreatedAt       time.Time  `json:"createdAt,omitzero"`
	UpdatedAt       time.Time  `json:"updatedAt,omitzero"`
}

// IsAssigned reports whether an agent is paired with the issue.
func (i Issue) IsAssigned() bool {
	return i.AssignedAgentID != ""
}

// Less orders issues within a kanban column: priority first, then number.
func Less(a, b Issue) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	if a.Number != b.Number {
		return a.Number < b.Number
	}
	return a.ID < b.ID
}
