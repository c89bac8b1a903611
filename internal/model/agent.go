// Package model defines the dashboard's domain entities (agents and issues),
// their status enums and the transition tables that govern them.
package model

import "time"

// AgentStatus is an agent's working state.
type AgentStatus string

const (
	// AgentIdle means the agent has no issue and is waiting for work.
	AgentIdle AgentStatus = "idle"

	// AgentWorking means the agent is paired with exactly one issue.
	AgentWorking AgentStatus = "working"

	// AgentBlocked means the agent cannot make progress (see BlockReason).
	AgentBlocked AgentStatus = "blocked"
)

// Valid reports whether s is one of the known agent statuses.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentIdle, AgentWorking, AgentBlocked:
		return true
	}
	return false
}

// agentTransitions is the closed transition table for agents.
var agentTransitions = map[AgentStatus][]AgentStatus{
	AgentIdle:    {AgentWorking, AgentBlocked},
	AgentWorking: {AgentIdle, AgentBlocked},
	AgentBlocked: {AgentIdle, AgentWorking},
}

// CanTransitionAgent reports whether an agent may move from one status to another.
func CanTransitionAgent(from, to AgentStatus) bool {
	for _, next := range agentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Agent is a worker shown on the dashboard.
//
// CurrentIssueID and BlockReason use "" for "none". An Agent value is
// treated as immutable once stored: mutators copy, change and re-store.
type Agent struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Status           AgentStatus `json:"status"`
	CurrentIssueID   string      `json:"currentIssueId,omitempty"`
	BlockReason      string      `json:"blockReason,omitempty"`
	LastActivity     time.Time   `json:"lastActivity,omitzero"`
	LastStatusChange time.Time   `json:"lastStatusChange,omitzero"`
	CreatedAt        time.Time   `json:"createdAt,omitzero"`
	UpdatedAt        time.Time   `json:"updatedAt,omitzero"`
}

// IsAssigned reports whether the agent holds an issue.
func (a Agent) IsAssigned() bool {
	return a.CurrentIssueID != ""
}
