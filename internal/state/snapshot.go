// Package state holds the dashboard's immutable state snapshot and the pure
// reducer that advances it one event at a time.
//
// A Snapshot is never modified after it is built. Apply returns a new
// Snapshot whose touched maps are fresh copies; untouched maps and entities
// are shared with the previous snapshot.
package state

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/model"
)

// Snapshot is a point-in-time view of all agents and issues together with
// the log of every event applied to reach it.
type Snapshot struct {
	agents  map[string]*model.Agent
	issues  map[string]*model.Issue
	log     *logNode
	lastSeq int64
}

// logNode is one entry of the append-only event log. Snapshots share the
// tail of the list, so appending never copies earlier entries.
type logNode struct {
	env  events.Envelope
	prev *logNode
	n    int
}

// Empty returns a snapshot with no agents, issues or events.
func Empty() *Snapshot {
	return &Snapshot{
		agents: map[string]*model.Agent{},
		issues: map[string]*model.Issue{},
	}
}

// New builds a snapshot from entity lists. Later duplicates win.
func New(agents []model.Agent, issues []model.Issue) *Snapshot {
	s := Empty()
	for _, a := range agents {
		a := a
		s.agents[a.ID] = &a
	}
	for _, is := range issues {
		is := is
		s.issues[is.ID] = &is
	}
	return s
}

// Agent returns a copy of the agent with the given id.
func (s *Snapshot) Agent(id string) (model.Agent, bool) {
	a, ok := s.agents[id]
	if !ok {
		return model.Agent{}, false
	}
	return *a, true
}

// Issue returns a copy of the issue with the given id.
func (s *Snapshot) Issue(id string) (model.Issue, bool) {
	is, ok := s.issues[id]
	if !ok {
		return model.Issue{}, false
	}
	return *is, true
}

// Agents returns all agents sorted by id.
func (s *Snapshot) Agents() []model.Agent {
	out := make([]model.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Issues returns all issues sorted by id.
func (s *Snapshot) Issues() []model.Issue {
	out := make([]model.Issue, 0, len(s.issues))
	for _, is := range s.issues {
		out = append(out, *is)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LastSeq is the highest sequence number applied so far.
func (s *Snapshot) LastSeq() int64 {
	return s.lastSeq
}

// EventCount is the number of events in the log.
func (s *Snapshot) EventCount() int {
	if s.log == nil {
		return 0
	}
	return s.log.n
}

// Events returns the event log in application order.
func (s *Snapshot) Events() []events.Envelope {
	out := make([]events.Envelope, s.EventCount())
	for n := s.log; n != nil; n = n.prev {
		out[n.n-1] = n.env
	}
	return out
}

// Compact returns a snapshot with the same entities and sequence watermark
// but an empty event log.
func (s *Snapshot) Compact() *Snapshot {
	return &Snapshot{agents: s.agents, issues: s.issues, lastSeq: s.lastSeq}
}

// Changes lists the entities that differ between two snapshots.
type Changes struct {
	Agents        []model.Agent
	Issues        []model.Issue
	RemovedAgents []string
	RemovedIssues []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Agents) == 0 && len(c.Issues) == 0 &&
		len(c.RemovedAgents) == 0 && len(c.RemovedIssues) == 0
}

// Diff reports the entities of s that are new or replaced relative to prev,
// and the ids present in prev but gone from s. Entities are compared by
// identity, which is exact because the reducer re-allocates every entity it
// touches.
func (s *Snapshot) Diff(prev *Snapshot) Changes {
	if prev == nil {
		prev = Empty()
	}
	var c Changes
	if !sameMap(s.agents, prev.agents) {
		for id, a := range s.agents {
			if prev.agents[id] != a {
				c.Agents = append(c.Agents, *a)
			}
		}
		for id := range prev.agents {
			if _, ok := s.agents[id]; !ok {
				c.RemovedAgents = append(c.RemovedAgents, id)
			}
		}
	}
	if !sameMap(s.issues, prev.issues) {
		for id, is := range s.issues {
			if prev.issues[id] != is {
				c.Issues = append(c.Issues, *is)
			}
		}
		for id := range prev.issues {
			if _, ok := s.issues[id]; !ok {
				c.RemovedIssues = append(c.RemovedIssues, id)
			}
		}
	}
	return c
}

// sameMap reports whether two maps are the same map object.
func sameMap[V any](a, b map[string]V) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// CheckInvariants verifies the agent/issue pairing rules:
// a working agent points at an issue that points back at it, an idle agent
// holds no issue, every assigned issue is held by exactly that agent, and
// blocked entities carry a reason.
//
// A blocked agent may still hold its issue: working → blocked keeps the
// pairing so the agent resumes the same work. "Holds an issue" therefore
// implies working or blocked, not working alone.
func (s *Snapshot) CheckInvariants() error {
	for id, a := range s.agents {
		switch a.Status {
		case model.AgentWorking:
			if a.CurrentIssueID == "" {
				return fmt.Errorf("agent %s is working without an issue", id)
			}
		case model.AgentIdle:
			if a.CurrentIssueID != "" {
				return fmt.Errorf("agent %s is idle but holds issue %s", id, a.CurrentIssueID)
			}
		case model.AgentBlocked:
			if a.BlockReason == "" {
				return fmt.Errorf("agent %s is blocked without a reason", id)
			}
		}
		if a.CurrentIssueID != "" {
			is, ok := s.issues[a.CurrentIssueID]
			if !ok {
				return fmt.Errorf("agent %s holds unknown issue %s", id, a.CurrentIssueID)
			}
			if is.AssignedAgentID != id {
				return fmt.Errorf("agent %s holds issue %s, which is assigned to %q", id, is.ID, is.AssignedAgentID)
			}
		}
	}
	for id, is := range s.issues {
		if is.IsBlocked && is.BlockReason == "" {
			return fmt.Errorf("issue %s is blocked without a reason", id)
		}
		if is.AssignedAgentID == "" {
			continue
		}
		a, ok := s.agents[is.AssignedAgentID]
		if !ok {
			return fmt.Errorf("issue %s is assigned to unknown agent %s", id, is.AssignedAgentID)
		}
		if a.CurrentIssueID != id {
			return fmt.Errorf("issue %s is assigned to %s, which holds %q", id, a.ID, a.CurrentIssueID)
		}
	}
	return nil
}
