package store

import (
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/agentboard/agentboard/internal/model"
)

// IssueStore is the current set of issues keyed by id.
type IssueStore struct {
	mu     sync.RWMutex
	issues map[string]model.Issue
}

// NewIssueStore creates an empty issue store.
func NewIssueStore() *IssueStore {
	return &IssueStore{issues: map[string]model.Issue{}}
}

// Upsert inserts or replaces an issue by id.
func (s *IssueStore) Upsert(is model.Issue) {
	s.UpsertMany([]model.Issue{is})
}

// UpsertMany inserts or replaces several issues in one swap.
func (s *IssueStore) UpsertMany(issues []model.Issue) {
	if len(issues) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.issues)
	for _, is := range issues {
		next[is.ID] = is
	}
	s.issues = next
}

// SetAll replaces the whole store, as on a snapshot.
func (s *IssueStore) SetAll(issues []model.Issue) {
	next := make(map[string]model.Issue, len(issues))
	for _, is := range issues {
		next[is.ID] = is
	}
	s.mu.Lock()
	s.issues = next
	s.mu.Unlock()
}

// Remove deletes issues by id.
func (s *IssueStore) Remove(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next map[string]model.Issue
	for _, id := range ids {
		if _, ok := s.issues[id]; !ok {
			continue
		}
		if next == nil {
			next = maps.Clone(s.issues)
		}
		delete(next, id)
	}
	if next != nil {
		s.issues = next
	}
}

// Clear removes every issue.
func (s *IssueStore) Clear() {
	s.SetAll(nil)
}

// BlockIssue marks an issue blocked. A reason is required.
func (s *IssueStore) BlockIssue(id, reason string, at time.Time) error {
	if reason == "" {
		return fmt.Errorf("issue %s: block reason is required", id)
	}
	return s.update(id, func(is *model.Issue) {
		is.IsBlocked = true
		is.BlockReason = reason
		is.UpdatedAt = at
	})
}

// UnblockIssue clears an issue's block.
func (s *IssueStore) UnblockIssue(id string, at time.Time) error {
	return s.update(id, func(is *model.Issue) {
		is.IsBlocked = false
		is.BlockReason = ""
		is.UpdatedAt = at
	})
}

func (s *IssueStore) update(id string, fn func(*model.Issue)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	is, ok := s.issues[id]
	if !ok {
		return fmt.Errorf("issue %s not found", id)
	}
	fn(&is)
	next := maps.Clone(s.issues)
	next[id] = is
	s.issues = next
	return nil
}

// Get returns the issue with the given id.
func (s *IssueStore) Get(id string) (model.Issue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	is, ok := s.issues[id]
	return is, ok
}

// All returns the current map. Callers must not modify it.
func (s *IssueStore) All() map[string]model.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.issues
}

// Len returns the number of issues.
func (s *IssueStore) Len() int {
	return len(s.All())
}

// List returns all issues in kanban order (priority, then number).
func (s *IssueStore) List() []model.Issue {
	return s.filter(func(model.Issue) bool { return true })
}

// ByState returns the issues in one workflow state.
func (s *IssueStore) ByState(state model.IssueState) []model.Issue {
	return s.filter(func(is model.Issue) bool { return is.State == state })
}

// ByProject returns a project's issues.
func (s *IssueStore) ByProject(projectID string) []model.Issue {
	return s.filter(func(is model.Issue) bool { return is.ProjectID == projectID })
}

// ForAgent returns the issue assigned to an agent, if any.
func (s *IssueStore) ForAgent(agentID string) (model.Issue, bool) {
	for _, is := range s.All() {
		if is.AssignedAgentID == agentID {
			return is, true
		}
	}
	return model.Issue{}, false
}

// Blocked returns all blocked issues.
func (s *IssueStore) Blocked() []model.Issue {
	return s.filter(func(is model.Issue) bool { return is.IsBlocked })
}

// Column is one kanban column.
type Column struct {
	State  model.IssueState `json:"state"`
	Issues []model.Issue    `json:"issues"`
}

// Kanban groups issues into columns in workflow order, each sorted by
// priority then number. An empty projectID selects every project. All seven
// columns are always present.
func (s *IssueStore) Kanban(projectID string) []Column {
	byState := map[model.IssueState][]model.Issue{}
	for _, is := range s.All() {
		if projectID != "" && is.ProjectID != projectID {
			continue
		}
		byState[is.State] = append(byState[is.State], is)
	}
	cols := make([]Column, 0, len(model.Columns))
	for _, st := range model.Columns {
		issues := byState[st]
		sortIssues(issues)
		cols = append(cols, Column{State: st, Issues: issues})
	}
	return cols
}

func (s *IssueStore) filter(keep func(model.Issue) bool) []model.Issue {
	var out []model.Issue
	for _, is := range s.All() {
		if keep(is) {
			out = append(out, is)
		}
	}
	sortIssues(out)
	return out
}

func sortIssues(issues []model.Issue) {
	sort.Slice(issues, func(i, j int) bool { return model.Less(issues[i], issues[j]) })
}
