// Package store holds the authoritative current-state containers that UI
// consumers query: one store for agents and one for issues.
//
// Every mutation swaps in a freshly built map. A map handed out by All is
// never written again, so readers can hold it (and compare it by identity
// to detect change) without locking.
package store

import (
	"maps"
	"sort"
	"sync"

	"github.com/agentboard/agentboard/internal/model"
)

// AgentStore is the current set of agents keyed by id.
type AgentStore struct {
	mu     sync.RWMutex
	agents map[string]model.Agent
}

// NewAgentStore creates an empty agent store.
func NewAgentStore() *AgentStore {
	return &AgentStore{agents: map[string]model.Agent{}}
}

// Upsert inserts or replaces an agent by id.
func (s *AgentStore) Upsert(a model.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.agents)
	next[a.ID] = a
	s.agents = next
}

// UpsertMany inserts or replaces several agents in one swap.
func (s *AgentStore) UpsertMany(agents []model.Agent) {
	if len(agents) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.agents)
	for _, a := range agents {
		next[a.ID] = a
	}
	s.agents = next
}

// SetAll replaces the whole store, as on a snapshot.
func (s *AgentStore) SetAll(agents []model.Agent) {
	next := make(map[string]model.Agent, len(agents))
	for _, a := range agents {
		next[a.ID] = a
	}
	s.mu.Lock()
	s.agents = next
	s.mu.Unlock()
}

// Remove deletes an agent. Removing an unknown id is a no-op that leaves the
// current map untouched.
func (s *AgentStore) Remove(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next map[string]model.Agent
	for _, id := range ids {
		if _, ok := s.agents[id]; !ok {
			continue
		}
		if next == nil {
			next = maps.Clone(s.agents)
		}
		delete(next, id)
	}
	if next != nil {
		s.agents = next
	}
}

// Clear removes every agent.
func (s *AgentStore) Clear() {
	s.SetAll(nil)
}

// Get returns the agent with the given id.
func (s *AgentStore) Get(id string) (model.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	return a, ok
}

// All returns the current map. Callers must not modify it.
func (s *AgentStore) All() map[string]model.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents
}

// Len returns the number of agents.
func (s *AgentStore) Len() int {
	return len(s.All())
}

// List returns all agents sorted by name, then id.
func (s *AgentStore) List() []model.Agent {
	return sortedAgents(s.All(), func(model.Agent) bool { return true })
}

// ByStatus returns the agents in the given status.
func (s *AgentStore) ByStatus(status model.AgentStatus) []model.Agent {
	return sortedAgents(s.All(), func(a model.Agent) bool { return a.Status == status })
}

// Counts returns the number of agents per status.
func (s *AgentStore) Counts() map[model.AgentStatus]int {
	counts := map[model.AgentStatus]int{}
	for _, a := range s.All() {
		counts[a.Status]++
	}
	return counts
}

func sortedAgents(m map[string]model.Agent, keep func(model.Agent) bool) []model.Agent {
	var out []model.Agent
	for _, a := range m {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
