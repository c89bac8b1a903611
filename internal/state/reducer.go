package state

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/model"
)

// StateError reports an event that would violate a transition table or a
// pairing invariant. The snapshot it was applied to is unchanged.
type StateError struct {
	EventID string
	Type    events.Type
	Reason  string
}

func (e *StateError) Error() string {
	return e.Reason
}

func rejectf(format string, args ...any) error {
	return &StateError{Reason: fmt.Sprintf(format, args...)}
}

// IsStateError reports whether err is (or wraps) a *StateError.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// Apply returns the snapshot that results from applying env to s. s is never
// modified. Rejected events return a *StateError; payloads that do not
// decode return an *events.DecodeError. Event types outside the known set
// are appended to the log unchanged.
func Apply(s *Snapshot, env events.Envelope) (*Snapshot, error) {
	if s == nil {
		s = Empty()
	}
	if !env.EventType.Known() {
		return s.begin().commit(env), nil
	}

	payload, err := events.Decode(env)
	if err != nil {
		return nil, err
	}

	t := s.begin()
	ts := env.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	switch p := payload.(type) {
	case events.IssueCreated:
		err = t.createIssue(p, ts)
	case events.IssueStateChanged:
		err = t.changeIssueState(p, ts)
	case events.IssueBlocked:
		err = t.blockIssue(p, ts)
	case events.IssueUnblocked:
		err = t.unblockIssue(p, ts)
	case events.IssueCompleted:
		err = t.completeIssue(p, ts)
	case events.Assignment:
		switch p.Type {
		case events.TypeAgentAssigned, events.TypeIssueAssigned:
			err = t.assign(p, ts)
		default:
			err = t.unassign(p, ts)
		}
	case events.AgentStatusChanged:
		err = t.changeAgentStatus(p, ts)
	case events.Snapshot:
		t.replaceAll(p)
	case events.Alert, events.SystemError:
		// Log-only.
	}
	if err != nil {
		var se *StateError
		if errors.As(err, &se) {
			se.EventID = env.EventID
			se.Type = env.EventType
		}
		return nil, err
	}
	return t.commit(env), nil
}

// txn accumulates the changes of one event. Maps are cloned on first write.
type txn struct {
	base    *Snapshot
	agents  map[string]*model.Agent
	issues  map[string]*model.Issue
	lastSeq int64
}

func (s *Snapshot) begin() *txn {
	return &txn{base: s, lastSeq: s.lastSeq}
}

func (t *txn) commit(env events.Envelope) *Snapshot {
	next := &Snapshot{
		agents:  t.base.agents,
		issues:  t.base.issues,
		lastSeq: max(t.lastSeq, env.Seq),
	}
	if t.agents != nil {
		next.agents = t.agents
	}
	if t.issues != nil {
		next.issues = t.issues
	}
	n := 1
	if t.base.log != nil {
		n = t.base.log.n + 1
	}
	next.log = &logNode{env: env, prev: t.base.log, n: n}
	return next
}

func (t *txn) agent(id string) (model.Agent, bool) {
	m := t.base.agents
	if t.agents != nil {
		m = t.agents
	}
	a, ok := m[id]
	if !ok {
		return model.Agent{}, false
	}
	return *a, true
}

func (t *txn) issue(id string) (model.Issue, bool) {
	m := t.base.issues
	if t.issues != nil {
		m = t.issues
	}
	is, ok := m[id]
	if !ok {
		return model.Issue{}, false
	}
	return *is, true
}

func (t *txn) putAgent(a model.Agent) {
	if t.agents == nil {
		t.agents = maps.Clone(t.base.agents)
	}
	t.agents[a.ID] = &a
}

func (t *txn) putIssue(is model.Issue) {
	if t.issues == nil {
		t.issues = maps.Clone(t.base.issues)
	}
	t.issues[is.ID] = &is
}

func (t *txn) assign(p events.Assignment, ts time.Time) error {
	agent, ok := t.agent(p.AgentID)
	if !ok {
		return rejectf("Agent %s not found", p.AgentID)
	}
	issue, ok := t.issue(p.IssueID)
	if !ok {
		return rejectf("Issue %s not found", p.IssueID)
	}
	if agent.Status != model.AgentIdle {
		return rejectf("Agent %s is %s, cannot be assigned. Must be idle.", agent.ID, agent.Status)
	}
	if issue.State != model.StateDevelopment {
		return rejectf("Issue %s is %s, must be in development to be assigned", issue.ID, issue.State)
	}
	if issue.AssignedAgentID != "" {
		return rejectf("Issue %s is already assigned to agent %s", issue.ID, issue.AssignedAgentID)
	}

	agent.Status = model.AgentWorking
	agent.CurrentIssueID = issue.ID
	agent.BlockReason = ""
	agent.LastStatusChange = ts
	agent.LastActivity = ts
	agent.UpdatedAt = ts
	issue.AssignedAgentID = agent.ID
	issue.UpdatedAt = ts

	t.putAgent(agent)
	t.putIssue(issue)
	return nil
}

func (t *txn) unassign(p events.Assignment, ts time.Time) error {
	agent, ok := t.agent(p.AgentID)
	if !ok {
		return rejectf("Agent %s not found", p.AgentID)
	}
	issue, ok := t.issue(p.IssueID)
	if !ok {
		return rejectf("Issue %s not found", p.IssueID)
	}
	if agent.CurrentIssueID != issue.ID {
		return rejectf("Agent %s is not assigned to issue %s", agent.ID, issue.ID)
	}
	t.release(agent, issue, ts)
	return nil
}

// release returns a paired agent to idle and clears both sides of the pairing.
func (t *txn) release(agent model.Agent, issue model.Issue, ts time.Time) {
	agent.Status = model.AgentIdle
	agent.CurrentIssueID = ""
	agent.BlockReason = ""
	agent.LastStatusChange = ts
	agent.LastActivity = ts
	agent.UpdatedAt = ts
	t.putAgent(agent)

	if issue.AssignedAgentID == agent.ID {
		issue.AssignedAgentID = ""
		issue.UpdatedAt = ts
		t.putIssue(issue)
	}
}

// releaseIssue frees whichever agent the issue is paired with.
func (t *txn) releaseIssue(issue model.Issue, ts time.Time) model.Issue {
	if issue.AssignedAgentID == "" {
		return issue
	}
	if agent, ok := t.agent(issue.AssignedAgentID); ok && agent.CurrentIssueID == issue.ID {
		t.release(agent, issue, ts)
	}
	issue.AssignedAgentID = ""
	return issue
}

func (t *txn) changeAgentStatus(p events.AgentStatusChanged, ts time.Time) error {
	agent, ok := t.agent(p.AgentID)
	if !ok {
		return rejectf("Agent %s not found", p.AgentID)
	}
	if p.OldStatus != "" && p.OldStatus != agent.Status {
		return rejectf("Agent %s is %s, not %s", agent.ID, agent.Status, p.OldStatus)
	}
	if !model.CanTransitionAgent(agent.Status, p.NewStatus) {
		return rejectf("Invalid transition for agent %s: %s → %s", agent.ID, agent.Status, p.NewStatus)
	}

	switch p.NewStatus {
	case model.AgentIdle:
		if agent.CurrentIssueID != "" {
			if issue, ok := t.issue(agent.CurrentIssueID); ok {
				t.release(agent, issue, ts)
				return nil
			}
		}
		agent.CurrentIssueID = ""
		agent.BlockReason = ""
	case model.AgentWorking:
		if agent.CurrentIssueID == "" {
			return rejectf("Agent %s has no assigned issue, cannot start working", agent.ID)
		}
		agent.BlockReason = ""
	case model.AgentBlocked:
		if p.Reason == "" {
			return rejectf("Agent %s cannot be blocked without a reason", agent.ID)
		}
		agent.BlockReason = p.Reason
	}

	agent.Status = p.NewStatus
	agent.LastStatusChange = ts
	agent.LastActivity = ts
	agent.UpdatedAt = ts
	t.putAgent(agent)
	return nil
}

func (t *txn) createIssue(p events.IssueCreated, ts time.Time) error {
	issue := p.Issue

	// A re-delivered creation refreshes the descriptive fields only. Workflow
	// state, block status and pairing move through their own events.
	if existing, ok := t.issue(issue.ID); ok {
		issue.State = existing.State
		issue.IsBlocked = existing.IsBlocked
		issue.BlockReason = existing.BlockReason
		issue.AssignedAgentID = existing.AssignedAgentID
		if !existing.CreatedAt.IsZero() {
			issue.CreatedAt = existing.CreatedAt
		}
	} else {
		if issue.IsBlocked && issue.BlockReason == "" {
			return rejectf("Issue %s cannot be blocked without a reason", issue.ID)
		}
		if !issue.IsBlocked {
			issue.BlockReason = ""
		}
		issue.AssignedAgentID = ""
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = ts
	}
	if issue.UpdatedAt.IsZero() {
		issue.UpdatedAt = ts
	}
	t.putIssue(issue)
	return nil
}

func (t *txn) changeIssueState(p events.IssueStateChanged, ts time.Time) error {
	issue, ok := t.issue(p.IssueID)
	if !ok {
		return rejectf("Issue %s not found", p.IssueID)
	}
	if p.From != "" && p.From != issue.State {
		return rejectf("Issue %s is %s, not %s", issue.ID, issue.State, p.From)
	}
	if !model.CanTransitionIssue(issue.State, p.To) {
		return rejectf("Invalid transition for issue %s: %s → %s", issue.ID, issue.State, p.To)
	}

	if p.To.Terminal() {
		issue = t.releaseIssue(issue, ts)
	}
	issue.State = p.To
	issue.UpdatedAt = ts
	t.putIssue(issue)
	return nil
}

func (t *txn) blockIssue(p events.IssueBlocked, ts time.Time) error {
	issue, ok := t.issue(p.IssueID)
	if !ok {
		return rejectf("Issue %s not found", p.IssueID)
	}
	if p.Reason == "" {
		return rejectf("Issue %s cannot be blocked without a reason", issue.ID)
	}
	if issue.State.Terminal() {
		return rejectf("Issue %s is %s, cannot be blocked", issue.ID, issue.State)
	}
	issue.IsBlocked = true
	issue.BlockReason = p.Reason
	issue.UpdatedAt = ts
	t.putIssue(issue)
	return nil
}

func (t *txn) unblockIssue(p events.IssueUnblocked, ts time.Time) error {
	issue, ok := t.issue(p.IssueID)
	if !ok {
		return rejectf("Issue %s not found", p.IssueID)
	}
	issue.IsBlocked = false
	issue.BlockReason = ""
	issue.UpdatedAt = ts
	t.putIssue(issue)
	return nil
}

func (t *txn) completeIssue(p events.IssueCompleted, ts time.Time) error {
	issue := p.Issue
	if existing, ok := t.issue(issue.ID); ok {
		if existing.State == model.StateCancelled {
			return rejectf("Issue %s is cancelled, cannot be completed", issue.ID)
		}
		t.releaseIssue(existing, ts)
		if issue.CreatedAt.IsZero() {
			issue.CreatedAt = existing.CreatedAt
		}
	}
	if p.PreviousAgentID != "" {
		// Normally already released above; this covers an agent that still
		// points at an issue the board never saw.
		if agent, ok := t.agent(p.PreviousAgentID); ok && agent.CurrentIssueID == issue.ID {
			t.release(agent, model.Issue{}, ts)
		}
	}

	issue.State = model.StateDone
	issue.AssignedAgentID = ""
	issue.IsBlocked = false
	issue.BlockReason = ""
	issue.UpdatedAt = ts
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = ts
	}
	t.putIssue(issue)
	return nil
}

func (t *txn) replaceAll(p events.Snapshot) {
	t.agents = make(map[string]*model.Agent, len(p.Agents))
	for _, a := range p.Agents {
		a := a
		t.agents[a.ID] = &a
	}
	t.issues = make(map[string]*model.Issue, len(p.Issues))
	for _, is := range p.Issues {
		is := is
		t.issues[is.ID] = &is
	}
	t.lastSeq = max(t.lastSeq, p.CurrentSeq)
}
