package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentboard/agentboard/internal/model"
)

// ErrUnknownEventType is returned by Decode for types outside the closed set.
var ErrUnknownEventType = errors.New("unknown event type")

// Payload is the typed body of one event type.
type Payload interface {
	EventType() Type
}

// subjects is implemented by payloads that reference an agent and/or issue,
// so New can fill in the envelope's routing ids.
type subjects interface {
	subjects() (agentID, issueID string)
}

// DecodeError reports a payload that does not match its event type's shape.
type DecodeError struct {
	EventID string
	Type    Type
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decoding %s payload (event %s): %s", e.Type, e.EventID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IssueCreated carries a newly created issue.
type IssueCreated struct {
	Issue model.Issue `json:"issue"`
}

// IssueStateChanged moves an issue along the workflow. From is optional; when
// present it must match the issue's current state.
type IssueStateChanged struct {
	IssueID string           `json:"issue_id"`
	From    model.IssueState `json:"from,omitempty"`
	To      model.IssueState `json:"to"`
}

// IssueBlocked marks an issue blocked.
type IssueBlocked struct {
	IssueID string `json:"issue_id"`
	Reason  string `json:"reason"`
}

// IssueUnblocked clears an issue's block.
type IssueUnblocked struct {
	IssueID string `json:"issue_id"`
}

// Assignment pairs (or unpairs) an agent and an issue. It is the payload of
// agent.assigned, agent.unassigned, issue.assigned and issue.unassigned;
// Type records which one.
type Assignment struct {
	Type    Type   `json:"-"`
	AgentID string `json:"agent_id"`
	IssueID string `json:"issue_id"`
}

// IssueCompleted carries the final issue and the agent that worked it.
type IssueCompleted struct {
	Issue           model.Issue `json:"issue"`
	PreviousAgentID string      `json:"previous_agent_id,omitempty"`
}

// AgentStatusChanged requests an agent status transition.
type AgentStatusChanged struct {
	AgentID   string            `json:"agent_id"`
	OldStatus model.AgentStatus `json:"old_status,omitempty"`
	NewStatus model.AgentStatus `json:"new_status"`
	Reason    string            `json:"reason,omitempty"`
}

// Snapshot is a full point-in-time dump used to resynchronise.
type Snapshot struct {
	Agents     []model.Agent `json:"agents"`
	Issues     []model.Issue `json:"issues"`
	CurrentSeq int64         `json:"currentSeq"`
}

// Alert is an operator-facing notice.
type Alert struct {
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

// SystemError reports a server-side failure.
type SystemError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (IssueCreated) EventType() Type       { return TypeIssueCreated }
func (IssueStateChanged) EventType() Type  { return TypeIssueStateChanged }
func (IssueBlocked) EventType() Type       { return TypeIssueBlocked }
func (IssueUnblocked) EventType() Type     { return TypeIssueUnblocked }
func (a Assignment) EventType() Type       { return a.Type }
func (IssueCompleted) EventType() Type     { return TypeIssueCompleted }
func (AgentStatusChanged) EventType() Type { return TypeAgentStatusChanged }
func (Snapshot) EventType() Type           { return TypeSystemSnapshot }
func (Alert) EventType() Type              { return TypeSystemAlert }
func (SystemError) EventType() Type        { return TypeSystemError }

func (p IssueCreated) subjects() (string, string)       { return "", p.Issue.ID }
func (p IssueStateChanged) subjects() (string, string)  { return "", p.IssueID }
func (p IssueBlocked) subjects() (string, string)       { return "", p.IssueID }
func (p IssueUnblocked) subjects() (string, string)     { return "", p.IssueID }
func (p Assignment) subjects() (string, string)         { return p.AgentID, p.IssueID }
func (p IssueCompleted) subjects() (string, string)     { return p.PreviousAgentID, p.Issue.ID }
func (p AgentStatusChanged) subjects() (string, string) { return p.AgentID, "" }

// Decode parses the envelope's payload into the typed struct for its event
// type. Missing agent/issue ids fall back to the envelope's routing ids.
// Unknown types return an error wrapping ErrUnknownEventType.
func Decode(env Envelope) (Payload, error) {
	fail := func(reason string, err error) error {
		return &DecodeError{EventID: env.EventID, Type: env.EventType, Reason: reason, Err: err}
	}
	unmarshal := func(v any) error {
		if len(env.Payload) == 0 || string(env.Payload) == "null" {
			return fail("missing payload", nil)
		}
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return fail("malformed payload", err)
		}
		return nil
	}

	switch env.EventType {
	case TypeIssueCreated:
		var p IssueCreated
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		if p.Issue.ID == "" {
			return nil, fail("issue.id is required", nil)
		}
		if !p.Issue.State.Valid() {
			return nil, fail(fmt.Sprintf("invalid issue state %q", p.Issue.State), nil)
		}
		return p, nil

	case TypeIssueStateChanged:
		var p IssueStateChanged
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		p.IssueID = orDefault(p.IssueID, env.IssueID)
		if p.IssueID == "" {
			return nil, fail("issue_id is required", nil)
		}
		if !p.To.Valid() {
			return nil, fail(fmt.Sprintf("invalid target state %q", p.To), nil)
		}
		return p, nil

	case TypeIssueBlocked:
		var p IssueBlocked
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		p.IssueID = orDefault(p.IssueID, env.IssueID)
		if p.IssueID == "" {
			return nil, fail("issue_id is required", nil)
		}
		return p, nil

	case TypeIssueUnblocked:
		var p IssueUnblocked
		// An unblock needs nothing beyond the routing id.
		if len(env.Payload) > 0 && string(env.Payload) != "null" {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return nil, fail("malformed payload", err)
			}
		}
		p.IssueID = orDefault(p.IssueID, env.IssueID)
		if p.IssueID == "" {
			return nil, fail("issue_id is required", nil)
		}
		return p, nil

	case TypeAgentAssigned, TypeAgentUnassigned, TypeIssueAssigned, TypeIssueUnassigned:
		p := Assignment{Type: env.EventType}
		if len(env.Payload) > 0 && string(env.Payload) != "null" {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return nil, fail("malformed payload", err)
			}
		}
		p.AgentID = orDefault(p.AgentID, env.AgentID)
		p.IssueID = orDefault(p.IssueID, env.IssueID)
		if p.AgentID == "" || p.IssueID == "" {
			return nil, fail("agent_id and issue_id are required", nil)
		}
		return p, nil

	case TypeIssueCompleted:
		var p IssueCompleted
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		p.Issue.ID = orDefault(p.Issue.ID, env.IssueID)
		if p.Issue.ID == "" {
			return nil, fail("issue.id is required", nil)
		}
		return p, nil

	case TypeAgentStatusChanged:
		var p AgentStatusChanged
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		p.AgentID = orDefault(p.AgentID, env.AgentID)
		if p.AgentID == "" {
			return nil, fail("agent_id is required", nil)
		}
		if !p.NewStatus.Valid() {
			return nil, fail(fmt.Sprintf("invalid new_status %q", p.NewStatus), nil)
		}
		return p, nil

	case TypeSystemSnapshot:
		var p Snapshot
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		for _, a := range p.Agents {
			if a.ID == "" {
				return nil, fail("snapshot agent without id", nil)
			}
		}
		for _, is := range p.Issues {
			if is.ID == "" {
				return nil, fail("snapshot issue without id", nil)
			}
		}
		return p, nil

	case TypeSystemAlert:
		var p Alert
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil

	case TypeSystemError:
		var p SystemError
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.EventType)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
