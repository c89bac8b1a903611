// Package events defines the wire envelope that carries dashboard events
// and the closed set of event types the state core understands.
//
// Envelopes arrive from the event source over the push channel (see
// internal/connection) or from a local journal (see internal/journal).
// Payloads are decoded once, at the boundary, into one typed struct per
// event type; see Decode.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies an event. The set is closed; anything else is treated as
// a forward-compatible unknown type.
type Type string

// Issue events.
const (
	TypeIssueCreated      Type = "issue.created"
	TypeIssueStateChanged Type = "issue.state_changed"
	TypeIssueBlocked      Type = "issue.blocked"
	TypeIssueUnblocked    Type = "issue.unblocked"
	TypeIssueAssigned     Type = "issue.assigned"
	TypeIssueUnassigned   Type = "issue.unassigned"
	TypeIssueCompleted    Type = "issue.completed"
)

// Agent events.
const (
	TypeAgentStatusChanged Type = "agent.status_changed"
	TypeAgentAssigned      Type = "agent.assigned"
	TypeAgentUnassigned    Type = "agent.unassigned"
)

// System events.
const (
	TypeSystemSnapshot Type = "system.snapshot"
	TypeSystemAlert    Type = "system.alert"
	TypeSystemError    Type = "system.error"
)

// AllTypes lists every known event type.
var AllTypes = []Type{
	TypeIssueCreated,
	TypeIssueStateChanged,
	TypeIssueBlocked,
	TypeIssueUnblocked,
	TypeIssueAssigned,
	TypeIssueUnassigned,
	TypeIssueCompleted,
	TypeAgentStatusChanged,
	TypeAgentAssigned,
	TypeAgentUnassigned,
	TypeSystemSnapshot,
	TypeSystemAlert,
	TypeSystemError,
}

// Known reports whether t is part of the closed event type set.
func (t Type) Known() bool {
	for _, k := range AllTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Envelope is the wire unit wrapping one domain event.
// It is never mutated after receipt.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType Type            `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	ProjectID string          `json:"project_id"`
	AgentID   string          `json:"agent_id,omitempty"`
	IssueID   string          `json:"issue_id,omitempty"`
	Seq       int64           `json:"seq"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// New builds an envelope for p with a fresh event id and the current time.
// Agent and issue ids are lifted from the payload when it names them.
func New(projectID string, seq int64, p Payload) (Envelope, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshaling %s payload: %w", p.EventType(), err)
	}
	env := Envelope{
		EventID:   uuid.New().String(),
		EventType: p.EventType(),
		Timestamp: time.Now().UTC(),
		ProjectID: projectID,
		Seq:       seq,
		Payload:   data,
	}
	if s, ok := p.(subjects); ok {
		env.AgentID, env.IssueID = s.subjects()
	}
	return env, nil
}

// MustNew is New for payloads known to marshal (all payloads in this package do).
func MustNew(projectID string, seq int64, p Payload) Envelope {
	env, err := New(projectID, seq, p)
	if err != nil {
		panic(err)
	}
	return env
}

// WithID returns a copy of the envelope with the given event id.
func (e Envelope) WithID(id string) Envelope {
	e.EventID = id
	return e
}

// WithTimestamp returns a copy of the envelope stamped with ts.
func (e Envelope) WithTimestamp(ts time.Time) Envelope {
	e.Timestamp = ts
	return e
}
