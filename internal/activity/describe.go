package activity

import (
	"fmt"

	"github.com/agentboard/agentboard/internal/events"
)

var kinds = map[events.Type]Kind{
	events.TypeIssueCreated:       KindSuccess,
	events.TypeIssueStateChanged:  KindInfo,
	events.TypeIssueBlocked:       KindWarning,
	events.TypeIssueUnblocked:     KindSuccess,
	events.TypeIssueAssigned:      KindInfo,
	events.TypeIssueUnassigned:    KindInfo,
	events.TypeIssueCompleted:     KindSuccess,
	events.TypeAgentStatusChanged: KindInfo,
	events.TypeAgentAssigned:      KindInfo,
	events.TypeAgentUnassigned:    KindInfo,
	events.TypeSystemSnapshot:     KindInfo,
	events.TypeSystemAlert:        KindWarning,
	events.TypeSystemError:        KindError,
}

// Describe derives the severity and human-readable message for an event.
// Payloads that fail to decode still get a generic message.
func Describe(env events.Envelope) (Kind, string) {
	kind, ok := kinds[env.EventType]
	if !ok {
		return KindInfo, fmt.Sprintf("Unhandled event: %s", env.EventType)
	}

	p, err := events.Decode(env)
	if err != nil {
		return kind, fmt.Sprintf("%s (unreadable payload)", env.EventType)
	}

	switch p := p.(type) {
	case events.IssueCreated:
		return kind, fmt.Sprintf("Issue #%d created: %s", p.Issue.Number, p.Issue.Title)
	case events.IssueStateChanged:
		if p.From != "" {
			return kind, fmt.Sprintf("Issue %s moved from %s to %s", p.IssueID, p.From, p.To)
		}
		return kind, fmt.Sprintf("Issue %s moved to %s", p.IssueID, p.To)
	case events.IssueBlocked:
		return kind, fmt.Sprintf("Issue %s blocked: %s", p.IssueID, p.Reason)
	case events.IssueUnblocked:
		return kind, fmt.Sprintf("Issue %s unblocked", p.IssueID)
	case events.Assignment:
		switch p.Type {
		case events.TypeAgentAssigned, events.TypeIssueAssigned:
			return kind, fmt.Sprintf("Agent %s assigned to issue %s", p.AgentID, p.IssueID)
		default:
			return kind, fmt.Sprintf("Agent %s unassigned from issue %s", p.AgentID, p.IssueID)
		}
	case events.IssueCompleted:
		if p.PreviousAgentID != "" {
			return kind, fmt.Sprintf("Issue #%d completed by %s", p.Issue.Number, p.PreviousAgentID)
		}
		return kind, fmt.Sprintf("Issue #%d completed", p.Issue.Number)
	case events.AgentStatusChanged:
		if p.Reason != "" {
			return kind, fmt.Sprintf("Agent %s is now %s: %s", p.AgentID, p.NewStatus, p.Reason)
		}
		return kind, fmt.Sprintf("Agent %s is now %s", p.AgentID, p.NewStatus)
	case events.Snapshot:
		return kind, fmt.Sprintf("Snapshot received: %d agents, %d issues", len(p.Agents), len(p.Issues))
	case events.Alert:
		if p.Level == string(KindError) {
			return KindError, p.Message
		}
		return kind, p.Message
	case events.SystemError:
		if p.Code != "" {
			return kind, fmt.Sprintf("System error [%s]: %s", p.Code, p.Message)
		}
		return kind, fmt.Sprintf("System error: %s", p.Message)
	}
	return kind, string(env.EventType)
}
