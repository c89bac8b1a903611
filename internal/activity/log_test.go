package activity

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/model"
)

func TestLog_AddNewestFirst(t *testing.T) {
	l := NewLog(0, 0)
	for i := 0; i < 5; i++ {
		l.Addf(KindInfo, "entry %d", i)
	}

	items := l.Items()
	if len(items) != 5 {
		t.Fatalf("len = %d, want 5", len(items))
	}
	for i, it := range items {
		want := fmt.Sprintf("entry %d", 4-i)
		if it.Message != want {
			t.Errorf("items[%d] = %q, want %q", i, it.Message, want)
		}
		if it.ID == "" || it.Timestamp.IsZero() {
			t.Errorf("items[%d] missing id or timestamp: %+v", i, it)
		}
	}
}

func TestLog_AddIsBounded(t *testing.T) {
	l := NewLog(DefaultMaxItems, 0)
	for i := 0; i < 150; i++ {
		l.Addf(KindInfo, "entry %d", i)
	}
	if n := l.Len(); n > 100 {
		t.Errorf("len = %d, want <= 100", n)
	}
	if got := l.Items()[0].Message; got != "entry 149" {
		t.Errorf("newest = %q, want %q", got, "entry 149")
	}
}

func alert(id string) events.Envelope {
	return events.MustNew("proj", 0, events.Alert{Message: "hello " + id}).WithID(id)
}

func TestLog_ProcessEventDedups(t *testing.T) {
	l := NewLog(0, 0)

	if !l.ProcessEvent(alert("e1")) {
		t.Fatal("first delivery should be recorded")
	}
	if l.ProcessEvent(alert("e1")) {
		t.Error("redelivery should be rejected")
	}
	if l.Len() != 1 {
		t.Errorf("len = %d, want 1", l.Len())
	}
	if !l.Seen("e1") || l.Seen("e2") {
		t.Error("Seen reports the wrong ids")
	}
}

func TestLog_ProcessedSetIsBounded(t *testing.T) {
	l := NewLog(0, DefaultMaxProcessed)
	for i := 0; i < 1500; i++ {
		l.ProcessEvent(alert(fmt.Sprintf("e%d", i)))
	}
	if n := l.ProcessedCount(); n > 1100 {
		t.Errorf("processed ids = %d, want <= 1100", n)
	}
	if !l.Seen("e1499") {
		t.Error("newest id was trimmed")
	}
	if l.Seen("e0") {
		t.Error("oldest id survived the trim")
	}
}

func TestLog_ClearResetsBoth(t *testing.T) {
	l := NewLog(0, 0)
	l.ProcessEvent(alert("e1"))
	l.Clear()

	if l.Len() != 0 || l.ProcessedCount() != 0 {
		t.Fatalf("after Clear: len=%d processed=%d", l.Len(), l.ProcessedCount())
	}
	if !l.ProcessEvent(alert("e1")) {
		t.Error("id should be processable again after Clear")
	}
}

func TestLog_OnAdd(t *testing.T) {
	l := NewLog(0, 0)
	var got []Item
	l.OnAdd(func(it Item) { got = append(got, it) })

	l.Addf(KindWarning, "careful")
	if len(got) != 1 || got[0].Kind != KindWarning || got[0].Message != "careful" {
		t.Errorf("listener saw %+v", got)
	}
}

func TestLog_ProcessEventUsesEventTime(t *testing.T) {
	l := NewLog(0, 0)
	ts := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	env := alert("e1").WithTimestamp(ts)
	l.ProcessEvent(env)

	it := l.Items()[0]
	if !it.Timestamp.Equal(ts) || it.EventType != events.TypeSystemAlert {
		t.Errorf("item = %+v", it)
	}
}

func TestDescribe(t *testing.T) {
	issue := model.Issue{ID: "issue-42", Number: 42, Title: "Fix login", State: model.StateDevelopment}
	tests := []struct {
		name     string
		payload  events.Payload
		wantKind Kind
		wantMsg  string
	}{
		{"created", events.IssueCreated{Issue: issue}, KindSuccess, "Issue #42 created: Fix login"},
		{"blocked", events.IssueBlocked{IssueID: "issue-42", Reason: "waiting"}, KindWarning, "blocked: waiting"},
		{"unblocked", events.IssueUnblocked{IssueID: "issue-42"}, KindSuccess, "unblocked"},
		{"moved", events.IssueStateChanged{IssueID: "issue-42", From: model.StateDevelopment, To: model.StateTesting}, KindInfo, "from development to testing"},
		{"assigned", events.Assignment{Type: events.TypeAgentAssigned, AgentID: "agent-001", IssueID: "issue-42"}, KindInfo, "assigned to issue issue-42"},
		{"unassigned", events.Assignment{Type: events.TypeIssueUnassigned, AgentID: "agent-001", IssueID: "issue-42"}, KindInfo, "unassigned from"},
		{"completed", events.IssueCompleted{Issue: issue, PreviousAgentID: "agent-001"}, KindSuccess, "completed by agent-001"},
		{"status", events.AgentStatusChanged{AgentID: "agent-001", NewStatus: model.AgentBlocked, Reason: "tests"}, KindInfo, "is now blocked: tests"},
		{"snapshot", events.Snapshot{}, KindInfo, "0 agents, 0 issues"},
		{"alert", events.Alert{Message: "disk low"}, KindWarning, "disk low"},
		{"error", events.SystemError{Message: "boom", Code: "E1"}, KindError, "[E1]: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, msg := Describe(events.MustNew("proj", 1, tt.payload))
			if kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
			if !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestDescribe_UnknownAndMalformed(t *testing.T) {
	kind, msg := Describe(events.Envelope{EventID: "x", EventType: "agent.teleported"})
	if kind != KindInfo || !strings.Contains(msg, "agent.teleported") {
		t.Errorf("unknown: %q %q", kind, msg)
	}

	kind, msg = Describe(events.Envelope{EventID: "y", EventType: events.TypeIssueBlocked, Payload: []byte(`{`)})
	if kind != KindWarning || !strings.Contains(msg, "unreadable") {
		t.Errorf("malformed: %q %q", kind, msg)
	}
}
