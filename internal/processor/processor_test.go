package processor

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/agentboard/agentboard/internal/activity"
	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/model"
	"github.com/agentboard/agentboard/internal/state"
	"github.com/agentboard/agentboard/internal/store"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	p      *Processor
	agents *store.AgentStore
	issues *store.IssueStore
	log    *activity.Log
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		agents: store.NewAgentStore(),
		issues: store.NewIssueStore(),
		log:    activity.NewLog(0, 0),
	}
	h.p = New(h.agents, h.issues, h.log, opts)
	out := h.p.ApplySnapshot(events.Snapshot{
		Agents: []model.Agent{
			{ID: "agent-001", Name: "Toast", Status: model.AgentIdle},
			{ID: "agent-002", Name: "Nux", Status: model.AgentIdle},
		},
		Issues: []model.Issue{
			{ID: "issue-42", Number: 42, Title: "Fix login", ProjectID: "p", State: model.StateDevelopment, Priority: model.P1},
			{ID: "issue-43", Number: 43, Title: "Docs", ProjectID: "p", State: model.StateBacklog, Priority: model.P2},
		},
	})
	if out != Applied {
		t.Fatalf("seed snapshot: %v", out)
	}
	return h
}

func env(seq int64, p events.Payload) events.Envelope {
	return events.MustNew("p", seq, p).WithTimestamp(t0.Add(time.Duration(seq) * time.Second))
}

func assign(seq int64, agentID, issueID string) events.Envelope {
	return env(seq, events.Assignment{Type: events.TypeAgentAssigned, AgentID: agentID, IssueID: issueID})
}

func TestProcessEvent_SeedsStoresFromSnapshot(t *testing.T) {
	h := newHarness(t, Options{})
	if h.agents.Len() != 2 || h.issues.Len() != 2 {
		t.Fatalf("stores = %d agents, %d issues", h.agents.Len(), h.issues.Len())
	}
	if h.p.Snapshot().EventCount() != 0 {
		t.Error("snapshot should compact the event log")
	}
}

func TestProcessEvent_EndToEndAssignAndComplete(t *testing.T) {
	h := newHarness(t, Options{})

	if out := h.p.ProcessEvent(assign(1, "agent-001", "issue-42")); out != Applied {
		t.Fatalf("assign: %v", out)
	}
	a, _ := h.agents.Get("agent-001")
	is, _ := h.issues.Get("issue-42")
	if a.Status != model.AgentWorking || a.CurrentIssueID != "issue-42" || is.AssignedAgentID != "agent-001" {
		t.Fatalf("after assign: agent=%+v issue=%+v", a, is)
	}

	done := model.Issue{ID: "issue-42", Number: 42, Title: "Fix login", ProjectID: "p", State: model.StateDone, Priority: model.P1}
	if out := h.p.ProcessEvent(env(2, events.IssueCompleted{Issue: done, PreviousAgentID: "agent-001"})); out != Applied {
		t.Fatalf("complete: %v", out)
	}
	a, _ = h.agents.Get("agent-001")
	is, _ = h.issues.Get("issue-42")
	if a.Status != model.AgentIdle || a.CurrentIssueID != "" {
		t.Errorf("agent after completion = %+v", a)
	}
	if is.State != model.StateDone || is.AssignedAgentID != "" {
		t.Errorf("issue after completion = %+v", is)
	}
	if err := h.p.Snapshot().CheckInvariants(); err != nil {
		t.Error(err)
	}
}

func TestProcessEvent_Idempotent(t *testing.T) {
	h := newHarness(t, Options{})
	e := assign(1, "agent-001", "issue-42")

	h.p.ProcessEvent(e)
	agents, issues, n := h.agents.All(), h.issues.All(), h.log.Len()

	if out := h.p.ProcessEvent(e); out != Duplicate {
		t.Fatalf("redelivery outcome = %v, want duplicate", out)
	}
	if reflect.ValueOf(agents).Pointer() != reflect.ValueOf(h.agents.All()).Pointer() ||
		reflect.ValueOf(issues).Pointer() != reflect.ValueOf(h.issues.All()).Pointer() {
		t.Error("redelivery rewrote the stores")
	}
	if h.log.Len() != n {
		t.Errorf("activity grew from %d to %d on redelivery", n, h.log.Len())
	}
}

func TestProcessEvent_MalformedPayloadBetweenValidEvents(t *testing.T) {
	h := newHarness(t, Options{})

	bad := events.Envelope{
		EventID:   "bad-1",
		EventType: events.TypeIssueBlocked,
		Seq:       2,
		Payload:   []byte(`{"issue_id": 42,`),
	}
	outs := h.p.ProcessBatch([]events.Envelope{
		assign(1, "agent-001", "issue-42"),
		bad,
		env(3, events.IssueStateChanged{IssueID: "issue-43", From: model.StateBacklog, To: model.StateAnalysis}),
	})

	want := []Outcome{Applied, Rejected, Applied}
	if !reflect.DeepEqual(outs, want) {
		t.Fatalf("outcomes = %v, want %v", outs, want)
	}
	if is, _ := h.issues.Get("issue-43"); is.State != model.StateAnalysis {
		t.Errorf("event after the bad one was not applied: %+v", is)
	}
	if !hasItem(h.log, activity.KindError, "Failed to apply issue.blocked") {
		t.Errorf("no error entry for the bad payload: %+v", h.log.Items())
	}
}

func TestProcessEvent_StateErrorLeavesStores(t *testing.T) {
	h := newHarness(t, Options{})
	before := h.issues.All()

	if out := h.p.ProcessEvent(assign(1, "agent-001", "issue-43")); out != Rejected {
		t.Fatalf("outcome = %v, want rejected", out)
	}
	if reflect.ValueOf(before).Pointer() != reflect.ValueOf(h.issues.All()).Pointer() {
		t.Error("rejected event touched the issue store")
	}
	if !hasItem(h.log, activity.KindError, "must be in development") {
		t.Errorf("missing rejection entry: %+v", h.log.Items())
	}
}

func TestProcessEvent_HandlerPanicIsContained(t *testing.T) {
	reg := DefaultHandlers()
	reg.Register(events.TypeSystemAlert, func(*state.Snapshot, events.Envelope) (*state.Snapshot, error) {
		panic("boom")
	})
	h := newHarness(t, Options{Handlers: reg})

	if out := h.p.ProcessEvent(env(1, events.Alert{Message: "x"})); out != Rejected {
		t.Fatalf("panicking handler outcome = %v", out)
	}
	if out := h.p.ProcessEvent(assign(2, "agent-001", "issue-42")); out != Applied {
		t.Fatalf("next event outcome = %v", out)
	}
	if !hasItem(h.log, activity.KindError, "handler panic: boom") {
		t.Errorf("missing panic entry: %+v", h.log.Items())
	}
}

func TestProcessEvent_UnknownTypeIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	e := events.Envelope{EventID: "u-1", EventType: "agent.teleported", Seq: 1, Payload: []byte(`{}`)}

	if out := h.p.ProcessEvent(e); out != Ignored {
		t.Fatalf("outcome = %v, want ignored", out)
	}
	if h.p.Snapshot().EventCount() != 1 {
		t.Error("unknown event was not appended to the log")
	}
	if h.p.Sequencer().CurrentSeq() != 1 {
		t.Error("unknown event did not advance the watermark")
	}
}

func TestProcessEvent_MissingEventID(t *testing.T) {
	h := newHarness(t, Options{Sequencer: NewSequence(4)})
	var gaps int
	h.p.SetGapHandler(func(int64, int64) { gaps++ })

	e := assign(7, "agent-001", "issue-42").WithID("")
	if out := h.p.ProcessEvent(e); out != Rejected {
		t.Errorf("outcome = %v, want rejected", out)
	}
	if got := h.p.Sequencer().CurrentSeq(); got != 7 {
		t.Errorf("watermark = %d, want 7", got)
	}
	if gaps != 1 {
		t.Errorf("gap callback calls = %d, want 1", gaps)
	}
	if a, _ := h.agents.Get("agent-001"); a.Status != model.AgentIdle {
		t.Errorf("event without id was applied: %+v", a)
	}
}

func TestProcessEvent_GapDetection(t *testing.T) {
	h := newHarness(t, Options{Sequencer: NewSequence(10)})

	var calls [][2]int64
	h.p.SetGapHandler(func(current, received int64) {
		calls = append(calls, [2]int64{current, received})
	})

	h.p.ProcessEvent(env(15, events.Alert{Message: "late"}))

	if len(calls) != 1 || calls[0] != [2]int64{10, 15} {
		t.Fatalf("gap callback calls = %v, want [[10 15]]", calls)
	}
	if !hasItem(h.log, activity.KindWarning, "missing 4 events") {
		t.Errorf("missing gap warning: %+v", h.log.Items())
	}
	if got := h.p.Sequencer().CurrentSeq(); got != 15 {
		t.Errorf("watermark = %d, want 15", got)
	}

	// In-order and older events do not report a gap.
	h.p.ProcessEvent(env(16, events.Alert{Message: "next"}))
	h.p.ProcessEvent(env(12, events.Alert{Message: "old"}))
	if len(calls) != 1 {
		t.Errorf("gap callback calls = %d, want 1", len(calls))
	}
	if got := h.p.Sequencer().CurrentSeq(); got != 16 {
		t.Errorf("watermark regressed to %d", got)
	}
}

func TestProcessEvent_GapHandlerMayReplay(t *testing.T) {
	h := newHarness(t, Options{Sequencer: NewSequence(1)})
	missing := env(2, events.IssueStateChanged{IssueID: "issue-43", To: model.StateAnalysis})

	var replayed []Outcome
	h.p.SetGapHandler(func(current, received int64) {
		replayed = h.p.ProcessBatch([]events.Envelope{missing})
	})
	h.p.ProcessEvent(env(3, events.Alert{Message: "ahead"}))

	if len(replayed) != 1 || replayed[0] != Applied {
		t.Fatalf("replayed = %v", replayed)
	}
	if is, _ := h.issues.Get("issue-43"); is.State != model.StateAnalysis {
		t.Errorf("replayed event not applied: %+v", is)
	}
}

func TestProcessEvent_Observers(t *testing.T) {
	h := newHarness(t, Options{})
	var seen []Outcome
	h.p.OnProcessed(func(_ events.Envelope, out Outcome) { seen = append(seen, out) })

	e := assign(1, "agent-001", "issue-42")
	h.p.ProcessEvent(e)
	h.p.ProcessEvent(e)

	if want := []Outcome{Applied, Duplicate}; !reflect.DeepEqual(seen, want) {
		t.Errorf("observed %v, want %v", seen, want)
	}
}

func TestApplySnapshot_ReplacesAndAdvances(t *testing.T) {
	h := newHarness(t, Options{})
	h.p.ProcessEvent(assign(1, "agent-001", "issue-42"))

	out := h.p.ApplySnapshot(events.Snapshot{
		Agents:     []model.Agent{{ID: "agent-009", Status: model.AgentIdle}},
		CurrentSeq: 40,
	})
	if out != Applied {
		t.Fatalf("outcome = %v", out)
	}
	if h.agents.Len() != 1 || h.issues.Len() != 0 {
		t.Errorf("stores = %d agents, %d issues", h.agents.Len(), h.issues.Len())
	}
	if got := h.p.Sequencer().CurrentSeq(); got != 40 {
		t.Errorf("watermark = %d, want 40", got)
	}
}

func TestSequence_Monotonic(t *testing.T) {
	s := NewSequence(5)
	s.AdvanceSeq(3)
	if s.CurrentSeq() != 5 {
		t.Errorf("regressed to %d", s.CurrentSeq())
	}
	s.AdvanceSeq(9)
	if s.CurrentSeq() != 9 {
		t.Errorf("CurrentSeq = %d, want 9", s.CurrentSeq())
	}
}

func TestOutcome_String(t *testing.T) {
	for out, want := range map[Outcome]string{
		Applied: "applied", Duplicate: "duplicate", Rejected: "rejected", Ignored: "ignored", Outcome(9): "outcome(9)",
	} {
		if got := out.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(out), got, want)
		}
	}
}

func hasItem(l *activity.Log, kind activity.Kind, substr string) bool {
	for _, it := range l.Items() {
		if it.Kind == kind && strings.Contains(it.Message, substr) {
			return true
		}
	}
	return false
}
