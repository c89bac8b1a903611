package store

import (
	"reflect"
	"testing"
	"time"

	"github.com/agentboard/agentboard/internal/model"
)

func mapID[V any](m map[string]V) uintptr {
	return reflect.ValueOf(m).Pointer()
}

func TestAgentStore_UpsertSwapsMap(t *testing.T) {
	s := NewAgentStore()
	before := s.All()

	s.Upsert(model.Agent{ID: "a1", Name: "Toast", Status: model.AgentIdle})
	after := s.All()

	if mapID(before) == mapID(after) {
		t.Fatal("Upsert should swap in a new map")
	}
	if len(before) != 0 {
		t.Errorf("previous map was modified: %v", before)
	}
	if a, ok := s.Get("a1"); !ok || a.Name != "Toast" {
		t.Errorf("Get(a1) = %+v, %v", a, ok)
	}

	s.Upsert(model.Agent{ID: "a1", Name: "Toast", Status: model.AgentWorking})
	if a, _ := s.Get("a1"); a.Status != model.AgentWorking {
		t.Errorf("replace failed: %+v", a)
	}
	if after["a1"].Status != model.AgentIdle {
		t.Error("held map observed a later write")
	}
}

func TestAgentStore_RemoveAndSetAll(t *testing.T) {
	s := NewAgentStore()
	s.SetAll([]model.Agent{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}})
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}

	held := s.All()
	s.Remove("missing")
	if mapID(held) != mapID(s.All()) {
		t.Error("removing an unknown id should not swap the map")
	}

	s.Remove("a2")
	if _, ok := s.Get("a2"); ok {
		t.Error("a2 still present")
	}
	if _, ok := held["a2"]; !ok {
		t.Error("held map lost a2")
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d", s.Len())
	}
}

func TestAgentStore_Queries(t *testing.T) {
	s := NewAgentStore()
	s.UpsertMany([]model.Agent{
		{ID: "a3", Name: "Slit", Status: model.AgentWorking},
		{ID: "a1", Name: "Ace", Status: model.AgentIdle},
		{ID: "a2", Name: "Nux", Status: model.AgentIdle},
		{ID: "a4", Name: "Capable", Status: model.AgentBlocked},
	})

	idle := s.ByStatus(model.AgentIdle)
	if len(idle) != 2 || idle[0].Name != "Ace" || idle[1].Name != "Nux" {
		t.Errorf("ByStatus(idle) = %+v", idle)
	}
	counts := s.Counts()
	if counts[model.AgentIdle] != 2 || counts[model.AgentWorking] != 1 || counts[model.AgentBlocked] != 1 {
		t.Errorf("Counts = %v", counts)
	}
	if l := s.List(); len(l) != 4 || l[0].ID != "a1" {
		t.Errorf("List = %+v", l)
	}
}

func issueSet() []model.Issue {
	return []model.Issue{
		{ID: "i1", Number: 5, ProjectID: "web", State: model.StateDevelopment, Priority: model.P2},
		{ID: "i2", Number: 2, ProjectID: "web", State: model.StateDevelopment, Priority: model.P0},
		{ID: "i3", Number: 1, ProjectID: "api", State: model.StateDevelopment, Priority: model.P2},
		{ID: "i4", Number: 9, ProjectID: "web", State: model.StateBacklog, Priority: model.P3, AssignedAgentID: ""},
		{ID: "i5", Number: 3, ProjectID: "api", State: model.StateReview, Priority: model.P1, AssignedAgentID: "a1"},
	}
}

func TestIssueStore_Kanban(t *testing.T) {
	s := NewIssueStore()
	s.SetAll(issueSet())

	cols := s.Kanban("")
	if len(cols) != len(model.Columns) {
		t.Fatalf("columns = %d, want %d", len(cols), len(model.Columns))
	}
	for i, c := range cols {
		if c.State != model.Columns[i] {
			t.Errorf("column %d = %q, want %q", i, c.State, model.Columns[i])
		}
	}

	dev := cols[2]
	var got []string
	for _, is := range dev.Issues {
		got = append(got, is.ID)
	}
	want := []string{"i2", "i3", "i1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("development column = %v, want %v", got, want)
	}

	web := s.Kanban("web")
	if n := len(web[2].Issues); n != 2 {
		t.Errorf("web development issues = %d, want 2", n)
	}
	if n := len(web[4].Issues); n != 0 {
		t.Errorf("web review issues = %d, want 0", n)
	}
}

func TestIssueStore_Queries(t *testing.T) {
	s := NewIssueStore()
	s.SetAll(issueSet())

	if got := s.ByProject("api"); len(got) != 2 || got[0].ID != "i5" {
		t.Errorf("ByProject(api) = %+v", got)
	}
	if got := s.ByState(model.StateBacklog); len(got) != 1 || got[0].ID != "i4" {
		t.Errorf("ByState(backlog) = %+v", got)
	}
	if is, ok := s.ForAgent("a1"); !ok || is.ID != "i5" {
		t.Errorf("ForAgent(a1) = %+v, %v", is, ok)
	}
	if _, ok := s.ForAgent("nobody"); ok {
		t.Error("ForAgent(nobody) found an issue")
	}
}

func TestIssueStore_BlockIssue(t *testing.T) {
	s := NewIssueStore()
	s.SetAll(issueSet())
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.BlockIssue("i1", "", at); err == nil {
		t.Error("blocking without a reason should fail")
	}
	if err := s.BlockIssue("nope", "x", at); err == nil {
		t.Error("blocking an unknown issue should fail")
	}

	held := s.All()
	if err := s.BlockIssue("i1", "waiting on review", at); err != nil {
		t.Fatalf("BlockIssue: %v", err)
	}
	if held["i1"].IsBlocked {
		t.Error("held map observed the block")
	}
	is, _ := s.Get("i1")
	if !is.IsBlocked || is.BlockReason != "waiting on review" || !is.UpdatedAt.Equal(at) {
		t.Errorf("blocked issue = %+v", is)
	}
	if got := s.Blocked(); len(got) != 1 {
		t.Errorf("Blocked = %+v", got)
	}

	if err := s.UnblockIssue("i1", at); err != nil {
		t.Fatalf("UnblockIssue: %v", err)
	}
	if is, _ := s.Get("i1"); is.IsBlocked || is.BlockReason != "" {
		t.Errorf("unblocked issue = %+v", is)
	}
}
