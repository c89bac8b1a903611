package model

import (
	"sort"
	"testing"
)

func TestCanTransitionAgent(t *testing.T) {
	tests := []struct {
		from, to AgentStatus
		want     bool
	}{
		{AgentIdle, AgentWorking, true},
		{AgentIdle, AgentBlocked, true},
		{AgentIdle, AgentIdle, false},
		{AgentWorking, AgentIdle, true},
		{AgentWorking, AgentBlocked, true},
		{AgentWorking, AgentWorking, false},
		{AgentBlocked, AgentIdle, true},
		{AgentBlocked, AgentWorking, true},
		{"sleeping", AgentIdle, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransitionAgent(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransitionAgent(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCanTransitionIssue(t *testing.T) {
	allowed := map[IssueState][]IssueState{
		StateBacklog:     {StateAnalysis, StateCancelled},
		StateAnalysis:    {StateDevelopment, StateBacklog, StateCancelled},
		StateDevelopment: {StateTesting, StateAnalysis, StateCancelled},
		StateTesting:     {StateReview, StateDevelopment, StateCancelled},
		StateReview:      {StateDone, StateDevelopment, StateCancelled},
		StateDone:        nil,
		StateCancelled:   {StateBacklog},
	}

	for _, from := range Columns {
		for _, to := range Columns {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			if got := CanTransitionIssue(from, to); got != want {
				t.Errorf("CanTransitionIssue(%q, %q) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestDoneIsTerminal(t *testing.T) {
	for _, to := range Columns {
		if CanTransitionIssue(StateDone, to) {
			t.Errorf("done should not transition to %q", to)
		}
	}
	if !StateDone.Terminal() || !StateCancelled.Terminal() {
		t.Error("done and cancelled should be terminal")
	}
	if StateReview.Terminal() {
		t.Error("review should not be terminal")
	}
}

func TestValidEnums(t *testing.T) {
	if !AgentBlocked.Valid() || AgentStatus("paused").Valid() {
		t.Error("AgentStatus.Valid mismatch")
	}
	if !StateTesting.Valid() || IssueState("archived").Valid() {
		t.Error("IssueState.Valid mismatch")
	}
	if !P3.Valid() || Priority("P9").Valid() {
		t.Error("Priority.Valid mismatch")
	}
}

func TestLess_PriorityThenNumber(t *testing.T) {
	issues := []Issue{
		{ID: "c", Number: 3, Priority: P2},
		{ID: "a", Number: 9, Priority: P0},
		{ID: "b", Number: 1, Priority: P2},
		{ID: "d", Number: 2, Priority: P0},
		{ID: "e", Number: 1, Priority: "??"},
	}
	sort.Slice(issues, func(i, j int) bool { return Less(issues[i], issues[j]) })

	want := []string{"d", "a", "b", "c", "e"}
	for i, id := range want {
		if issues[i].ID != id {
			t.Fatalf("order[%d] = %q, want %q (got %v)", i, issues[i].ID, id, ids(issues))
		}
	}
}

func ids(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.ID
	}
	return out
}
