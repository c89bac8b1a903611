package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/agentboard/agentboard/internal/activity"
	"github.com/agentboard/agentboard/internal/model"
)

func TestAgentStatusIcon(t *testing.T) {
	tests := []struct {
		status model.AgentStatus
		want   string
	}{
		{model.AgentWorking, IconWorking},
		{model.AgentBlocked, IconBlocked},
		{model.AgentIdle, IconIdle},
		{model.AgentStatus("mystery"), IconIdle},
	}
	for _, tt := range tests {
		if got := AgentStatusIcon(tt.status); got != tt.want {
			t.Errorf("AgentStatusIcon(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestRenderKeepsText(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"agent status", RenderAgentStatus(model.AgentBlocked), "blocked"},
		{"priority", RenderPriority(model.P0), "P0"},
		{"plain priority", RenderPriority(model.P3), "P3"},
		{"age", RenderAge(activity.AgeAt(now.Add(-3*time.Minute), now)), "3m"},
		{"unknown age", RenderAge(activity.AgeAt(time.Time{}, now)), "unknown"},
		{"activity kind", RenderActivityKind(activity.KindError), IconFail},
	}
	for _, tt := range tests {
		if !strings.Contains(tt.got, tt.want) {
			t.Errorf("%s: %q does not contain %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestContentHeight(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one", 1},
		{"one\ntwo", 2},
		{"one\ntwo\n", 3},
	}
	for _, tt := range tests {
		if got := contentHeight(tt.content); got != tt.want {
			t.Errorf("contentHeight(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestToPager_Disabled(t *testing.T) {
	var buf bytes.Buffer
	if err := ToPager(&buf, "board\n", PagerOptions{NoPager: true}); err != nil {
		t.Fatalf("ToPager: %v", err)
	}
	if buf.String() != "board\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestGetPagerCommand(t *testing.T) {
	t.Setenv("AGENTBOARD_PAGER", "more")
	t.Setenv("PAGER", "most")
	if got := getPagerCommand(); got != "more" {
		t.Errorf("getPagerCommand() = %q, want more", got)
	}

	t.Setenv("AGENTBOARD_PAGER", "")
	if got := getPagerCommand(); got != "most" {
		t.Errorf("getPagerCommand() = %q, want most", got)
	}

	t.Setenv("PAGER", "")
	if got := getPagerCommand(); got != "less" {
		t.Errorf("getPagerCommand() = %q, want less", got)
	}
}
