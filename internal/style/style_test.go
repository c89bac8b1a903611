package style

import (
	"bytes"
	"strings"
	"testing"
)

func TestStyleVariables(t *testing.T) {
	tests := []struct {
		name   string
		render func(...string) string
	}{
		{"Success", Success.Render},
		{"Warning", Warning.Render},
		{"Error", Error.Render},
		{"Info", Info.Render},
		{"Dim", Dim.Render},
		{"Bold", Bold.Render},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.render("test"); !strings.Contains(result, "test") {
				t.Errorf("Style %s.Render() = %q, want it to contain the text", tt.name, result)
			}
		})
	}
}

func TestPrefixVariables(t *testing.T) {
	for name, prefix := range map[string]string{
		"SuccessPrefix": SuccessPrefix,
		"WarningPrefix": WarningPrefix,
		"ErrorPrefix":   ErrorPrefix,
		"ArrowPrefix":   ArrowPrefix,
	} {
		if prefix == "" {
			t.Errorf("%s should not be empty", name)
		}
	}
}

func TestFwarning(t *testing.T) {
	var buf bytes.Buffer
	Fwarning(&buf, "journal %s is %d%% full", "events.jsonl", 90)

	out := buf.String()
	if !strings.Contains(out, "Warning:") || !strings.Contains(out, "journal events.jsonl is 90% full") {
		t.Errorf("Fwarning output = %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Fwarning output should end with a newline")
	}
}

func TestFsuccess(t *testing.T) {
	var buf bytes.Buffer
	Fsuccess(&buf, "wrote %s", "config.toml")
	if !strings.Contains(buf.String(), "wrote config.toml") {
		t.Errorf("Fsuccess output = %q", buf.String())
	}
}

func TestTable_Render(t *testing.T) {
	tbl := NewTable(
		Column{Name: "ID", Width: 6},
		Column{Name: "AGE", Width: 4, Align: AlignRight},
	).SetIndent("").SetHeaderSeparator(false)
	tbl.AddRow("a-1", "2m")
	tbl.AddRow("agent-0001", "1h")
	tbl.AddRow("only")

	lines := strings.Split(strings.TrimRight(stripAnsi(tbl.Render()), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	if lines[1] != "a-1      2m" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != "age...   1h" {
		t.Errorf("row 2 = %q", lines[2])
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d", tbl.Len())
	}
}

func TestTable_Empty(t *testing.T) {
	if got := NewTable().Render(); got != "" {
		t.Errorf("Render() = %q, want empty", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"agent-0001", 6, "age..."},
		{"blocked ⊘", 8, "block..."},
		{"ab", 2, ".."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent, width int
		want           string
	}{
		{50, 4, "[██░░] 50%"},
		{-5, 2, "[░░] 0%"},
		{150, 2, "[██] 100%"},
	}
	for _, tt := range tests {
		if got := ProgressBar(tt.percent, tt.width); got != tt.want {
			t.Errorf("ProgressBar(%d, %d) = %q, want %q", tt.percent, tt.width, got, tt.want)
		}
	}
}
