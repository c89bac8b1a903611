package style

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column with name and width.
type Column struct {
	Name  string
	Width int
	Align Alignment
	Style lipgloss.Style
}

// Alignment specifies column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// Table provides styled table rendering.
type Table struct {
	columns     []Column
	rows        [][]string
	headerSep   bool
	indent      string
	headerStyle lipgloss.Style
}

// NewTable creates a new table with the given columns.
func NewTable(columns ...Column) *Table {
	return &Table{
		columns:     columns,
		headerSep:   true,
		indent:      "  ",
		headerStyle: Bold,
	}
}

// SetIndent sets the left indent for the table.
func (t *Table) SetIndent(indent string) *Table {
	t.indent = indent
	return t
}

// SetHeaderSeparator enables/disables the header separator line.
func (t *Table) SetHeaderSeparator(enabled bool) *Table {
	t.headerSep = enabled
	return t
}

// AddRow adds a row of values to the table. Missing cells are blank.
func (t *Table) AddRow(values ...string) *Table {
	for len(values) < len(t.columns) {
		values = append(values, "")
	}
	t.rows = append(t.rows, values)
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render returns the formatted table string.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(t.indent)
	for i, col := range t.columns {
		sb.WriteString(t.pad(t.headerStyle.Render(col.Name), col.Name, col.Width, col.Align))
		if i < len(t.columns)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("\n")

	if t.headerSep {
		sb.WriteString(t.indent)
		totalWidth := 0
		for i, col := range t.columns {
			totalWidth += col.Width
			if i < len(t.columns)-1 {
				totalWidth++ // space between columns
			}
		}
		sb.WriteString(Dim.Render(strings.Repeat("─", totalWidth)))
		sb.WriteString("\n")
	}

	for _, row := range t.rows {
		sb.WriteString(t.indent)
		for i, col := range t.columns {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			plainVal := stripAnsi(val)
			if lipgloss.Width(plainVal) > col.Width {
				plainVal = truncate(plainVal, col.Width)
				val = plainVal
			}
			if col.Style.Value() != "" {
				val = col.Style.Render(val)
			}
			sb.WriteString(t.pad(val, plainVal, col.Width, col.Align))
			if i < len(t.columns)-1 {
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// pad pads text to width. styledText may carry ANSI codes; plainText is
// the same text without them.
func (t *Table) pad(styledText, plainText string, width int, align Alignment) string {
	plainLen := lipgloss.Width(plainText)
	if plainLen >= width {
		return styledText
	}

	padding := width - plainLen

	switch align {
	case AlignRight:
		return strings.Repeat(" ", padding) + styledText
	case AlignCenter:
		left := padding / 2
		right := padding - left
		return strings.Repeat(" ", left) + styledText + strings.Repeat(" ", right)
	default:
		return styledText + strings.Repeat(" ", padding)
	}
}

// truncate shortens s to width cells, ending with "...".
func truncate(s string, width int) string {
	if width <= 3 {
		return strings.Repeat(".", max(width, 0))
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// stripAnsi removes ANSI escape sequences from a string.
func stripAnsi(s string) string {
	var result strings.Builder
	inEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if s[i] == 'm' {
				inEscape = false
			}
			continue
		}
		result.WriteByte(s[i])
	}
	return result.String()
}

// ProgressBar renders a simple progress bar.
func ProgressBar(percent int, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := (percent * width) / 100
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return fmt.Sprintf("[%s] %d%%", bar, percent)
}
