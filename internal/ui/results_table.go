package ui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/value"
)

const (
	pathMinWidth  = 20
	attrMinWidth  = 8
	attrMaxWidth  = 32
	columnPadding = 2
)

// ResultsTable renders query results: one row per entity, its path first
// and then one column per attribute.
type ResultsTable struct {
	display *DisplayContext
	columns []string
	rows    [][]string
}

// NewResultsTable creates a table showing the given attribute columns.
func NewResultsTable(display *DisplayContext, columns []string) *ResultsTable {
	if display == nil {
		display = NewDisplayContextWithWidth(DefaultTermWidth)
	}
	return &ResultsTable{display: display, columns: columns}
}

// Add appends an entity. Attributes it lacks render as null.
func (t *ResultsTable) Add(e entity.Entity) {
	row := make([]string, 0, len(t.columns)+1)
	path := e.Path()
	if e.IsDirectory() {
		path += "/"
	}
	row = append(row, path)
	for _, name := range t.columns {
		a, ok := e.Attribute(name)
		if !ok {
			row = append(row, FormatValue(value.Null))
			continue
		}
		row = append(row, FormatValue(a.Value))
	}
	t.rows = append(t.rows, row)
}

// Len is the number of entities added.
func (t *ResultsTable) Len() int { return len(t.rows) }

// widths gives every attribute column its content width up to
// attrMaxWidth and leaves the rest of the terminal to the path.
func (t *ResultsTable) widths() []int {
	widths := make([]int, len(t.columns)+1)
	for i, name := range t.columns {
		widths[i+1] = max(attrMinWidth, len(name))
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	used := 0
	for i := 1; i < len(widths); i++ {
		widths[i] = min(widths[i], attrMaxWidth)
		used += widths[i] + columnPadding
	}
	available := max(t.display.AvailableWidth(used), pathMinWidth)
	widths[0] = min(widths[0], available)
	return widths
}

// Render generates the table. An empty table renders as "".
func (t *ResultsTable) Render() string {
	if len(t.rows) == 0 {
		return ""
	}
	widths := t.widths()

	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = TruncateWithEllipsis(cell, widths[j])
		}
		rows[i] = cells
	}

	headers := append([]string{"path"}, t.columns...)
	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle()
			if row == table.HeaderRow {
				style = AccentBold
			}
			if col < len(headers)-1 {
				style = style.PaddingRight(columnPadding)
			}
			return style
		}).
		Headers(headers...).
		Rows(rows...)

	return tbl.Render()
}

// FormatValue renders v for a table cell. Null is muted.
func FormatValue(v value.Value) string {
	if v.IsNull() {
		return Muted.Render("null")
	}
	return v.String()
}

// Columns lists the attribute names present on any of the entities,
// sorted, with the names in skip left out.
func Columns(entities []entity.Entity, skip ...string) []string {
	seen := map[string]bool{}
	for _, name := range skip {
		seen[name] = true
	}
	var out []string
	for _, e := range entities {
		for _, a := range e.Attributes() {
			if !seen[a.Name] {
				seen[a.Name] = true
				out = append(out, a.Name)
			}
		}
	}
	slices.Sort(out)
	return out
}

// TruncateWithEllipsis shortens s to at most maxLen cells, ending it with
// "..." when anything was cut. Styled strings are returned unchanged.
func TruncateWithEllipsis(s string, maxLen int) string {
	if lipgloss.Width(s) <= maxLen || strings.Contains(s, "\x1b") {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:min(max(maxLen, 0), len(runes))])
	}
	return string(runes[:min(maxLen-3, len(runes))]) + "..."
}
