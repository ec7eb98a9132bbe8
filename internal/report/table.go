package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// column defines a column in a summary table.
type column struct {
	name       string
	width      int
	alignRight bool
}

// table renders fixed-width rows with an optional styled header.
type table struct {
	w       io.Writer
	header  lipgloss.Style
	columns []column
}

// newTable sizes each column to fit its header and every row.
func newTable(w io.Writer, header lipgloss.Style, names []string, rows [][]string) *table {
	t := &table{w: w, header: header}
	for i, name := range names {
		c := column{name: name, width: utf8.RuneCountInString(name), alignRight: i > 0}
		for _, row := range rows {
			if i < len(row) {
				c.width = max(c.width, utf8.RuneCountInString(row[i]))
			}
		}
		t.columns = append(t.columns, c)
	}
	return t
}

func (t *table) writeHeader() {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	_, _ = fmt.Fprintln(t.w, t.header.Render(t.line(names)))
}

func (t *table) writeRow(values ...string) {
	_, _ = fmt.Fprintln(t.w, t.line(values))
}

func (t *table) line(values []string) string {
	cells := make([]string, len(t.columns))
	for i, c := range t.columns {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		pad := strings.Repeat(" ", max(0, c.width-utf8.RuneCountInString(v)))
		if c.alignRight {
			cells[i] = pad + v
		} else {
			cells[i] = v + pad
		}
	}
	return "  " + strings.TrimRight(strings.Join(cells, "  "), " ")
}
