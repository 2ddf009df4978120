package findings

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table is a small tabular result set with stringified cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Head returns a table holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n >= len(t.Rows) {
		return t
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// Text renders the table as a markdown grid for prompts. With index, a leading
// zero-based row number column is added.
func (t *Table) Text(index bool) string {
	if t == nil || len(t.Columns) == 0 {
		return ""
	}

	headers := t.Columns
	rows := t.Rows
	if index {
		headers = append([]string{""}, t.Columns...)
		rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = append([]string{strconv.Itoa(i)}, r...)
		}
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.MarkdownBorder()).
		BorderTop(false).
		BorderBottom(false).
		StyleFunc(func(row, col int) lipgloss.Style { return cell }).
		Headers(headers...).
		Rows(rows...).
		String()
}

// CSV renders the table with a header row.
func (t *Table) CSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return "", err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}
