package ui

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// maxColumnWidth caps a column; longer cells are truncated with "...".
const maxColumnWidth = 64

// Cell is one styled table cell.
type Cell struct {
	Text  string
	Style lipgloss.Style
}

// Table is a box-drawn table whose columns size to their content.
type Table struct {
	Headers []string
	Rows    [][]Cell
}

// Add appends a row.
func (t *Table) Add(cells ...Cell) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.Rows {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(c.Text))
			}
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], maxColumnWidth)
	}
	return widths
}

// String renders the table.
func (t *Table) String() string {
	widths := t.widths()

	var sb strings.Builder
	border := func(left, mid, right string) {
		sb.WriteString(BorderStyle.Render(left))
		for i, w := range widths {
			sb.WriteString(BorderStyle.Render(strings.Repeat(Horizontal, w+2)))
			if i < len(widths)-1 {
				sb.WriteString(BorderStyle.Render(mid))
			}
		}
		sb.WriteString(BorderStyle.Render(right))
		sb.WriteString("\n")
	}

	border(TopLeft, TopT, TopRight)

	sb.WriteString(BorderStyle.Render(Vertical))
	for i, h := range t.Headers {
		sb.WriteString(HeaderStyle.Render(" " + padRight(h, widths[i]) + " "))
		sb.WriteString(BorderStyle.Render(Vertical))
	}
	sb.WriteString("\n")

	border(LeftT, Cross, RightT)

	for _, row := range t.Rows {
		sb.WriteString(BorderStyle.Render(Vertical))
		for i := range widths {
			var c Cell
			if i < len(row) {
				c = row[i]
			}
			sb.WriteString(c.Style.Render(" " + padRight(c.Text, widths[i]) + " "))
			sb.WriteString(BorderStyle.Render(Vertical))
		}
		sb.WriteString("\n")
	}

	border(BottomLeft, BottomT, BottomRight)
	return sb.String()
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) error {
	_, err := io.WriteString(w, t.String())
	return err
}

func cell(text string, style lipgloss.Style) Cell {
	return Cell{Text: text, Style: style}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
