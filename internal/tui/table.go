package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type table struct {
	headers []string
	rows    [][]string
}

// render aligns columns on display width. offset and limit window the rows;
// a limit of zero shows all of them.
func (t table) render(offset, limit int) string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = padRight(cell, widths[i])
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	out := []string{headerStyle.Render(line(t.headers)), dimStyle.Render(strings.Join(sep, "  "))}

	rows := t.rows
	if offset > 0 {
		if offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[offset:]
		}
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for _, r := range rows {
		out = append(out, line(r))
	}
	if len(t.rows) == 0 {
		out = append(out, dimStyle.Render("(no rows)"))
	}
	return strings.Join(out, "\n")
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
