package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/recruitmetrics/internal/metrics"
)

type barPoint struct {
	Label string
	Value float64
}

const barRune = "█"

// renderBars draws a horizontal bar chart scaled to the largest value.
func renderBars(title string, points []barPoint, width int, color lipgloss.Color) string {
	lines := []string{headerStyle.Render(title)}
	if len(points) == 0 {
		return strings.Join(append(lines, dimStyle.Render("(no data)")), "\n")
	}
	labelW, maxV := 0, 0.0
	for _, p := range points {
		labelW = max(labelW, lipgloss.Width(p.Label))
		maxV = math.Max(maxV, p.Value)
	}
	if maxV <= 0 {
		maxV = 1
	}
	barW := max(1, width-labelW-8)
	style := lipgloss.NewStyle().Foreground(color)
	for _, p := range points {
		n := int(math.Round(p.Value / maxV * float64(barW)))
		if p.Value > 0 && n < 1 {
			n = 1
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			padRight(p.Label, labelW),
			style.Render(strings.Repeat(barRune, n)),
			formatNumber(p.Value)))
	}
	return strings.Join(lines, "\n")
}

// renderStacked draws one stacked bar per week, one segment per source,
// followed by the week total and a legend.
func renderStacked(title string, d metrics.SourceDistribution, width, maxWeeks int) string {
	lines := []string{headerStyle.Render(title)}
	if len(d.Weeks) == 0 {
		return strings.Join(append(lines, dimStyle.Render("(no data)")), "\n")
	}
	totals := make([]metrics.WeekTotal, len(d.Totals))
	copy(totals, d.Totals)
	if maxWeeks > 0 && len(totals) > maxWeeks {
		totals = totals[len(totals)-maxWeeks:]
	}
	maxTotal := 1
	for _, t := range totals {
		maxTotal = max(maxTotal, t.Count)
	}
	barW := max(1, width-18)
	for _, t := range totals {
		var b strings.Builder
		for i, src := range d.Sources {
			n := d.Count(t.Week, src) * barW / maxTotal
			if n == 0 && d.Count(t.Week, src) > 0 {
				n = 1
			}
			b.WriteString(lipgloss.NewStyle().Foreground(seriesColor(i)).Render(strings.Repeat(barRune, n)))
		}
		lines = append(lines, fmt.Sprintf("%s %s %d", t.Week, b.String(), t.Count))
	}
	legend := make([]string, 0, len(d.Sources))
	for i, src := range d.Sources {
		legend = append(legend, lipgloss.NewStyle().Foreground(seriesColor(i)).Render("■")+" "+src)
	}
	lines = append(lines, subtleStyle.Render("  ")+strings.Join(legend, "  "))
	return strings.Join(lines, "\n")
}

// shortWeek turns "2024-W07" into "W07".
func shortWeek(week string) string {
	if i := strings.Index(week, "-"); i >= 0 {
		return week[i+1:]
	}
	return week
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
