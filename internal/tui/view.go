package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/recruitmetrics/internal/metrics"
	"github.com/jask/recruitmetrics/internal/service"
)

const footerHelp = "[1-5/tab] Tabs  [w] Weeks  [r] Reload  [i] Import  [q] Quit"

func (a *App) View() string {
	var body string
	switch {
	case a.tab == tabData:
		body = a.renderData()
	case !a.loaded:
		body = dimStyle.Render("loading...")
	case a.noData || a.dash == nil:
		body = warnStyle.Render(service.EmptyMessage)
	default:
		switch a.tab {
		case tabRecruiters:
			body = a.renderRecruiters()
		case tabTrends:
			body = a.renderTrends()
		case tabDetails:
			body = a.renderDetails()
		default:
			body = a.renderDashboard()
		}
	}

	out := []string{a.renderHeader(), "", body, "", dimStyle.Render(footerHelp)}
	if a.status != "" {
		style := subtleStyle
		if strings.HasPrefix(a.status, "error:") {
			style = errorStyle
		}
		out = append(out, style.Render(a.status))
	}
	return strings.Join(out, "\n")
}

func (a *App) renderHeader() string {
	name := a.cfg.App.Name
	if name == "" {
		name = "Recruitment Analytics"
	}
	tabs := make([]string, len(tabNames))
	for i, n := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, n)
		if tab(i) == a.tab {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = tabStyle.Render(label)
		}
	}
	title := titleStyle.Render(name)
	if a.dash != nil && !a.noData {
		title += subtleStyle.Render(fmt.Sprintf("  Week of %s  ·  %d weeks", a.dash.WeekOf, a.weeks))
	}
	return title + "\n" + strings.Join(tabs, "  ")
}

func (a *App) renderDashboard() string {
	d := a.dash
	ov := d.Overview
	h := ov.Headline
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCard("Total Screens", h.TotalScreens, false),
		renderCard("Avg Pass Rate", h.AvgPassRate, true),
		renderCard("Total Onsites", h.TotalOnsites, false),
		renderCard("Avg Conversion", h.AvgConversionRate, true),
	)

	lines := []string{
		headerStyle.Render(fmt.Sprintf("Overall performance  %s vs %s", ov.Week, ov.PreviousWeek)),
		cards,
	}
	if d.Star != "" {
		lines = append(lines, fmt.Sprintf("%s Star recruiter this week: %s", metrics.RecruiterEmoji(d.Star, d.Star), d.Star))
	}
	if d.AvgTimeToHire != nil {
		lines = append(lines, subtleStyle.Render(fmt.Sprintf("Average time to onsite: %.1f days", *d.AvgTimeToHire)))
	}
	lines = append(lines, "", renderStacked("Candidate sources by week", d.Sources, a.width, 12))
	return strings.Join(lines, "\n")
}

func (a *App) renderRecruiters() string {
	d := a.dash
	cards := make([]string, 0, len(d.Overview.Recruiters))
	for _, rc := range d.Overview.Recruiters {
		title := rc.Emoji + " " + rc.Recruiter
		body := strings.Join([]string{
			headerStyle.Render(title),
			"Screens    " + formatDelta(rc.Screens, false),
			"Pass rate  " + formatDelta(rc.PassRate, true),
			"Onsites    " + formatDelta(rc.Onsites, false),
			"Conversion " + formatDelta(rc.Conversion, true),
		}, "\n")
		cards = append(cards, cardStyle.Render(body))
	}
	lines := []string{
		headerStyle.Render(fmt.Sprintf("Recruiters  %s vs %s", d.Overview.Week, d.Overview.PreviousWeek)),
		lipgloss.JoinHorizontal(lipgloss.Top, cards...),
		"",
	}

	last := table{headers: []string{"Recruiter", "Screens", "Pass %", "Onsites", "Onsite pass %"}}
	for _, r := range d.LastWeek {
		last.rows = append(last.rows, []string{
			metrics.RecruiterEmoji(r.Recruiter, d.Star) + " " + r.Recruiter,
			fmt.Sprint(r.Screens),
			fmt.Sprintf("%.1f", r.ScreenPassRate),
			fmt.Sprint(r.Onsites),
			fmt.Sprintf("%.1f", r.OnsitePassRate),
		})
	}
	lines = append(lines, headerStyle.Render("Last week"), last.render(0, 0), "")

	stats := table{headers: []string{"Recruiter", "Screens", "Pass %", "Days between screens"}}
	for _, s := range d.RecruiterStats {
		stats.rows = append(stats.rows, []string{
			s.Recruiter,
			fmt.Sprint(s.Screens),
			fmt.Sprintf("%.1f", s.PassRate),
			fmt.Sprintf("%.2f", s.AvgDaysBetweenScreens),
		})
	}
	lines = append(lines, headerStyle.Render("All time"), stats.render(0, 0))
	return strings.Join(lines, "\n")
}

func (a *App) renderTrends() string {
	d := a.dash
	width := max(40, a.width/2)

	screens := make([]barPoint, 0, len(d.Screens))
	for _, m := range d.Screens {
		screens = append(screens, barPoint{Label: shortWeek(m.Week) + " " + m.Recruiter, Value: float64(m.TotalScreens)})
	}
	byRecruiter := make([]barPoint, 0, len(d.OnsitesByRecruiter))
	for _, m := range d.OnsitesByRecruiter {
		byRecruiter = append(byRecruiter, barPoint{Label: shortWeek(m.Week) + " " + m.Recruiter, Value: float64(m.Onsites)})
	}
	onsites := make([]barPoint, 0, len(d.Onsites))
	for _, m := range d.Onsites {
		onsites = append(onsites, barPoint{Label: shortWeek(m.Week) + " " + m.Interviewer, Value: float64(m.TotalOnsites)})
	}

	return strings.Join([]string{
		renderBars(fmt.Sprintf("Recruiter screens (last %d weeks)", a.weeks), screens, width, colorBlue),
		"",
		renderBars("Onsites by recruiter", byRecruiter, width, colorGreen),
		"",
		renderBars("Onsite interviews by interviewer", onsites, width, colorPeach),
	}, "\n")
}

func (a *App) renderDetails() string {
	d := a.dash
	t := table{headers: []string{"Week", "Recruiter", "Screens", "Passes", "Pass %", "Onsites", "Conversion %"}}
	for _, r := range d.Detailed {
		t.rows = append(t.rows, []string{
			r.Week,
			r.Recruiter,
			fmt.Sprint(r.TotalScreens),
			fmt.Sprint(r.Passes),
			fmt.Sprintf("%.1f", r.PassRate),
			fmt.Sprint(r.Onsites),
			fmt.Sprintf("%.1f", r.Conversion),
		})
	}
	limit := max(5, a.height-16)

	q := table{headers: []string{"Recruiter", "Screens", "Score 4+ %"}}
	for _, m := range d.Quality {
		q.rows = append(q.rows, []string{m.Recruiter, fmt.Sprint(m.Screens), fmt.Sprintf("%.1f", m.HighScoreRate)})
	}
	// most recent screens first
	lag := table{headers: []string{"Week", "Recruiter", "Candidate", "Days to onsite"}}
	for i := len(d.TimeToOnsite) - 1; i >= 0 && len(lag.rows) < 8; i-- {
		l := d.TimeToOnsite[i]
		lag.rows = append(lag.rows, []string{l.Week, l.Recruiter, l.Candidate, fmt.Sprint(l.Days)})
	}
	out := []string{
		headerStyle.Render("Detailed metrics") + dimStyle.Render("  [j/k] scroll"),
		t.render(a.detailOffset, limit),
		"",
		headerStyle.Render("Screen quality"),
		q.render(0, 0),
	}
	if len(lag.rows) > 0 {
		out = append(out, "", headerStyle.Render("Time to onsite"), lag.render(0, 0))
	}
	return strings.Join(out, "\n")
}

func (a *App) renderData() string {
	lines := []string{headerStyle.Render("Data management"), fmt.Sprintf("Records stored: %d", a.count), ""}

	cursor := " "
	if a.mode == modeImport {
		cursor = cursorStyle.Render("▏")
	}
	lines = append(lines, fmt.Sprintf("CSV path: %s%s", a.importPath, cursor))
	if a.mode == modeImport {
		lines = append(lines, dimStyle.Render("[enter] Import  [esc] Cancel"))
	} else {
		lines = append(lines, dimStyle.Render("[i] Edit path and import"))
	}
	if r := a.lastImport; r != nil {
		lines = append(lines, fmt.Sprintf("Last import: %s  %d rows, %d imported, %d skipped, %d errors",
			r.Filename, r.Rows, r.Imported, r.Skipped, len(r.Errors)))
		if len(r.Errors) > 0 {
			first := "First error: " + r.Errors[0].Error()
			if len(r.Errors) > 1 {
				first += fmt.Sprintf(" (+%d more)", len(r.Errors)-1)
			}
			lines = append(lines, errorStyle.Render(first))
		}
	}

	lines = append(lines, "", headerStyle.Render("Upload history"))
	if len(a.uploads) == 0 {
		lines = append(lines, dimStyle.Render("(no uploads yet)"))
	}
	for i, u := range a.uploads {
		marker := " "
		if i == a.uploadCursor {
			marker = cursorStyle.Render("▶")
		}
		lines = append(lines, fmt.Sprintf("%s %-32s %s  %d records", marker, u.Filename,
			u.UploadTimestamp.In(a.cfg.Location()).Format("2006-01-02 15:04"), u.RecordCount))
	}
	if len(a.uploads) > 0 {
		lines = append(lines, dimStyle.Render("[j/k] Move  [d] Delete"))
	}
	if a.mode == modeConfirmDelete && a.uploadCursor < len(a.uploads) {
		lines = append(lines, "", warnStyle.Render(fmt.Sprintf("Delete %s? [y] History only  [p] History and its interviews  [n] Cancel",
			a.uploads[a.uploadCursor].Filename)))
	}
	return strings.Join(lines, "\n")
}

func renderCard(title string, d metrics.Delta, pct bool) string {
	value := formatNumber(d.Current)
	if pct {
		value = fmt.Sprintf("%.1f%%", d.Current)
	}
	return cardStyle.Render(subtleStyle.Render(title) + "\n" + headerStyle.Render(value) + "\n" + formatChange(d, pct))
}

func formatDelta(d metrics.Delta, pct bool) string {
	value := formatNumber(d.Current)
	if pct {
		value = fmt.Sprintf("%.1f%%", d.Current)
	}
	return value + " " + formatChange(d, pct)
}

func formatChange(d metrics.Delta, pct bool) string {
	c := d.Change()
	s := formatNumber(c)
	if pct {
		s = fmt.Sprintf("%.1f%%", c)
	}
	switch {
	case c > 0:
		return upStyle.Render("▲ +" + s)
	case c < 0:
		return downStyle.Render("▼ " + s)
	default:
		return dimStyle.Render("± 0")
	}
}
