package metrics

import (
	"fmt"
	"time"

	"github.com/jask/recruitmetrics/internal/database/repository"
)

// WeekKey formats t as an ISO-8601 year-week key such as 2024-W05.
// Keys sort lexically in chronological order.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MondayOf returns midnight on the Monday of t's week, in t's location.
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// WeekOfLabel renders the Monday of t's week for headings, or N/A for the zero time.
func WeekOfLabel(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return MondayOf(t).Format("January 02, 2006")
}

// LatestDate returns the most recent interview date in the reporting location.
func (c *Calculator) LatestDate(records []repository.Interview) (time.Time, bool) {
	var latest time.Time
	for _, r := range records {
		if r.InterviewDate.After(latest) {
			latest = r.InterviewDate
		}
	}
	if latest.IsZero() {
		return time.Time{}, false
	}
	return latest.In(c.loc), true
}

// LatestWeek returns the week key of the most recent interview, or "" with no data.
func (c *Calculator) LatestWeek(records []repository.Interview) string {
	latest, ok := c.LatestDate(records)
	if !ok {
		return ""
	}
	return WeekKey(latest)
}

// WeekOf returns the "week of" heading for the latest week with data.
func (c *Calculator) WeekOf(records []repository.Interview) string {
	latest, _ := c.LatestDate(records)
	return WeekOfLabel(latest)
}
