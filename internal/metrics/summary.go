package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/jask/recruitmetrics/internal/database/repository"
)

// UnassignedOwner labels screens without a candidate owner.
const UnassignedOwner = "Unassigned"

// OwnerSummary holds screen outcomes for one candidate owner.
type OwnerSummary struct {
	Owner         string  `json:"owner"`
	TotalScreens  int     `json:"total_screens"`
	PassedScreens int     `json:"passed_screens"`
	FailedScreens int     `json:"failed_screens"`
	PassRate      float64 `json:"pass_rate"`
}

// GlobalMetrics holds headline counts over all rows.
type GlobalMetrics struct {
	TotalOnsiteInterviews int `json:"total_onsite_interviews"`
	TotalSourced          int `json:"total_sourced"`
	TotalApplied          int `json:"total_applied"`
}

// Summary is the per-owner screen breakdown with overall totals.
type Summary struct {
	Owners          []OwnerSummary `json:"owners"`
	TotalScreens    int            `json:"total_screens"`
	TotalPassed     int            `json:"total_passed"`
	TotalFailed     int            `json:"total_failed"`
	OverallPassRate float64        `json:"overall_pass_rate"`
	Global          GlobalMetrics  `json:"global"`
}

func ownerOf(r repository.Interview) string {
	if r.CandidateOwnerName == nil || strings.TrimSpace(*r.CandidateOwnerName) == "" {
		return UnassignedOwner
	}
	return strings.TrimSpace(*r.CandidateOwnerName)
}

// Summarize classifies each screen and aggregates by candidate owner. Only
// rows whose whole form is "Recruiter Screen" count as screens here, ignoring
// case and surrounding spaces; variants like "Phone - recruiter screen" do not.
func Summarize(records []repository.Interview) Summary {
	screens := lo.Filter(records, func(r repository.Interview, _ int) bool {
		return strings.EqualFold(strings.TrimSpace(r.FeedbackForm), recruiterScreenForm)
	})

	byOwner := lo.GroupBy(screens, ownerOf)
	owners := lo.Uniq(lo.Map(records, func(r repository.Interview, _ int) string { return ownerOf(r) }))
	sort.Strings(owners)

	s := Summary{Owners: make([]OwnerSummary, 0, len(owners))}
	for _, owner := range owners {
		rows := byOwner[owner]
		o := OwnerSummary{
			Owner:         owner,
			TotalScreens:  len(rows),
			PassedScreens: lo.CountBy(rows, func(r repository.Interview) bool { return Classify(r.OverallScore) == ResultPass }),
			FailedScreens: lo.CountBy(rows, func(r repository.Interview) bool { return Classify(r.OverallScore) == ResultFail }),
		}
		o.PassRate = round(rate(o.PassedScreens, o.TotalScreens), 2)
		s.Owners = append(s.Owners, o)

		s.TotalPassed += o.PassedScreens
		s.TotalFailed += o.FailedScreens
	}
	s.TotalScreens = len(screens)
	s.OverallPassRate = round(rate(s.TotalPassed, s.TotalScreens), 2)
	s.Global = GlobalMetrics{
		TotalOnsiteInterviews: lo.CountBy(records, func(r repository.Interview) bool {
			return strings.EqualFold(strings.TrimSpace(r.FeedbackForm), onsiteForm)
		}),
		TotalSourced: lo.CountBy(records, func(r repository.Interview) bool { return strings.EqualFold(r.CandidateOrigin, "Sourced") }),
		TotalApplied: lo.CountBy(records, func(r repository.Interview) bool { return strings.EqualFold(r.CandidateOrigin, "Applied") }),
	}
	return s
}

// Period names a reporting window relative to now.
type Period string

const (
	PeriodAllTime   Period = "all_time"
	PeriodThisWeek  Period = "this_week"
	PeriodLastWeek  Period = "last_week"
	PeriodThisMonth Period = "this_month"
	PeriodLastMonth Period = "last_month"
)

// Periods lists the selectable periods in display order.
var Periods = []Period{PeriodAllTime, PeriodThisWeek, PeriodLastWeek, PeriodThisMonth, PeriodLastMonth}

// Label returns the human-readable period name.
func (p Period) Label() string {
	switch p {
	case PeriodThisWeek:
		return "This Week"
	case PeriodLastWeek:
		return "Last Week"
	case PeriodThisMonth:
		return "This Month"
	case PeriodLastMonth:
		return "Last Month"
	}
	return "All Time"
}

// ParsePeriod accepts either the key ("last_week") or the label ("Last Week").
func ParsePeriod(s string) (Period, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	if norm == "" {
		return PeriodAllTime, nil
	}
	for _, p := range Periods {
		if string(p) == norm {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Range is a half-open time window [From, To). A zero To is unbounded.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls within the range.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// PeriodRange returns the window for p. Boundaries fall on midnight in the
// reporting location. ok is false for AllTime and unknown periods.
func (c *Calculator) PeriodRange(p Period, now time.Time) (Range, bool) {
	now = now.In(c.loc)
	monday := MondayOf(now)
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, c.loc)

	switch p {
	case PeriodThisWeek:
		return Range{From: monday}, true
	case PeriodLastWeek:
		return Range{From: monday.AddDate(0, 0, -7), To: monday}, true
	case PeriodThisMonth:
		return Range{From: firstOfMonth}, true
	case PeriodLastMonth:
		return Range{From: firstOfMonth.AddDate(0, -1, 0), To: firstOfMonth}, true
	}
	return Range{}, false
}

// PrecedingRange returns the window of equal kind immediately before p:
// last week for this week, the month before for last month, and so on.
func (c *Calculator) PrecedingRange(p Period, now time.Time) (Range, bool) {
	cur, ok := c.PeriodRange(p, now)
	if !ok {
		return Range{}, false
	}
	switch p {
	case PeriodThisWeek, PeriodLastWeek:
		return Range{From: cur.From.AddDate(0, 0, -7), To: cur.From}, true
	default:
		return Range{From: cur.From.AddDate(0, -1, 0), To: cur.From}, true
	}
}

// FilterRange keeps the rows inside r.
func FilterRange(records []repository.Interview, r Range) []repository.Interview {
	return lo.Filter(records, func(in repository.Interview, _ int) bool { return r.Contains(in.InterviewDate) })
}

// FilterPeriod keeps the rows inside p. AllTime and unknown periods keep everything.
func (c *Calculator) FilterPeriod(records []repository.Interview, p Period, now time.Time) []repository.Interview {
	r, ok := c.PeriodRange(p, now)
	if !ok {
		return records
	}
	return FilterRange(records, r)
}

// Comparison holds percentage changes between two periods.
type Comparison struct {
	ScreensChange  float64 `json:"screens_change"`
	PassRateChange float64 `json:"pass_rate_change"`
	OnsiteChange   float64 `json:"onsite_change"`
}

// ComparePeriods summarizes both windows and reports percentage changes.
func ComparePeriods(current, previous []repository.Interview) Comparison {
	cur := Summarize(current)
	prev := Summarize(previous)
	return Comparison{
		ScreensChange:  PercentChange(float64(cur.TotalScreens), float64(prev.TotalScreens)),
		PassRateChange: PercentChange(cur.OverallPassRate, prev.OverallPassRate),
		OnsiteChange:   PercentChange(float64(cur.Global.TotalOnsiteInterviews), float64(prev.Global.TotalOnsiteInterviews)),
	}
}

// PercentChange returns (cur-prev)/prev*100. From zero it is 100 for any
// growth and 0 otherwise.
func PercentChange(cur, prev float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return (cur - prev) / prev * 100
}
