package metrics

import (
	"sort"

	"github.com/samber/lo"

	"github.com/jask/recruitmetrics/internal/database/repository"
)

// Delta pairs a value for the latest week with the week before.
type Delta struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
}

// Change is Current minus Previous.
func (d Delta) Change() float64 { return d.Current - d.Previous }

// Headline holds the week-over-week totals across recruiters.
type Headline struct {
	TotalScreens      Delta `json:"total_screens"`
	AvgPassRate       Delta `json:"avg_pass_rate"`
	TotalOnsites      Delta `json:"total_onsites"`
	AvgConversionRate Delta `json:"avg_conversion_rate"`
}

// RecruiterCard holds one recruiter's week-over-week numbers.
type RecruiterCard struct {
	Recruiter  string `json:"recruiter"`
	Emoji      string `json:"emoji"`
	Star       bool   `json:"star"`
	Screens    Delta  `json:"screens"`
	PassRate   Delta  `json:"pass_rate"`
	Onsites    Delta  `json:"onsites"`
	Conversion Delta  `json:"conversion"`
}

// Overview compares the latest week with the week before it.
type Overview struct {
	Week         string          `json:"week"`
	PreviousWeek string          `json:"previous_week"`
	WeekOf       string          `json:"week_of"`
	Star         string          `json:"star"`
	Headline     Headline        `json:"headline"`
	Recruiters   []RecruiterCard `json:"recruiters"`
}

// LastWeekRow is one recruiter's performance in the latest week.
type LastWeekRow struct {
	Recruiter      string  `json:"recruiter"`
	Screens        int     `json:"screens"`
	ScreenPassRate float64 `json:"screen_pass_rate"`
	Onsites        int     `json:"onsites"`
	OnsitePassRate float64 `json:"onsite_pass_rate"`
}

// LastWeekPerformance reports, for each recruiter, screens in the latest week
// and every onsite (any week) of the candidates screened that week.
func (c *Calculator) LastWeekPerformance(records []repository.Interview) []LastWeekRow {
	week := c.LatestWeek(records)
	if week == "" {
		return nil
	}
	onsites := c.onsitesByCandidate(records)

	out := make([]LastWeekRow, 0)
	for _, rec := range c.Recruiters(records) {
		screens := lo.Filter(records, func(r repository.Interview, _ int) bool {
			return r.Interviewer == rec && c.IsRecruiterScreen(r) && c.week(r.InterviewDate) == week
		})
		candidates := lo.Uniq(lo.Map(screens, func(r repository.Interview, _ int) string { return r.CandidateName }))
		var theirOnsites []repository.Interview
		for _, name := range candidates {
			theirOnsites = append(theirOnsites, onsites[name]...)
		}

		row := LastWeekRow{
			Recruiter: rec,
			Screens:   len(screens),
			Onsites:   len(theirOnsites),
		}
		row.ScreenPassRate = round(rate(lo.CountBy(screens, func(r repository.Interview) bool { return passed(r.OverallScore) }), row.Screens), 1)
		row.OnsitePassRate = round(rate(lo.CountBy(theirOnsites, func(r repository.Interview) bool { return passed(r.OverallScore) }), row.Onsites), 1)
		out = append(out, row)
	}
	return out
}

// Overview builds the headline and per-recruiter cards for the latest week.
// A recruiter with no activity in the previous week compares against zero.
func (c *Calculator) Overview(records []repository.Interview) Overview {
	latest, ok := c.LatestDate(records)
	if !ok {
		return Overview{WeekOf: WeekOfLabel(latest)}
	}
	week := WeekKey(latest)
	prevWeek := WeekKey(MondayOf(latest).AddDate(0, 0, -7))

	screens := lo.Filter(records, func(r repository.Interview, _ int) bool { return c.IsRecruiterScreen(r) })
	curScreens := c.screenMetricsFor(screens, toSet([]string{week}))
	prevScreens := c.screenMetricsFor(screens, toSet([]string{prevWeek}))
	curConv := c.conversionFor(records, []string{week})
	prevConv := c.conversionFor(records, []string{prevWeek})

	ov := Overview{
		Week:         week,
		PreviousWeek: prevWeek,
		WeekOf:       WeekOfLabel(latest),
		Star:         StarRecruiter(curScreens),
		Headline: Headline{
			TotalScreens: Delta{
				Current:  float64(sumScreens(curScreens)),
				Previous: float64(sumScreens(prevScreens)),
			},
			AvgPassRate: Delta{
				Current:  meanOf(curScreens, func(m ScreenMetric) float64 { return m.PassRate }),
				Previous: meanOf(prevScreens, func(m ScreenMetric) float64 { return m.PassRate }),
			},
			TotalOnsites: Delta{
				Current:  float64(sumOnsites(c.onsiteMetricsFor(records, toSet([]string{week})))),
				Previous: float64(sumOnsites(c.onsiteMetricsFor(records, toSet([]string{prevWeek})))),
			},
			AvgConversionRate: Delta{
				Current:  meanOf(curConv, func(m ConversionMetric) float64 { return m.Conversion }),
				Previous: meanOf(prevConv, func(m ConversionMetric) float64 { return m.Conversion }),
			},
		},
	}

	prevByRecruiter := lo.KeyBy(prevScreens, func(m ScreenMetric) string { return m.Recruiter })
	curConvBy := lo.KeyBy(curConv, func(m ConversionMetric) string { return m.Recruiter })
	prevConvBy := lo.KeyBy(prevConv, func(m ConversionMetric) string { return m.Recruiter })

	for _, m := range curScreens {
		prev := prevByRecruiter[m.Recruiter]
		ov.Recruiters = append(ov.Recruiters, RecruiterCard{
			Recruiter:  m.Recruiter,
			Emoji:      RecruiterEmoji(m.Recruiter, ov.Star),
			Star:       m.Recruiter == ov.Star,
			Screens:    Delta{Current: float64(m.TotalScreens), Previous: float64(prev.TotalScreens)},
			PassRate:   Delta{Current: m.PassRate, Previous: prev.PassRate},
			Onsites:    Delta{Current: float64(curConvBy[m.Recruiter].Onsites), Previous: float64(prevConvBy[m.Recruiter].Onsites)},
			Conversion: Delta{Current: curConvBy[m.Recruiter].Conversion, Previous: prevConvBy[m.Recruiter].Conversion},
		})
	}
	sort.SliceStable(ov.Recruiters, func(i, j int) bool { return ov.Recruiters[i].Recruiter < ov.Recruiters[j].Recruiter })
	return ov
}

func sumScreens(ms []ScreenMetric) int {
	return lo.SumBy(ms, func(m ScreenMetric) int { return m.TotalScreens })
}

func sumOnsites(ms []OnsiteMetric) int {
	return lo.SumBy(ms, func(m OnsiteMetric) int { return m.TotalOnsites })
}

func meanOf[T any](items []T, value func(T) float64) float64 {
	if len(items) == 0 {
		return 0
	}
	return round(lo.SumBy(items, value)/float64(len(items)), 1)
}
