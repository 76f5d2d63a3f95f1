package metrics

import (
	"sort"

	"github.com/samber/lo"

	"github.com/jask/recruitmetrics/internal/database/repository"
)

// ScreenMetric holds one recruiter's screens in one week.
type ScreenMetric struct {
	Week         string  `json:"week"`
	Recruiter    string  `json:"recruiter"`
	TotalScreens int     `json:"total_screens"`
	Passes       int     `json:"passes"`
	PassRate     float64 `json:"pass_rate"`
}

// OnsiteMetric holds the distinct candidates one onsite interviewer met in a week.
type OnsiteMetric struct {
	Week         string `json:"week"`
	Interviewer  string `json:"interviewer"`
	TotalOnsites int    `json:"total_onsites"`
}

// ConversionMetric relates a recruiter's screens to onsites in a week.
type ConversionMetric struct {
	Week       string  `json:"week"`
	Recruiter  string  `json:"recruiter"`
	Onsites    int     `json:"onsites"`
	Screens    int     `json:"screens"`
	Conversion float64 `json:"conversion"`
}

// RecruiterOnsites is one cell of the week by recruiter onsite grid.
type RecruiterOnsites struct {
	Week      string `json:"week"`
	Recruiter string `json:"recruiter"`
	Onsites   int    `json:"onsites"`
}

// DetailedRow joins screen metrics with onsite conversion.
type DetailedRow struct {
	Week         string  `json:"week"`
	Recruiter    string  `json:"recruiter"`
	TotalScreens int     `json:"total_screens"`
	Passes       int     `json:"passes"`
	PassRate     float64 `json:"pass_rate"`
	Onsites      int     `json:"onsites"`
	Conversion   float64 `json:"conversion"`
}

type weekRecruiter struct {
	week      string
	recruiter string
}

// RecruiterScreens aggregates recruiter screens over the latest weeks that
// contain screens, sorted by week then recruiter.
func (c *Calculator) RecruiterScreens(records []repository.Interview, weeks int) []ScreenMetric {
	screens := lo.Filter(records, func(r repository.Interview, _ int) bool { return c.IsRecruiterScreen(r) })
	if len(screens) == 0 {
		return nil
	}
	return c.screenMetricsFor(screens, toSet(c.latestWeeks(screens, weeks)))
}

func (c *Calculator) screenMetricsFor(screens []repository.Interview, weeks map[string]struct{}) []ScreenMetric {
	groups := lo.GroupBy(lo.Filter(screens, func(r repository.Interview, _ int) bool {
		_, ok := weeks[c.week(r.InterviewDate)]
		return ok
	}), func(r repository.Interview) weekRecruiter {
		return weekRecruiter{week: c.week(r.InterviewDate), recruiter: r.Interviewer}
	})

	out := make([]ScreenMetric, 0, len(groups))
	for key, rows := range groups {
		m := ScreenMetric{
			Week:         key.week,
			Recruiter:    key.recruiter,
			TotalScreens: len(rows),
			Passes:       lo.CountBy(rows, func(r repository.Interview) bool { return passed(r.OverallScore) }),
		}
		m.PassRate = round(rate(m.Passes, m.TotalScreens), 1)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Week != out[j].Week {
			return out[i].Week < out[j].Week
		}
		return out[i].Recruiter < out[j].Recruiter
	})
	return out
}

// OnsiteInterviews counts distinct candidates per onsite interviewer over the
// latest weeks of all data.
func (c *Calculator) OnsiteInterviews(records []repository.Interview, weeks int) []OnsiteMetric {
	return c.onsiteMetricsFor(records, toSet(c.latestWeeks(records, weeks)))
}

func (c *Calculator) onsiteMetricsFor(records []repository.Interview, weeks map[string]struct{}) []OnsiteMetric {
	type key struct{ week, interviewer string }
	candidates := make(map[key]map[string]struct{})
	for _, r := range records {
		if !c.IsOnsite(r) {
			continue
		}
		w := c.week(r.InterviewDate)
		if _, ok := weeks[w]; !ok {
			continue
		}
		k := key{w, r.Interviewer}
		if candidates[k] == nil {
			candidates[k] = make(map[string]struct{})
		}
		candidates[k][r.CandidateName] = struct{}{}
	}

	out := make([]OnsiteMetric, 0, len(candidates))
	for k, set := range candidates {
		out = append(out, OnsiteMetric{Week: k.week, Interviewer: k.interviewer, TotalOnsites: len(set)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Week != out[j].Week {
			return out[i].Week < out[j].Week
		}
		return out[i].Interviewer < out[j].Interviewer
	})
	return out
}

// OnsiteConversion reports, for each of the latest weeks and each recruiter,
// the onsites held that week for candidates the recruiter ever screened
// against the screens the recruiter ran that week.
func (c *Calculator) OnsiteConversion(records []repository.Interview, weeks int) []ConversionMetric {
	return c.conversionFor(records, c.latestWeeks(records, weeks))
}

func (c *Calculator) conversionFor(records []repository.Interview, weeks []string) []ConversionMetric {
	recruiters := c.Recruiters(records)
	screened := c.screenedBy(records)

	onsites := make(map[string][]repository.Interview)
	screens := make(map[weekRecruiter]int)
	for _, r := range records {
		w := c.week(r.InterviewDate)
		switch {
		case c.IsOnsite(r):
			onsites[w] = append(onsites[w], r)
		case c.IsRecruiterScreen(r):
			screens[weekRecruiter{w, r.Interviewer}]++
		}
	}

	out := make([]ConversionMetric, 0, len(weeks)*len(recruiters))
	for _, w := range weeks {
		for _, rec := range recruiters {
			candidates := screened[rec]
			m := ConversionMetric{
				Week:      w,
				Recruiter: rec,
				Onsites: lo.CountBy(onsites[w], func(r repository.Interview) bool {
					_, ok := candidates[r.CandidateName]
					return ok
				}),
				Screens: screens[weekRecruiter{w, rec}],
			}
			m.Conversion = round(rate(m.Onsites, m.Screens), 1)
			out = append(out, m)
		}
	}
	return out
}

// OnsitesByRecruiter is the zero-filled week by recruiter grid of onsites
// attributed to the recruiter who screened the candidate.
func (c *Calculator) OnsitesByRecruiter(records []repository.Interview, weeks int) []RecruiterOnsites {
	return lo.Map(c.OnsiteConversion(records, weeks), func(m ConversionMetric, _ int) RecruiterOnsites {
		return RecruiterOnsites{Week: m.Week, Recruiter: m.Recruiter, Onsites: m.Onsites}
	})
}

// Detailed left-joins screen metrics with conversion, newest week first.
func (c *Calculator) Detailed(records []repository.Interview, weeks int) []DetailedRow {
	conv := make(map[weekRecruiter]ConversionMetric)
	for _, m := range c.OnsiteConversion(records, weeks) {
		conv[weekRecruiter{m.Week, m.Recruiter}] = m
	}

	rows := lo.Map(c.RecruiterScreens(records, weeks), func(s ScreenMetric, _ int) DetailedRow {
		m := conv[weekRecruiter{s.Week, s.Recruiter}]
		return DetailedRow{
			Week:         s.Week,
			Recruiter:    s.Recruiter,
			TotalScreens: s.TotalScreens,
			Passes:       s.Passes,
			PassRate:     s.PassRate,
			Onsites:      m.Onsites,
			Conversion:   m.Conversion,
		}
	})
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Week != rows[j].Week {
			return rows[i].Week > rows[j].Week
		}
		return rows[i].Recruiter < rows[j].Recruiter
	})
	return rows
}

// StarRecruiter returns the recruiter with the most screens across metrics.
// Ties go to the name that sorts first; "" when metrics is empty.
func StarRecruiter(metrics []ScreenMetric) string {
	totals := make(map[string]int)
	for _, m := range metrics {
		totals[m.Recruiter] += m.TotalScreens
	}
	names := lo.Keys(totals)
	sort.Strings(names)

	star, best := "", -1
	for _, name := range names {
		if totals[name] > best {
			star, best = name, totals[name]
		}
	}
	return star
}

// RecruiterEmoji marks the star recruiter.
func RecruiterEmoji(recruiter, star string) string {
	if star != "" && recruiter == star {
		return "⭐"
	}
	return "👩"
}
