package metrics

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/jask/recruitmetrics/internal/database/repository"
)

// OnsiteLag is the time from a recruiter screen to the candidate's first onsite.
type OnsiteLag struct {
	Week      string `json:"week"`
	Recruiter string `json:"recruiter"`
	Candidate string `json:"candidate"`
	Days      int    `json:"days"`
}

// QualityMetric is the share of a recruiter's screens scored 4 or higher.
type QualityMetric struct {
	Recruiter     string  `json:"recruiter"`
	Screens       int     `json:"screens"`
	HighScoreRate float64 `json:"high_score_rate"`
}

// RecruiterStat summarizes a recruiter across all data.
type RecruiterStat struct {
	Recruiter             string  `json:"recruiter"`
	Screens               int     `json:"screens"`
	PassRate              float64 `json:"pass_rate"`
	AvgDaysBetweenScreens float64 `json:"avg_days_between_screens"`
}

const day = 24.0 // hours

func (c *Calculator) onsitesByCandidate(records []repository.Interview) map[string][]repository.Interview {
	out := lo.GroupBy(lo.Filter(records, func(r repository.Interview, _ int) bool { return c.IsOnsite(r) }),
		func(r repository.Interview) string { return r.CandidateName })
	for _, rows := range out {
		sort.Slice(rows, func(i, j int) bool { return rows[i].InterviewDate.Before(rows[j].InterviewDate) })
	}
	return out
}

// TimeToOnsite returns whole days (floored) from each recruiter screen to the
// candidate's first onsite. Screens of candidates without an onsite are left out.
func (c *Calculator) TimeToOnsite(records []repository.Interview) []OnsiteLag {
	onsites := c.onsitesByCandidate(records)
	var out []OnsiteLag
	for _, r := range records {
		if !c.IsRecruiterScreen(r) {
			continue
		}
		rows := onsites[r.CandidateName]
		if len(rows) == 0 {
			continue
		}
		days := math.Floor(rows[0].InterviewDate.Sub(r.InterviewDate).Hours() / day)
		out = append(out, OnsiteLag{
			Week:      c.week(r.InterviewDate),
			Recruiter: r.Interviewer,
			Candidate: r.CandidateName,
			Days:      int(days),
		})
	}
	return out
}

// AverageTimeToHire is the mean number of days between every screen and every
// onsite of the same candidate. ok is false when no candidate has both.
func (c *Calculator) AverageTimeToHire(records []repository.Interview) (float64, bool) {
	onsites := c.onsitesByCandidate(records)
	var total float64
	var n int
	for _, r := range records {
		if !c.IsRecruiterScreen(r) {
			continue
		}
		for _, o := range onsites[r.CandidateName] {
			total += o.InterviewDate.Sub(r.InterviewDate).Hours() / day
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// Quality reports the high-score share per recruiter over the latest weeks.
func (c *Calculator) Quality(records []repository.Interview, weeks int) []QualityMetric {
	inWeeks := toSet(c.latestWeeks(records, weeks))
	screens := lo.Filter(records, func(r repository.Interview, _ int) bool {
		_, ok := inWeeks[c.week(r.InterviewDate)]
		return ok && c.IsRecruiterScreen(r)
	})

	groups := lo.GroupBy(screens, func(r repository.Interview) string { return r.Interviewer })
	names := lo.Keys(groups)
	sort.Strings(names)
	return lo.Map(names, func(name string, _ int) QualityMetric {
		rows := groups[name]
		high := lo.CountBy(rows, func(r repository.Interview) bool { return highScore(r.OverallScore) })
		return QualityMetric{Recruiter: name, Screens: len(rows), HighScoreRate: round(rate(high, len(rows)), 1)}
	})
}

// RecruiterStats reports screens, pass rate (unscored screens count as fails)
// and the mean gap in days between consecutive screens for each recruiter.
func (c *Calculator) RecruiterStats(records []repository.Interview) []RecruiterStat {
	groups := lo.GroupBy(lo.Filter(records, func(r repository.Interview, _ int) bool { return c.IsRecruiterScreen(r) }),
		func(r repository.Interview) string { return r.Interviewer })
	names := lo.Keys(groups)
	sort.Strings(names)

	out := make([]RecruiterStat, 0, len(names))
	for _, name := range names {
		rows := groups[name]
		dates := lo.Map(rows, func(r repository.Interview, _ int) int64 { return r.InterviewDate.Unix() })
		sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })

		var gap float64
		if len(dates) > 1 {
			gap = float64(dates[len(dates)-1]-dates[0]) / float64(len(dates)-1) / (day * 3600)
		}
		out = append(out, RecruiterStat{
			Recruiter:             name,
			Screens:               len(rows),
			PassRate:              round(rate(lo.CountBy(rows, func(r repository.Interview) bool { return passed(r.OverallScore) }), len(rows)), 1),
			AvgDaysBetweenScreens: round(gap, 2),
		})
	}
	return out
}
