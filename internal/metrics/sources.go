package metrics

import (
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/jask/recruitmetrics/internal/database/repository"
)

// UnknownSource labels rows without a candidate origin.
const UnknownSource = "unknown"

var (
	appliedPattern  = regexp.MustCompile(`applied|application|direct`)
	sourcedPattern  = regexp.MustCompile(`sourced|sourcing|linkedin|outbound`)
	referredPattern = regexp.MustCompile(`referred|referral|internal`)
)

// SourceCount is the number of rows from one origin in one week.
type SourceCount struct {
	Week   string `json:"week"`
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// WeekTotal is the number of rows in a week.
type WeekTotal struct {
	Week  string `json:"week"`
	Count int    `json:"count"`
}

// SourceDistribution breaks rows down by week and candidate origin.
type SourceDistribution struct {
	Sources []string      `json:"sources"`
	Weeks   []string      `json:"weeks"`
	Counts  []SourceCount `json:"counts"`
	Totals  []WeekTotal   `json:"totals"`
}

// Count returns the number of rows for source in week.
func (d SourceDistribution) Count(week, source string) int {
	for _, c := range d.Counts {
		if c.Week == week && c.Source == source {
			return c.Count
		}
	}
	return 0
}

// SourceWeek classifies one week of recruiter screens by origin.
type SourceWeek struct {
	Week     string `json:"week"`
	Applied  int    `json:"applied"`
	Sourced  int    `json:"sourced"`
	Referred int    `json:"referred"`
	Total    int    `json:"total"`
}

func sourceOf(r repository.Interview) string {
	if s := strings.TrimSpace(r.CandidateOrigin); s != "" {
		return s
	}
	return UnknownSource
}

// SourceDistribution counts rows per week and origin over the latest weeks.
// weeks <= 0 covers all data.
func (c *Calculator) SourceDistribution(records []repository.Interview, weeks int) SourceDistribution {
	latest := c.latestWeeks(records, weeks)
	inWeeks := toSet(latest)

	type key struct{ week, source string }
	counts := make(map[key]int)
	totals := make(map[string]int)
	for _, r := range records {
		w := c.week(r.InterviewDate)
		if _, ok := inWeeks[w]; !ok {
			continue
		}
		counts[key{w, sourceOf(r)}]++
		totals[w]++
	}

	d := SourceDistribution{Weeks: latest}
	for k, n := range counts {
		d.Counts = append(d.Counts, SourceCount{Week: k.week, Source: k.source, Count: n})
	}
	sort.Slice(d.Counts, func(i, j int) bool {
		if d.Counts[i].Week != d.Counts[j].Week {
			return d.Counts[i].Week < d.Counts[j].Week
		}
		return d.Counts[i].Source < d.Counts[j].Source
	})
	d.Sources = lo.Uniq(lo.Map(d.Counts, func(sc SourceCount, _ int) string { return sc.Source }))
	sort.Strings(d.Sources)
	for _, w := range latest {
		d.Totals = append(d.Totals, WeekTotal{Week: w, Count: totals[w]})
	}
	return d
}

// SourceBreakdown classifies recruiter screens from the final weeks before
// the latest interview into applied, sourced and referred per week. An
// origin may match more than one class; Total counts every screen.
func (c *Calculator) SourceBreakdown(records []repository.Interview, weeks int) []SourceWeek {
	latest, ok := c.LatestDate(records)
	if !ok {
		return nil
	}
	start := latest.AddDate(0, 0, -7*weeks)

	byWeek := make(map[string]*SourceWeek)
	for _, r := range records {
		if r.InterviewDate.Before(start) || !c.IsRecruiterScreen(r) {
			continue
		}
		w := c.week(r.InterviewDate)
		sw, ok := byWeek[w]
		if !ok {
			sw = &SourceWeek{Week: w}
			byWeek[w] = sw
		}
		origin := strings.ToLower(sourceOf(r))
		if appliedPattern.MatchString(origin) {
			sw.Applied++
		}
		if sourcedPattern.MatchString(origin) {
			sw.Sourced++
		}
		if referredPattern.MatchString(origin) {
			sw.Referred++
		}
		sw.Total++
	}

	keys := lo.Keys(byWeek)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) SourceWeek { return *byWeek[k] })
}
