// Package metrics computes weekly recruiting metrics from interview rows.
// Every function is pure; the caller loads rows and caches results.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/jask/recruitmetrics/internal/database/repository"
)

// ErrNoData is returned when there are no rows to compute metrics from.
var ErrNoData = errors.New("no data available for metrics calculation")

const (
	recruiterScreenForm = "Recruiter Screen"
	onsiteForm          = "On-site interview"
)

// Result labels produced by Classify.
const (
	ResultPass    = "Pass"
	ResultFail    = "Fail"
	ResultUnknown = "Unknown"
)

// Options configures a Calculator.
type Options struct {
	OnsiteInterviewers []string
	Location           *time.Location
}

// Calculator derives metrics. Weeks are bucketed in the configured location.
type Calculator struct {
	onsite map[string]struct{}
	loc    *time.Location
}

// New returns a Calculator for the given onsite interviewers and reporting
// timezone. A nil Location means UTC.
func New(opts Options) *Calculator {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	onsite := make(map[string]struct{}, len(opts.OnsiteInterviewers))
	for _, name := range opts.OnsiteInterviewers {
		onsite[strings.TrimSpace(name)] = struct{}{}
	}
	return &Calculator{onsite: onsite, loc: loc}
}

// Location returns the reporting timezone.
func (c *Calculator) Location() *time.Location { return c.loc }

// IsOnsiteInterviewer reports whether name is one of the configured onsite interviewers.
func (c *Calculator) IsOnsiteInterviewer(name string) bool {
	_, ok := c.onsite[strings.TrimSpace(name)]
	return ok
}

// IsRecruiterScreen reports whether r is a screen run by a recruiter.
func (c *Calculator) IsRecruiterScreen(r repository.Interview) bool {
	return isScreenForm(r.FeedbackForm) && !c.IsOnsiteInterviewer(r.Interviewer)
}

// IsOnsite reports whether r is an onsite interview.
func (c *Calculator) IsOnsite(r repository.Interview) bool {
	return c.IsOnsiteInterviewer(r.Interviewer) && !isScreenForm(r.FeedbackForm)
}

func isScreenForm(form string) bool {
	return strings.Contains(strings.ToLower(form), strings.ToLower(recruiterScreenForm))
}

// Classify maps a score to Pass (3, 4), Fail (1, 2) or Unknown.
func Classify(score *float64) string {
	if score == nil {
		return ResultUnknown
	}
	switch *score {
	case 3, 4:
		return ResultPass
	case 1, 2:
		return ResultFail
	}
	return ResultUnknown
}

func passed(score *float64) bool    { return score != nil && *score >= 3 }
func highScore(score *float64) bool { return score != nil && *score >= 4 }

func round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// ValidateRecords checks that there is data and that each row carries the
// fields every metric depends on.
func ValidateRecords(records []repository.Interview) error {
	if len(records) == 0 {
		return ErrNoData
	}
	for i, r := range records {
		var missing []string
		if strings.TrimSpace(r.CandidateName) == "" {
			missing = append(missing, "Candidate Name")
		}
		if r.InterviewDate.IsZero() {
			missing = append(missing, "Interview Date TZ")
		}
		if strings.TrimSpace(r.FeedbackForm) == "" {
			missing = append(missing, "Feedback Form")
		}
		if strings.TrimSpace(r.Interviewer) == "" {
			missing = append(missing, "Interviewer")
		}
		if strings.TrimSpace(r.CandidateOrigin) == "" {
			missing = append(missing, "Candidate Origin")
		}
		if len(missing) > 0 {
			return fmt.Errorf("record %d (%s): missing required fields: %s", i+1, r.RecordKey, strings.Join(missing, ", "))
		}
	}
	return nil
}

func (c *Calculator) week(t time.Time) string { return WeekKey(t.In(c.loc)) }

// latestWeeks returns the last n distinct week keys of records in
// chronological order. n <= 0 returns every week.
func (c *Calculator) latestWeeks(records []repository.Interview, n int) []string {
	weeks := lo.Uniq(lo.Map(records, func(r repository.Interview, _ int) string { return c.week(r.InterviewDate) }))
	sort.Strings(weeks)
	if n > 0 && len(weeks) > n {
		weeks = weeks[len(weeks)-n:]
	}
	return weeks
}

// Recruiters returns every interviewer who has run a recruiter screen, sorted.
func (c *Calculator) Recruiters(records []repository.Interview) []string {
	screens := lo.Filter(records, func(r repository.Interview, _ int) bool { return c.IsRecruiterScreen(r) })
	names := lo.Uniq(lo.Map(screens, func(r repository.Interview, _ int) string { return r.Interviewer }))
	sort.Strings(names)
	return names
}

// screenedBy maps each recruiter to the candidates they have ever screened.
func (c *Calculator) screenedBy(records []repository.Interview) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{})
	for _, r := range records {
		if !c.IsRecruiterScreen(r) {
			continue
		}
		set, ok := out[r.Interviewer]
		if !ok {
			set = make(map[string]struct{})
			out[r.Interviewer] = set
		}
		set[r.CandidateName] = struct{}{}
	}
	return out
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
