package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/jask/recruitmetrics/internal/config"
	"github.com/jask/recruitmetrics/internal/database/repository"
	"github.com/jask/recruitmetrics/internal/metrics"
)

// Dashboard is everything the dashboard views render for one weeks setting.
type Dashboard struct {
	Weeks              int                        `json:"weeks"`
	RecordCount        int                        `json:"record_count"`
	LatestWeek         string                     `json:"latest_week"`
	WeekOf             string                     `json:"week_of"`
	Sources            metrics.SourceDistribution `json:"sources"`
	SourceBreakdown    []metrics.SourceWeek       `json:"source_breakdown"`
	Overview           metrics.Overview           `json:"overview"`
	Star               string                     `json:"star"`
	Screens            []metrics.ScreenMetric     `json:"screens"`
	Onsites            []metrics.OnsiteMetric     `json:"onsites"`
	OnsitesByRecruiter []metrics.RecruiterOnsites `json:"onsites_by_recruiter"`
	Detailed           []metrics.DetailedRow      `json:"detailed"`
	LastWeek           []metrics.LastWeekRow      `json:"last_week"`
	Quality            []metrics.QualityMetric    `json:"quality"`
	RecruiterStats     []metrics.RecruiterStat    `json:"recruiter_stats"`
	TimeToOnsite       []metrics.OnsiteLag        `json:"time_to_onsite"`
	AvgTimeToHire      *float64                   `json:"avg_time_to_hire_days"`
	GeneratedAt        time.Time                  `json:"generated_at"`
}

// PeriodReport summarizes one reporting period, compared with the period
// before it when one exists.
type PeriodReport struct {
	Period     metrics.Period      `json:"period"`
	Label      string              `json:"label"`
	From       *time.Time          `json:"from,omitempty"`
	To         *time.Time          `json:"to,omitempty"`
	Records    int                 `json:"records"`
	Summary    metrics.Summary     `json:"summary"`
	Comparison *metrics.Comparison `json:"comparison,omitempty"`
}

// DashboardService computes dashboards from stored interviews. Results are
// cached per weeks value until the TTL expires or Invalidate is called.
type DashboardService struct {
	Interviews *repository.InterviewRepo
	Calc       *metrics.Calculator
	Log        logrus.FieldLogger

	maxWeeks    int
	sourceWeeks int
	cache       *expirable.LRU[int, Dashboard]
	now         func() time.Time
}

// NewDashboardService returns a service whose cache holds up to
// cfg.CacheSize snapshots for cfg.CacheTTL.
func NewDashboardService(interviews *repository.InterviewRepo, calc *metrics.Calculator, cfg config.MetricsConfig, log logrus.FieldLogger) *DashboardService {
	size := cfg.CacheSize
	if size <= 0 {
		size = 16
	}
	sourceWeeks := cfg.SourceWeeks
	if sourceWeeks <= 0 {
		sourceWeeks = 16
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DashboardService{
		Interviews:  interviews,
		Calc:        calc,
		Log:         log,
		maxWeeks:    cfg.MaxWeeks,
		sourceWeeks: sourceWeeks,
		cache:       expirable.NewLRU[int, Dashboard](size, nil, cfg.CacheTTL),
		now:         time.Now,
	}
}

// Invalidate drops every cached dashboard.
func (s *DashboardService) Invalidate() {
	s.cache.Purge()
}

// Snapshot returns the dashboard for the latest weeks. ErrNoData is returned
// (wrapped) when nothing has been imported yet.
func (s *DashboardService) Snapshot(ctx context.Context, weeks int) (Dashboard, error) {
	if weeks < 1 || (s.maxWeeks > 0 && weeks > s.maxWeeks) {
		return Dashboard{}, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidWeeks, weeks, s.maxWeeks)
	}
	if d, ok := s.cache.Get(weeks); ok {
		return d, nil
	}

	records, err := s.Interviews.List(ctx, repository.InterviewFilters{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("load interviews: %w", err)
	}
	if err := metrics.ValidateRecords(records); err != nil {
		return Dashboard{}, err
	}

	start := time.Now()
	d := s.build(records, weeks)
	s.Log.WithFields(logrus.Fields{"weeks": weeks, "records": len(records), "took": time.Since(start)}).Debug("dashboard computed")

	s.cache.Add(weeks, d)
	return d, nil
}

func (s *DashboardService) build(records []repository.Interview, weeks int) Dashboard {
	c := s.Calc
	screens := c.RecruiterScreens(records, weeks)
	overview := c.Overview(records)
	d := Dashboard{
		Weeks:              weeks,
		RecordCount:        len(records),
		LatestWeek:         c.LatestWeek(records),
		WeekOf:             c.WeekOf(records),
		Sources:            c.SourceDistribution(records, 0),
		SourceBreakdown:    c.SourceBreakdown(records, s.sourceWeeks),
		Overview:           overview,
		Star:               overview.Star,
		Screens:            screens,
		Onsites:            c.OnsiteInterviews(records, weeks),
		OnsitesByRecruiter: c.OnsitesByRecruiter(records, weeks),
		Detailed:           c.Detailed(records, weeks),
		LastWeek:           c.LastWeekPerformance(records),
		Quality:            c.Quality(records, weeks),
		RecruiterStats:     c.RecruiterStats(records),
		TimeToOnsite:       c.TimeToOnsite(records),
		GeneratedAt:        s.now().UTC(),
	}
	if avg, ok := c.AverageTimeToHire(records); ok {
		d.AvgTimeToHire = &avg
	}
	return d
}

// PeriodSummary summarizes the rows in period and compares them with the
// preceding period of the same length.
func (s *DashboardService) PeriodSummary(ctx context.Context, period metrics.Period) (PeriodReport, error) {
	records, err := s.Interviews.List(ctx, repository.InterviewFilters{})
	if err != nil {
		return PeriodReport{}, fmt.Errorf("load interviews: %w", err)
	}
	if len(records) == 0 {
		return PeriodReport{}, ErrNoData
	}

	now := s.now()
	rep := PeriodReport{Period: period, Label: period.Label()}
	current := s.Calc.FilterPeriod(records, period, now)
	if r, ok := s.Calc.PeriodRange(period, now); ok {
		rep.From = &r.From
		if !r.To.IsZero() {
			rep.To = &r.To
		}
	}
	rep.Records = len(current)
	rep.Summary = metrics.Summarize(current)

	if prev, ok := s.Calc.PrecedingRange(period, now); ok {
		cmp := metrics.ComparePeriods(current, metrics.FilterRange(records, prev))
		rep.Comparison = &cmp
	}
	return rep, nil
}
