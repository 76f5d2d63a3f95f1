package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/recruitmetrics/internal/metrics"
)

func TestSnapshotEmptyDatabase(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	_, err := env.dashboard.Snapshot(env.ctx, 4)
	require.ErrorIs(t, err, ErrNoData)

	_, err = env.dashboard.PeriodSummary(env.ctx, metrics.PeriodAllTime)
	require.ErrorIs(t, err, ErrNoData)
}

func TestSnapshotValidatesWeeks(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	for _, weeks := range []int{0, -1, 13} {
		_, err := env.dashboard.Snapshot(env.ctx, weeks)
		require.ErrorIs(t, err, ErrInvalidWeeks)
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	_, err := env.ingest.ImportCSV(env.ctx, "export.csv", strings.NewReader(sampleExport))
	require.NoError(t, err)

	d, err := env.dashboard.Snapshot(env.ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 4, d.Weeks)
	require.Equal(t, 5, d.RecordCount)
	require.Equal(t, "2024-W11", d.LatestWeek)
	require.Equal(t, "March 11, 2024", d.WeekOf)
	require.Equal(t, []string{"2024-W10", "2024-W11"}, d.Sources.Weeks)
	require.Len(t, d.Screens, 2)
	require.Equal(t, "Riley Chen", metrics.StarRecruiter(d.Screens))
	require.Equal(t, "2024-W11", d.Overview.Week)
	require.Equal(t, 2.0, d.Overview.Headline.TotalOnsites.Current)
	require.Len(t, d.Detailed, 2)
	require.NotNil(t, d.AvgTimeToHire)
	require.InDelta(t, 7.125, *d.AvgTimeToHire, 0.001)
	require.NotEmpty(t, d.TimeToOnsite)
}

func TestSnapshotStarFollowsLatestWeek(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	// The latest week holds only onsites, so nobody screened in it.
	_, err := env.ingest.ImportCSV(env.ctx, "export.csv", strings.NewReader(sampleExport))
	require.NoError(t, err)
	d, err := env.dashboard.Snapshot(env.ctx, 4)
	require.NoError(t, err)
	require.Empty(t, d.Star)
	require.Equal(t, d.Overview.Star, d.Star)
	for _, card := range d.Overview.Recruiters {
		require.False(t, card.Star, card.Recruiter)
	}

	_, err = env.ingest.ImportCSV(env.ctx, "late.csv", strings.NewReader(csvOf(
		"Dee Park,03/12/24 10:00,Recruiter Screen,Morgan Lee,3,Applied,Morgan Lee,",
	)))
	require.NoError(t, err)
	d, err = env.dashboard.Snapshot(env.ctx, 4)
	require.NoError(t, err)
	require.Equal(t, "Morgan Lee", d.Star)
	require.Equal(t, d.Overview.Star, d.Star)
	for _, card := range d.Overview.Recruiters {
		require.Equal(t, card.Recruiter == "Morgan Lee", card.Star, card.Recruiter)
	}
}

func TestSnapshotCacheAndInvalidate(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	_, err := env.ingest.ImportCSV(env.ctx, "first.csv", strings.NewReader(csvOf(
		"Ada Lovelace,03/04/24 10:00,Recruiter Screen,Riley Chen,3,Applied,,",
	)))
	require.NoError(t, err)

	first, err := env.dashboard.Snapshot(env.ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 1, first.RecordCount)

	// Writes that bypass the services are not seen until the cache is invalidated.
	_, err = env.db.ExecContext(env.ctx, `DELETE FROM interviews`)
	require.NoError(t, err)
	cached, err := env.dashboard.Snapshot(env.ctx, 4)
	require.NoError(t, err)
	require.Equal(t, first.GeneratedAt, cached.GeneratedAt)

	env.dashboard.Invalidate()
	_, err = env.dashboard.Snapshot(env.ctx, 4)
	require.ErrorIs(t, err, ErrNoData)

	// Imports invalidate on their own.
	_, err = env.ingest.ImportCSV(env.ctx, "second.csv", strings.NewReader(sampleExport))
	require.NoError(t, err)
	fresh, err := env.dashboard.Snapshot(env.ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 5, fresh.RecordCount)
}

func TestPeriodSummary(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)
	env.dashboard.now = func() time.Time { return time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC) }

	_, err := env.ingest.ImportCSV(env.ctx, "export.csv", strings.NewReader(sampleExport))
	require.NoError(t, err)

	all, err := env.dashboard.PeriodSummary(env.ctx, metrics.PeriodAllTime)
	require.NoError(t, err)
	require.Equal(t, "All Time", all.Label)
	require.Equal(t, 5, all.Records)
	require.Equal(t, 3, all.Summary.TotalScreens)
	require.Nil(t, all.Comparison)
	require.Nil(t, all.From)

	week, err := env.dashboard.PeriodSummary(env.ctx, metrics.PeriodThisWeek)
	require.NoError(t, err)
	require.Equal(t, 2, week.Records)
	require.Zero(t, week.Summary.TotalScreens)
	require.Equal(t, 2, week.Summary.Global.TotalOnsiteInterviews)
	require.NotNil(t, week.From)
	require.Nil(t, week.To)
	require.NotNil(t, week.Comparison)
	require.Equal(t, -100.0, week.Comparison.ScreensChange)
	require.Equal(t, 100.0, week.Comparison.OnsiteChange)
}
