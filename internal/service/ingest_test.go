package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/recruitmetrics/internal/config"
	"github.com/jask/recruitmetrics/internal/database"
	"github.com/jask/recruitmetrics/internal/database/repository"
	"github.com/jask/recruitmetrics/internal/logging"
	"github.com/jask/recruitmetrics/internal/metrics"
)

type testEnv struct {
	ctx         context.Context
	db          *database.DB
	interviews  *repository.InterviewRepo
	uploads     *repository.UploadRepo
	ingest      *IngestService
	dashboard   *DashboardService
	maintenance *MaintenanceService
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	opts := database.Options{Dialect: database.DialectSQLite, Path: filepath.Join(t.TempDir(), "test.db")}
	require.NoError(t, database.RunMigrations(opts))
	db, err := database.Open(ctx, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logging.Discard()
	interviews := repository.NewInterviewRepo(db)
	uploads := repository.NewUploadRepo(db)
	calc := metrics.New(metrics.Options{OnsiteInterviewers: []string{"Sam Nadler", "Jordan Metzner"}, Location: time.UTC})
	dash := NewDashboardService(interviews, calc, config.MetricsConfig{
		CacheTTL:  time.Hour,
		CacheSize: 8,
		MaxWeeks:  12,
	}, log)

	return &testEnv{
		ctx:        ctx,
		db:         db,
		interviews: interviews,
		uploads:    uploads,
		ingest: &IngestService{
			DB:         db,
			Interviews: interviews,
			Uploads:    uploads,
			Config: config.IngestConfig{
				MaxUploadSize: 5 * 1024 * 1024,
				ChunkSize:     1000,
				DateLayouts:   config.DefaultDateLayouts,
			},
			Location: time.UTC,
			Cache:    dash,
			Log:      log,
		},
		dashboard: dash,
		maintenance: &MaintenanceService{
			DB:         db,
			Interviews: interviews,
			Uploads:    uploads,
			Cache:      dash,
			Log:        log,
		},
	}
}

const exportHeader = "Candidate Name,Interview Date TZ,Feedback Form,Interviewer,Overall Score,Candidate Origin,Candidate Owner Name,Posting Title"

func csvOf(lines ...string) string {
	return strings.Join(append([]string{exportHeader}, lines...), "\n") + "\n"
}

var sampleExport = csvOf(
	"Ada Lovelace,03/04/24 10:00,Recruiter Screen,Riley Chen,3,Applied,Riley Chen,Backend Engineer",
	"Bob Stone,03/05/24 10:00,Recruiter Screen,Riley Chen,2,Sourced,Riley Chen,Backend Engineer",
	"Cy Young,03/06/24 10:00,Recruiter Screen,Morgan Lee,4,LinkedIn,Morgan Lee,",
	"Ada Lovelace,03/11/24 15:00,On-site interview,Sam Nadler,4,Applied,,Backend Engineer",
	"Cy Young,03/13/24 11:00,On-site interview,Jordan Metzner,,LinkedIn,,",
)

func TestImportCSV(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	res, err := env.ingest.ImportCSV(env.ctx, "week10.csv", strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, 5, res.Rows)
	require.Equal(t, 5, res.Imported)
	require.Zero(t, res.Skipped)
	require.NotEmpty(t, res.UploadID)

	rows, err := env.interviews.List(env.ctx, repository.InterviewFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	first := rows[0]
	require.Equal(t, "Ada Lovelace", first.CandidateName)
	require.True(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC).Equal(first.InterviewDate))
	require.Equal(t, 3.0, *first.OverallScore)
	require.Equal(t, "Riley Chen", *first.CandidateOwnerName)
	require.Equal(t, "Backend Engineer", *first.PostingTitle)
	require.Equal(t, res.UploadID, *first.UploadID)
	require.Nil(t, rows[2].PostingTitle)
	require.Nil(t, rows[4].OverallScore)
	require.Nil(t, rows[4].CandidateOwnerName)

	uploads, err := env.uploads.List(env.ctx)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	require.Equal(t, "week10.csv", uploads[0].Filename)
	require.Equal(t, 5, uploads[0].RecordCount)

	// Re-import skips every row and leaves no second history entry.
	res2, err := env.ingest.ImportCSV(env.ctx, "week10-again.csv", strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Zero(t, res2.Imported)
	require.Equal(t, 5, res2.Skipped)
	require.Empty(t, res2.UploadID)

	uploads, err = env.uploads.List(env.ctx)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
}

func TestImportCSVRowErrorsDoNotAbort(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	data := csvOf(
		"Ada Lovelace,03/04/24 10:00,Recruiter Screen,Riley Chen,3,Applied,,",
		"Bad Date,not a date,Recruiter Screen,Riley Chen,3,Applied,,",
		",03/04/24 11:00,Recruiter Screen,Riley Chen,3,Applied,,",
		"Ada Lovelace,03/04/24 10:00,Recruiter Screen,Riley Chen,3,Applied,,",
		"Dee Park,2024-03-05T09:00:00-05:00,Recruiter Screen,Riley Chen,n/a,,,",
		",,,,,,,",
	)
	res, err := env.ingest.ImportCSV(env.ctx, "mixed.CSV", strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 5, res.Rows)
	require.Equal(t, 2, res.Imported)
	require.Equal(t, 1, res.Skipped, "repeat within the file")
	require.Len(t, res.Errors, 2)
	require.Contains(t, res.Errors[0].Error(), "line 3: Interview Date TZ")
	require.Contains(t, res.Errors[1].Error(), "line 4: Candidate Name is empty")
	require.Equal(t, []string{res.Errors[0].Error(), res.Errors[1].Error()}, res.ErrorStrings())

	rows, err := env.interviews.List(env.ctx, repository.InterviewFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	dee := rows[1]
	require.Equal(t, "Dee Park", dee.CandidateName)
	require.True(t, time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC).Equal(dee.InterviewDate))
	require.Nil(t, dee.OverallScore)
	require.Equal(t, UnknownOrigin, dee.CandidateOrigin)
}

func TestImportCSVStructuralErrors(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	_, err := env.ingest.ImportCSV(env.ctx, "export.xlsx", strings.NewReader(sampleExport))
	require.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = env.ingest.ImportCSV(env.ctx, "partial.csv", strings.NewReader("Candidate Name,Interviewer\nAda,Riley\n"))
	require.ErrorIs(t, err, ErrMissingColumns)
	require.Contains(t, err.Error(), "Interview Date TZ, Feedback Form, Overall Score, Candidate Origin")

	_, err = env.ingest.ImportCSV(env.ctx, "empty.csv", strings.NewReader(""))
	require.ErrorIs(t, err, ErrMissingColumns)

	small := *env.ingest
	small.Config.MaxUploadSize = 64
	_, err = small.ImportCSV(env.ctx, "big.csv", strings.NewReader(sampleExport))
	require.ErrorIs(t, err, ErrUploadTooLarge)

	count, err := env.interviews.Count(env.ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestImportCSVHeaderVariants(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	data := "\xef\xbb\xbf candidate name,INTERVIEW DATE TZ,Feedback Form,Interviewer,Overall Score,Candidate Origin\n" +
		"Ada Lovelace,3/4/24 10:00,Recruiter Screen,Riley Chen,4,Referral\n"
	res, err := env.ingest.ImportCSV(env.ctx, "bom.csv", strings.NewReader(data))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, 1, res.Imported)

	rows, err := env.interviews.List(env.ctx, repository.InterviewFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Ada Lovelace", rows[0].CandidateName)
	require.Equal(t, "Referral", rows[0].CandidateOrigin)
}

func TestImportCSVChunks(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)
	env.ingest.Config.ChunkSize = 3

	var lines []string
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("Candidate %02d,%s,Recruiter Screen,Riley Chen,3,Applied,,", i, base.Add(time.Duration(i)*time.Hour).Format("01/02/06 15:04")))
	}
	res, err := env.ingest.ImportCSV(env.ctx, "chunked.csv", strings.NewReader(csvOf(lines...)))
	require.NoError(t, err)
	require.Equal(t, 10, res.Imported)

	count, err := env.interviews.Count(env.ctx)
	require.NoError(t, err)
	require.Equal(t, 10, count)
}

func TestImportCSVLaterChunkFails(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)
	env.ingest.Config.ChunkSize = 1

	_, err := env.db.ExecContext(env.ctx, `CREATE TRIGGER reject_cy BEFORE INSERT ON interviews
		WHEN NEW.candidate_name = 'Cy Young'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	res, err := env.ingest.ImportCSV(env.ctx, "week10.csv", strings.NewReader(sampleExport))
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert rows 3-3")
	require.Equal(t, 2, res.Imported)
	require.NotEmpty(t, res.UploadID)

	count, err := env.interviews.Count(env.ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	uploads, err := env.uploads.List(env.ctx)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	require.Equal(t, res.UploadID, uploads[0].ID)
	require.Equal(t, res.Imported, uploads[0].RecordCount)

	rows, err := env.interviews.List(env.ctx, repository.InterviewFilters{UploadID: res.UploadID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestImportCSVFirstChunkFails(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)
	env.ingest.Config.ChunkSize = 2

	_, err := env.db.ExecContext(env.ctx, `CREATE TRIGGER reject_bob BEFORE INSERT ON interviews
		WHEN NEW.candidate_name = 'Bob Stone'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	res, err := env.ingest.ImportCSV(env.ctx, "week10.csv", strings.NewReader(sampleExport))
	require.Error(t, err)
	require.Zero(t, res.Imported)
	require.Empty(t, res.UploadID)

	// the upload row rolled back with the first chunk
	uploads, err := env.uploads.List(env.ctx)
	require.NoError(t, err)
	require.Empty(t, uploads)
}

func TestImportFile(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	path := filepath.Join(t.TempDir(), "march.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0o600))
	res, err := env.ingest.ImportFile(env.ctx, path)
	require.NoError(t, err)
	require.Equal(t, "march.csv", res.Filename)
	require.Equal(t, 5, res.Imported)

	_, err = env.ingest.ImportFile(env.ctx, filepath.Join(t.TempDir(), "notes.txt"))
	require.ErrorIs(t, err, ErrUnsupportedFile)
}
