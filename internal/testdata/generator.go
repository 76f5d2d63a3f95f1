// Package testdata generates realistic ATS interview exports for demos and tests.
package testdata

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"

	"github.com/jask/recruitmetrics/internal/database/repository"
	"github.com/jask/recruitmetrics/internal/metrics"
	"github.com/jask/recruitmetrics/internal/service"
)

// ExportLayout is the date format of the ATS export.
const ExportLayout = "01/02/06 15:04"

// SampleFilename is the upload name used by Seed.
const SampleFilename = "sample-data.csv"

// Options controls Generate. Zero values pick the defaults below.
type Options struct {
	Seed               int64
	Weeks              int
	End                time.Time
	Recruiters         []string
	OnsiteInterviewers []string
}

var (
	defaultRecruiters = []string{"Riley Chen", "Morgan Patel", "Avery Brooks"}
	defaultOnsite     = []string{"Sam Nadler", "Jordan Metzner"}

	firstNames = []string{"Ada", "Grace", "Alan", "Barbara", "Dennis", "Frances", "Ken", "Margaret", "Linus", "Radia", "Edsger", "Katherine", "Tim", "Hedy", "Claude", "Annie"}
	lastNames  = []string{"Lovelace", "Hopper", "Turing", "Liskov", "Ritchie", "Allen", "Thompson", "Hamilton", "Torvalds", "Perlman", "Dijkstra", "Johnson", "Berners", "Lamarr", "Shannon", "Easley"}
	origins    = []string{"Applied", "Applied", "Sourced", "LinkedIn", "Referred", "Internal Referral", "Agency"}
	postings   = []string{"Backend Engineer", "Frontend Engineer", "Data Scientist", "Product Designer", "Site Reliability Engineer"}
)

func (o Options) withDefaults() Options {
	if o.Weeks <= 0 {
		o.Weeks = 12
	}
	if o.End.IsZero() {
		o.End = time.Now().UTC()
	}
	if len(o.Recruiters) == 0 {
		o.Recruiters = defaultRecruiters
	}
	if len(o.OnsiteInterviewers) == 0 {
		o.OnsiteInterviewers = defaultOnsite
	}
	return o
}

// Generate returns screens for each recruiter in each of the weeks ending at
// End, plus onsites for a share of the candidates who passed. The same
// options always produce the same rows.
func Generate(opts Options) []repository.Interview {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))
	used := make(map[string]int)

	candidate := func() string {
		name := firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s %d", name, n)
		}
		return name
	}

	var rows []repository.Interview
	firstMonday := metrics.MondayOf(opts.End).AddDate(0, 0, -7*(opts.Weeks-1))
	for w := 0; w < opts.Weeks; w++ {
		monday := firstMonday.AddDate(0, 0, 7*w)
		for _, recruiter := range opts.Recruiters {
			screens := 3 + rng.Intn(6)
			for i := 0; i < screens; i++ {
				when := monday.AddDate(0, 0, rng.Intn(5)).Add(time.Duration(9+rng.Intn(8))*time.Hour + time.Duration(rng.Intn(4)*15)*time.Minute)
				if when.After(opts.End) {
					continue
				}
				name := candidate()
				origin := origins[rng.Intn(len(origins))]
				posting := postings[rng.Intn(len(postings))]
				owner := recruiter

				var score *float64
				if rng.Intn(20) > 0 {
					s := float64(1 + rng.Intn(4))
					score = &s
				}
				rows = append(rows, repository.Interview{
					CandidateName:      name,
					InterviewDate:      when,
					FeedbackForm:       "Recruiter Screen",
					Interviewer:        recruiter,
					OverallScore:       score,
					CandidateOrigin:    origin,
					CandidateOwnerName: &owner,
					PostingTitle:       &posting,
				})

				if score == nil || *score < 3 || rng.Intn(10) >= 6 {
					continue
				}
				onsiteAt := when.AddDate(0, 0, 3+rng.Intn(8))
				if onsiteAt.After(opts.End) {
					continue
				}
				for _, interviewer := range opts.OnsiteInterviewers {
					if rng.Intn(3) == 0 {
						continue
					}
					s := float64(1 + rng.Intn(4))
					rows = append(rows, repository.Interview{
						CandidateName:      name,
						InterviewDate:      onsiteAt.Add(time.Duration(rng.Intn(3)) * time.Hour),
						FeedbackForm:       "On-site interview",
						Interviewer:        interviewer,
						OverallScore:       &s,
						CandidateOrigin:    origin,
						CandidateOwnerName: &owner,
						PostingTitle:       &posting,
					})
				}
			}
		}
	}
	return rows
}

// WriteCSV renders rows in the ATS export format. Dates are written as wall
// clock times in loc, the zone the importer reads them in; nil means UTC.
func WriteCSV(w io.Writer, rows []repository.Interview, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), service.RequiredColumns...), service.ColCandidateOwnerName, service.ColPostingTitle)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.CandidateName,
			r.InterviewDate.In(loc).Format(ExportLayout),
			r.FeedbackForm,
			r.Interviewer,
			formatScore(r.OverallScore),
			r.CandidateOrigin,
			deref(r.CandidateOwnerName),
			deref(r.PostingTitle),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Seed generates sample rows and imports them through the ingest service.
func Seed(ctx context.Context, ingest *service.IngestService, opts Options) (service.IngestResult, error) {
	if opts.End.IsZero() {
		opts.End = time.Now()
	}
	if ingest.Location != nil {
		opts.End = opts.End.In(ingest.Location)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Generate(opts), ingest.Location); err != nil {
		return service.IngestResult{}, err
	}
	return ingest.ImportCSV(ctx, SampleFilename, &buf)
}

func formatScore(s *float64) string {
	if s == nil {
		return ""
	}
	return strconv.FormatFloat(*s, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
