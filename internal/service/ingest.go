package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jask/recruitmetrics/internal/config"
	"github.com/jask/recruitmetrics/internal/database"
	"github.com/jask/recruitmetrics/internal/database/repository"
)

// Column headers of the ATS interview export.
const (
	ColCandidateName      = "Candidate Name"
	ColInterviewDate      = "Interview Date TZ"
	ColFeedbackForm       = "Feedback Form"
	ColInterviewer        = "Interviewer"
	ColOverallScore       = "Overall Score"
	ColCandidateOrigin    = "Candidate Origin"
	ColCandidateOwnerName = "Candidate Owner Name"
	ColPostingTitle       = "Posting Title"
)

// RequiredColumns must all be present in an upload's header row.
var RequiredColumns = []string{
	ColCandidateName,
	ColInterviewDate,
	ColFeedbackForm,
	ColInterviewer,
	ColOverallScore,
	ColCandidateOrigin,
}

var utf8BOM = []byte("\xef\xbb\xbf")

// UnknownOrigin is stored when an export row leaves Candidate Origin blank.
const UnknownOrigin = "Unknown"

// IngestService imports ATS interview exports.
type IngestService struct {
	DB         *database.DB
	Interviews *repository.InterviewRepo
	Uploads    *repository.UploadRepo
	Config     config.IngestConfig
	Location   *time.Location
	Cache      Invalidator
	Log        logrus.FieldLogger
}

type IngestResult struct {
	Filename string
	UploadID string
	Rows     int
	Imported int
	Skipped  int
	Errors   []error
}

// ErrorStrings renders row errors for display.
func (r IngestResult) ErrorStrings() []string {
	out := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		out = append(out, err.Error())
	}
	return out
}

// ImportFile opens path and imports it under its base name.
func (s *IngestService) ImportFile(ctx context.Context, path string) (IngestResult, error) {
	if !IsCSVName(path) {
		return IngestResult{Filename: filepath.Base(path)}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFile)
	}
	f, err := os.Open(path)
	if err != nil {
		return IngestResult{Filename: filepath.Base(path)}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.ImportCSV(ctx, filepath.Base(path), f)
}

// IsCSVName reports whether filename has a .csv extension.
func IsCSVName(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".csv")
}

// ImportCSV validates and stores an export. Structural problems (file type,
// size, header) fail the import; problems with single rows are collected in
// the result and the row is dropped. Rows already stored, or repeated earlier
// in the same file, are skipped.
func (s *IngestService) ImportCSV(ctx context.Context, filename string, r io.Reader) (IngestResult, error) {
	res := IngestResult{Filename: filename}
	log := s.logger().WithField("file", filename)

	if !IsCSVName(filename) {
		return res, fmt.Errorf("%s: %w", filename, ErrUnsupportedFile)
	}
	payload, err := io.ReadAll(io.LimitReader(r, s.Config.MaxUploadSize+1))
	if err != nil {
		return res, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(payload)) > s.Config.MaxUploadSize {
		return res, fmt.Errorf("%s is larger than %d bytes: %w", filename, s.Config.MaxUploadSize, ErrUploadTooLarge)
	}

	csvr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(payload, utf8BOM)))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	header, err := csvr.Read()
	if errors.Is(err, io.EOF) {
		return res, fmt.Errorf("%s is empty: %w", filename, ErrMissingColumns)
	}
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return res, err
	}

	existing, err := s.Interviews.RecordKeys(ctx)
	if err != nil {
		return res, fmt.Errorf("load record keys: %w", err)
	}

	var rows []repository.Interview
	line := 1
	for {
		line++
		rec, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if blankRecord(rec) {
			continue
		}
		res.Rows++

		in, err := s.parseRow(cols, rec)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if _, dup := existing[in.RecordKey]; dup {
			res.Skipped++
			continue
		}
		existing[in.RecordKey] = struct{}{}
		rows = append(rows, in)
	}

	if len(rows) == 0 {
		log.WithFields(logrus.Fields{"rows": res.Rows, "skipped": res.Skipped, "errors": len(res.Errors)}).Info("import found no new rows")
		return res, nil
	}

	upload := repository.FileUpload{
		ID:              uuid.NewString(),
		Filename:        filename,
		UploadTimestamp: database.Now(),
		RecordCount:     len(rows),
	}
	for i := range rows {
		rows[i].UploadID = &upload.ID
	}

	err = s.insertChunks(ctx, upload, rows, &res, log)
	if res.Imported > 0 && s.Cache != nil {
		s.Cache.Invalidate()
	}
	if err != nil {
		return res, err
	}
	res.UploadID = upload.ID

	log.WithFields(logrus.Fields{
		"rows":     res.Rows,
		"imported": res.Imported,
		"skipped":  res.Skipped,
		"errors":   len(res.Errors),
	}).Info("import complete")
	return res, nil
}

// insertChunks writes rows in ChunkSize batches, one transaction each. The
// upload record goes in with the first chunk so rows can reference it.
func (s *IngestService) insertChunks(ctx context.Context, upload repository.FileUpload, rows []repository.Interview, res *IngestResult, log logrus.FieldLogger) error {
	size := s.Config.ChunkSize
	if size <= 0 {
		size = len(rows)
	}
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunk := rows[start:end]
		err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
			if start == 0 {
				if err := s.Uploads.Insert(ctx, tx, upload); err != nil {
					return fmt.Errorf("record upload: %w", err)
				}
			}
			return s.Interviews.InsertBatch(ctx, tx, chunk)
		})
		if err != nil {
			if res.Imported > 0 {
				res.UploadID = upload.ID
				if uerr := s.Uploads.UpdateRecordCount(ctx, upload.ID, res.Imported); uerr != nil {
					log.WithError(uerr).Warn("failed to correct upload record count")
				}
			}
			return fmt.Errorf("insert rows %d-%d: %w", start+1, end, err)
		}
		res.Imported += len(chunk)
		log.WithFields(logrus.Fields{"from": start + 1, "to": end}).Debug("inserted chunk")
	}
	return nil
}

type columnIndex map[string]int

func (c columnIndex) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func indexColumns(header []string) (columnIndex, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cols := make(columnIndex)
	var missing []string
	for _, name := range append(append([]string(nil), RequiredColumns...), ColCandidateOwnerName, ColPostingTitle) {
		if i, ok := byName[strings.ToLower(name)]; ok {
			cols[name] = i
			continue
		}
		if name != ColCandidateOwnerName && name != ColPostingTitle {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

func (s *IngestService) parseRow(cols columnIndex, rec []string) (repository.Interview, error) {
	in := repository.Interview{
		ID:              uuid.NewString(),
		CandidateName:   cols.get(rec, ColCandidateName),
		FeedbackForm:    cols.get(rec, ColFeedbackForm),
		Interviewer:     cols.get(rec, ColInterviewer),
		CandidateOrigin: cols.get(rec, ColCandidateOrigin),
	}
	for _, req := range []struct{ name, value string }{
		{ColCandidateName, in.CandidateName},
		{ColFeedbackForm, in.FeedbackForm},
		{ColInterviewer, in.Interviewer},
	} {
		if req.value == "" {
			return repository.Interview{}, fmt.Errorf("%s is empty", req.name)
		}
	}
	if in.CandidateOrigin == "" {
		in.CandidateOrigin = UnknownOrigin
	}

	date, err := parseInterviewDate(cols.get(rec, ColInterviewDate), s.Config.DateLayouts, s.location())
	if err != nil {
		return repository.Interview{}, fmt.Errorf("%s: %w", ColInterviewDate, err)
	}
	in.InterviewDate = date
	in.OverallScore = parseScore(cols.get(rec, ColOverallScore))
	in.CandidateOwnerName = nullableStr(cols.get(rec, ColCandidateOwnerName))
	in.PostingTitle = nullableStr(cols.get(rec, ColPostingTitle))
	in.RecordKey = repository.RecordKey(in.CandidateName, in.InterviewDate, in.FeedbackForm, in.Interviewer)
	return in, nil
}

func parseInterviewDate(s string, layouts []string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date is empty")
	}
	if len(layouts) == 0 {
		layouts = config.DefaultDateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseScore treats blank and non-numeric scores as missing.
func parseScore(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func nullableStr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func (s *IngestService) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *IngestService) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
