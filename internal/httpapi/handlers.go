package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/jask/recruitmetrics/internal/database/repository"
	"github.com/jask/recruitmetrics/internal/metrics"
	"github.com/jask/recruitmetrics/internal/service"
)

// multipart framing allowance on top of the CSV size limit
const formOverhead = 64 << 10

type uploadJSON struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
	RecordCount     int       `json:"record_count"`
}

type importJSON struct {
	Filename string   `json:"filename"`
	UploadID string   `json:"upload_id,omitempty"`
	Rows     int      `json:"rows"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

type interviewJSON struct {
	ID              string    `json:"id"`
	CandidateName   string    `json:"candidate_name"`
	InterviewDate   time.Time `json:"interview_date"`
	FeedbackForm    string    `json:"feedback_form"`
	Interviewer     string    `json:"interviewer"`
	OverallScore    *float64  `json:"overall_score"`
	CandidateOrigin string    `json:"candidate_origin"`
	UploadID        *string   `json:"upload_id"`
}

type recordCountJSON struct {
	Count           int        `json:"count"`
	LatestInterview *time.Time `json:"latest_interview,omitempty"`
}

type duplicateJSON struct {
	A          interviewJSON `json:"a"`
	B          interviewJSON `json:"b"`
	Distance   int           `json:"distance"`
	Similarity float64       `json:"similarity"`
}

func (a *api) handleDashboard(w http.ResponseWriter, r *http.Request) {
	weeks := a.cfg.Metrics.DefaultWeeks
	if raw := r.URL.Query().Get("weeks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "weeks must be an integer")
			return
		}
		weeks = n
	}

	d, err := a.svc.Dashboard.Snapshot(r.Context(), weeks)
	if err != nil {
		a.respondServiceError(w, err, "dashboard")
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (a *api) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := metrics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := a.svc.Dashboard.PeriodSummary(r.Context(), period)
	if err != nil {
		a.respondServiceError(w, err, "summary")
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func (a *api) handleRecordCount(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.Interviews.Count(r.Context())
	if err != nil {
		a.respondServiceError(w, err, "count records")
		return
	}
	out := recordCountJSON{Count: n}
	latest, ok, err := a.svc.Interviews.LatestInterviewDate(r.Context())
	if err != nil {
		a.respondServiceError(w, err, "latest interview")
		return
	}
	if ok {
		out.LatestInterview = &latest
	}
	respondJSON(w, http.StatusOK, out)
}

// handleInterviewList lists stored interviews. from and to are dates
// (YYYY-MM-DD) in the reporting timezone; to is exclusive.
func (a *api) handleInterviewList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.InterviewFilters{
		Interviewer:  q.Get("interviewer"),
		FeedbackForm: q.Get("form"),
		UploadID:     q.Get("upload"),
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation("2006-01-02", raw, a.cfg.Location())
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a date (YYYY-MM-DD), got %q", p.name, raw))
			return
		}
		*p.dst = t
	}

	rows, err := a.svc.Interviews.List(r.Context(), f)
	if err != nil {
		a.respondServiceError(w, err, "list interviews")
		return
	}
	out := make([]interviewJSON, 0, len(rows))
	for _, in := range rows {
		out = append(out, toInterviewJSON(in))
	}
	respondJSON(w, http.StatusOK, out)
}

func (a *api) handleUploadList(w http.ResponseWriter, r *http.Request) {
	uploads, err := a.svc.Uploads.List(r.Context())
	if err != nil {
		a.respondServiceError(w, err, "list uploads")
		return
	}
	out := make([]uploadJSON, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, uploadJSON{ID: u.ID, Filename: u.Filename, UploadTimestamp: u.UploadTimestamp, RecordCount: u.RecordCount})
	}
	respondJSON(w, http.StatusOK, out)
}

func (a *api) handleUploadGet(w http.ResponseWriter, r *http.Request) {
	u, err := a.svc.Uploads.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondServiceError(w, err, "get upload")
		return
	}
	if u == nil {
		a.respondServiceError(w, service.ErrUploadNotFound, "get upload")
		return
	}
	respondJSON(w, http.StatusOK, uploadJSON{ID: u.ID, Filename: u.Filename, UploadTimestamp: u.UploadTimestamp, RecordCount: u.RecordCount})
}

func (a *api) handleUploadCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.Ingest.MaxUploadSize+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, service.ErrUploadTooLarge.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "expected a multipart form with a file field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	res, err := a.svc.Ingest.ImportCSV(r.Context(), header.Filename, file)
	if err != nil {
		a.respondServiceError(w, err, "import")
		return
	}
	status := http.StatusCreated
	if res.Imported == 0 {
		status = http.StatusOK
	}
	respondJSON(w, status, importJSON{
		Filename: res.Filename,
		UploadID: res.UploadID,
		Rows:     res.Rows,
		Imported: res.Imported,
		Skipped:  res.Skipped,
		Errors:   res.ErrorStrings(),
	})
}

func (a *api) handleUploadDelete(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	var purge bool
	if raw := r.URL.Query().Get("purge"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("purge must be a boolean, got %q", raw))
			return
		}
		purge = v
	}

	res, err := a.svc.Maintenance.RemoveUpload(r.Context(), filename, purge)
	if err != nil {
		a.respondServiceError(w, err, "remove upload")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (a *api) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	pairs, err := a.svc.Duplicates.Find(r.Context())
	if err != nil {
		a.respondServiceError(w, err, "find duplicates")
		return
	}
	out := make([]duplicateJSON, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, duplicateJSON{A: toInterviewJSON(p.A), B: toInterviewJSON(p.B), Distance: p.Distance, Similarity: p.Similarity})
	}
	respondJSON(w, http.StatusOK, out)
}

func toInterviewJSON(in repository.Interview) interviewJSON {
	return interviewJSON{
		ID:              in.ID,
		CandidateName:   in.CandidateName,
		InterviewDate:   in.InterviewDate,
		FeedbackForm:    in.FeedbackForm,
		Interviewer:     in.Interviewer,
		OverallScore:    in.OverallScore,
		CandidateOrigin: in.CandidateOrigin,
		UploadID:        in.UploadID,
	}
}

func (a *api) respondServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrNoData):
		respondError(w, http.StatusNotFound, service.EmptyMessage)
	case errors.Is(err, service.ErrUploadNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrInvalidWeeks),
		errors.Is(err, service.ErrUnsupportedFile),
		errors.Is(err, service.ErrMissingColumns):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.WithError(err).WithField("op", op).Error("request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
