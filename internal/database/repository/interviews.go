package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jask/recruitmetrics/internal/database"
)

// InterviewFilters defines list filters. Zero values mean no filter.
type InterviewFilters struct {
	From         time.Time // inclusive
	To           time.Time // exclusive
	Interviewer  string
	FeedbackForm string
	UploadID     string
}

// InterviewRepo handles interviews.
type InterviewRepo struct {
	db *database.DB
}

// NewInterviewRepo returns a repository over interviews.
func NewInterviewRepo(db *database.DB) *InterviewRepo { return &InterviewRepo{db: db} }

const interviewColumns = "id, record_key, candidate_name, interview_date, feedback_form, interviewer, overall_score, candidate_origin, candidate_owner_name, posting_title, upload_id, created_at"

// InsertBatch inserts rows inside tx. A duplicate record_key fails the whole batch.
func (r *InterviewRepo) InsertBatch(ctx context.Context, tx *sql.Tx, rows []Interview) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(`
	INSERT INTO interviews(
	 id, record_key, candidate_name, interview_date, feedback_form, interviewer,
	 overall_score, candidate_origin, candidate_owner_name, posting_title, upload_id, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, in := range rows {
		if _, err := stmt.ExecContext(ctx,
			in.ID, in.RecordKey, in.CandidateName, in.InterviewDate.UTC(), in.FeedbackForm, in.Interviewer,
			in.OverallScore, in.CandidateOrigin, in.CandidateOwnerName, in.PostingTitle, in.UploadID); err != nil {
			return err
		}
	}
	return nil
}

// List returns interviews matching f, oldest first.
func (r *InterviewRepo) List(ctx context.Context, f InterviewFilters) ([]Interview, error) {
	var where []string
	var args []interface{}

	if !f.From.IsZero() {
		where = append(where, "interview_date >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "interview_date < ?")
		args = append(args, f.To.UTC())
	}
	if f.Interviewer != "" {
		where = append(where, "interviewer = ?")
		args = append(args, f.Interviewer)
	}
	if f.FeedbackForm != "" {
		where = append(where, "feedback_form = ?")
		args = append(args, f.FeedbackForm)
	}
	if f.UploadID != "" {
		where = append(where, "upload_id = ?")
		args = append(args, f.UploadID)
	}

	query := "SELECT " + interviewColumns + " FROM interviews"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY interview_date ASC, candidate_name ASC"

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Interview
	for rows.Next() {
		in, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *InterviewRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interviews`).Scan(&n)
	return n, err
}

// RecordKeys returns the set of stored record keys for duplicate filtering.
func (r *InterviewRepo) RecordKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record_key FROM interviews`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

// LatestInterviewDate returns the most recent interview date; ok is false on an empty table.
func (r *InterviewRepo) LatestInterviewDate(ctx context.Context) (latest time.Time, ok bool, err error) {
	// ORDER BY keeps the column type so the driver scans a time, MAX() would not.
	row := r.db.QueryRowContext(ctx, `SELECT interview_date FROM interviews ORDER BY interview_date DESC LIMIT 1`)
	if err = row.Scan(&latest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return latest.UTC(), true, nil
}

// DeleteByUpload removes every interview introduced by the given upload.
func (r *InterviewRepo) DeleteByUpload(ctx context.Context, tx *sql.Tx, uploadID string) (int64, error) {
	res, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM interviews WHERE upload_id = ?`), uploadID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAll removes every interview.
func (r *InterviewRepo) DeleteAll(ctx context.Context, tx *sql.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM interviews`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanInterview handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInterview(row scanner) (Interview, error) {
	var in Interview
	var score sql.NullFloat64
	var owner, posting, upload sql.NullString
	if err := row.Scan(&in.ID, &in.RecordKey, &in.CandidateName, &in.InterviewDate, &in.FeedbackForm, &in.Interviewer,
		&score, &in.CandidateOrigin, &owner, &posting, &upload, &in.CreatedAt); err != nil {
		return Interview{}, err
	}
	in.InterviewDate = in.InterviewDate.UTC()
	if score.Valid {
		in.OverallScore = &score.Float64
	}
	if owner.Valid {
		in.CandidateOwnerName = &owner.String
	}
	if posting.Valid {
		in.PostingTitle = &posting.String
	}
	if upload.Valid {
		in.UploadID = &upload.String
	}
	return in, nil
}
