package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jask/recruitmetrics/internal/database"
)

// UploadRepo handles the file upload history.
type UploadRepo struct {
	db *database.DB
}

// NewUploadRepo returns a repository over file_uploads.
func NewUploadRepo(db *database.DB) *UploadRepo {
	return &UploadRepo{db: db}
}

func (r *UploadRepo) Insert(ctx context.Context, tx *sql.Tx, u FileUpload) error {
	_, err := tx.ExecContext(ctx, r.db.Rebind(`
	INSERT INTO file_uploads(id, filename, upload_timestamp, record_count)
	VALUES (?, ?, ?, ?)`), u.ID, u.Filename, u.UploadTimestamp.UTC(), u.RecordCount)
	return err
}

// List returns uploads newest first.
func (r *UploadRepo) List(ctx context.Context) ([]FileUpload, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, filename, upload_timestamp, record_count FROM file_uploads ORDER BY upload_timestamp DESC, filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FileUpload
	for rows.Next() {
		var u FileUpload
		if err := rows.Scan(&u.ID, &u.Filename, &u.UploadTimestamp, &u.RecordCount); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListByFilename returns every upload recorded under filename, newest first.
func (r *UploadRepo) ListByFilename(ctx context.Context, filename string) ([]FileUpload, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT id, filename, upload_timestamp, record_count FROM file_uploads WHERE filename = ? ORDER BY upload_timestamp DESC`), filename)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FileUpload
	for rows.Next() {
		var u FileUpload
		if err := rows.Scan(&u.ID, &u.Filename, &u.UploadTimestamp, &u.RecordCount); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Get returns the upload with id, or nil when there is none.
func (r *UploadRepo) Get(ctx context.Context, id string) (*FileUpload, error) {
	var u FileUpload
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT id, filename, upload_timestamp, record_count FROM file_uploads WHERE id = ?`), id).
		Scan(&u.ID, &u.Filename, &u.UploadTimestamp, &u.RecordCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// DeleteByFilename removes history rows for filename and reports how many went away.
func (r *UploadRepo) DeleteByFilename(ctx context.Context, tx *sql.Tx, filename string) (int64, error) {
	res, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM file_uploads WHERE filename = ?`), filename)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAll clears the upload history.
func (r *UploadRepo) DeleteAll(ctx context.Context, tx *sql.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM file_uploads`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateRecordCount corrects the count of an upload after a partial import.
func (r *UploadRepo) UpdateRecordCount(ctx context.Context, id string, count int) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE file_uploads SET record_count = ? WHERE id = ?`), count, id)
	return err
}
