package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jask/recruitmetrics/internal/database"
	"github.com/jask/recruitmetrics/internal/database/repository"
)

// ErrUploadNotFound is returned when no upload history matches a filename.
var ErrUploadNotFound = errors.New("upload not found")

// Invalidator is notified when stored interviews change.
type Invalidator interface {
	Invalidate()
}

// RemoveResult reports what RemoveUpload deleted.
type RemoveResult struct {
	Uploads    int64 `json:"uploads"`
	Interviews int64 `json:"interviews"`
}

// MaintenanceService houses destructive actions surfaced through the CLI, TUI and API.
type MaintenanceService struct {
	DB         *database.DB
	Interviews *repository.InterviewRepo
	Uploads    *repository.UploadRepo
	Cache      Invalidator
	Log        logrus.FieldLogger
}

// RemoveUpload deletes the upload history for filename. Interviews it
// introduced stay (unlinked) unless purge is set.
func (s *MaintenanceService) RemoveUpload(ctx context.Context, filename string, purge bool) (RemoveResult, error) {
	var res RemoveResult
	uploads, err := s.Uploads.ListByFilename(ctx, filename)
	if err != nil {
		return res, fmt.Errorf("list uploads: %w", err)
	}
	if len(uploads) == 0 {
		return res, fmt.Errorf("%q: %w", filename, ErrUploadNotFound)
	}

	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if purge {
			for _, u := range uploads {
				n, err := s.Interviews.DeleteByUpload(ctx, tx, u.ID)
				if err != nil {
					return fmt.Errorf("delete interviews of %s: %w", u.ID, err)
				}
				res.Interviews += n
			}
		}
		n, err := s.Uploads.DeleteByFilename(ctx, tx, filename)
		res.Uploads = n
		return err
	})
	if err != nil {
		return RemoveResult{}, err
	}

	s.invalidate()
	s.logger().WithFields(logrus.Fields{"file": filename, "purge": purge, "uploads": res.Uploads, "interviews": res.Interviews}).Info("upload removed")
	return res, nil
}

// Reset wipes all data. It keeps the schema intact so the app can continue running.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := s.Interviews.DeleteAll(ctx, tx); err != nil {
			return fmt.Errorf("reset interviews: %w", err)
		}
		if _, err := s.Uploads.DeleteAll(ctx, tx); err != nil {
			return fmt.Errorf("reset uploads: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}
	s.vacuum(ctx)
	s.invalidate()
	s.logger().Warn("all data removed")
	return nil
}

// vacuum reclaims SQLite file space after bulk deletes. Errors are logged,
// not returned.
func (s *MaintenanceService) vacuum(ctx context.Context) {
	if s.DB.Dialect != database.DialectSQLite {
		return
	}
	if _, err := s.DB.ExecContext(ctx, "VACUUM"); err != nil {
		s.logger().WithError(err).Warn("vacuum after reset failed")
	}
}

func (s *MaintenanceService) invalidate() {
	if s.Cache != nil {
		s.Cache.Invalidate()
	}
}

func (s *MaintenanceService) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
