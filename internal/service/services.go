package service

import (
	"github.com/sirupsen/logrus"

	"github.com/jask/recruitmetrics/internal/config"
	"github.com/jask/recruitmetrics/internal/database"
	"github.com/jask/recruitmetrics/internal/database/repository"
	"github.com/jask/recruitmetrics/internal/logging"
	"github.com/jask/recruitmetrics/internal/metrics"
)

// Services bundles the repositories and services shared by the CLI, TUI and API.
type Services struct {
	DB          *database.DB
	Interviews  *repository.InterviewRepo
	Uploads     *repository.UploadRepo
	Calc        *metrics.Calculator
	Dashboard   *DashboardService
	Ingest      *IngestService
	Maintenance *MaintenanceService
	Duplicates  *DuplicateFinder
}

// New wires services over an open database.
func New(db *database.DB, cfg config.Config, log logrus.FieldLogger) *Services {
	if log == nil {
		log = logging.Discard()
	}
	loc := cfg.Location()
	interviews := repository.NewInterviewRepo(db)
	uploads := repository.NewUploadRepo(db)
	calc := metrics.New(metrics.Options{
		OnsiteInterviewers: cfg.Metrics.OnsiteInterviewers,
		Location:           loc,
	})
	dash := NewDashboardService(interviews, calc, cfg.Metrics, logging.WithPrefix(log, "dashboard"))

	return &Services{
		DB:         db,
		Interviews: interviews,
		Uploads:    uploads,
		Calc:       calc,
		Dashboard:  dash,
		Ingest: &IngestService{
			DB:         db,
			Interviews: interviews,
			Uploads:    uploads,
			Config:     cfg.Ingest,
			Location:   loc,
			Cache:      dash,
			Log:        logging.WithPrefix(log, "ingest"),
		},
		Maintenance: &MaintenanceService{
			DB:         db,
			Interviews: interviews,
			Uploads:    uploads,
			Cache:      dash,
			Log:        logging.WithPrefix(log, "maintenance"),
		},
		Duplicates: &DuplicateFinder{Interviews: interviews, MaxDistance: DefaultMaxNameDistance},
	}
}

// DatabaseOptions maps database config onto database.Open options.
func DatabaseOptions(cfg config.DatabaseConfig) database.Options {
	opts := database.Options{
		Dialect:      database.DialectSQLite,
		Path:         cfg.Path,
		URL:          cfg.URL,
		MaxOpenConns: cfg.MaxOpenConns,
	}
	if cfg.Driver == config.DriverPostgres {
		opts.Dialect = database.DialectPostgres
	}
	return opts
}
