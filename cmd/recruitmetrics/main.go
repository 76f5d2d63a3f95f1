package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/jask/recruitmetrics/internal/config"
	"github.com/jask/recruitmetrics/internal/database"
	"github.com/jask/recruitmetrics/internal/logging"
	"github.com/jask/recruitmetrics/internal/secrets"
	"github.com/jask/recruitmetrics/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is an opened configuration, logger and database with services wired.
type app struct {
	cfg     config.Config
	log     *logrus.Logger
	db      *database.DB
	svc     *service.Services
	logFile *os.File
}

// openApp loads config, resolves the database URL, migrates and connects.
// When logTo is non-nil logs go there instead of stderr.
func openApp(ctx context.Context, logTo io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Database.URL = resolveDatabaseURL(cfg.Database)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &app{cfg: cfg}
	if logTo == nil {
		a.log = logging.New(cfg.Log)
	} else {
		a.log = logging.NewWithWriter(cfg.Log, logTo)
	}

	if cfg.Database.Driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}
	opts := service.DatabaseOptions(cfg.Database)
	if err := database.RunMigrations(opts); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.db = db
	a.svc = service.New(db, cfg, a.log)
	a.log.WithFields(logrus.Fields{"driver": cfg.Database.Driver}).Debug("database ready")
	return a, nil
}

func (a *app) Close() error {
	err := a.db.Close()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
	return err
}

// resolveDatabaseURL prefers the environment, then the credential store,
// then the config file.
func resolveDatabaseURL(cfg config.DatabaseConfig) string {
	for _, k := range []string{"DATABASE_URL", "SUPABASE_DB_URL"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	if v, err := secrets.FetchCredential(secrets.DatabaseURL); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return cfg.URL
}
