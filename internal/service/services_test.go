package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/recruitmetrics/internal/config"
	"github.com/jask/recruitmetrics/internal/database"
)

func TestDatabaseOptions(t *testing.T) {
	t.Parallel()
	opts := DatabaseOptions(config.DatabaseConfig{Driver: config.DriverSQLite, Path: "/tmp/x.db"})
	require.Equal(t, database.DialectSQLite, opts.Dialect)
	require.Equal(t, "/tmp/x.db", opts.Path)

	opts = DatabaseOptions(config.DatabaseConfig{Driver: config.DriverPostgres, URL: "postgres://u@h/db", MaxOpenConns: 4})
	require.Equal(t, database.DialectPostgres, opts.Dialect)
	require.Equal(t, "postgres://u@h/db", opts.URL)
	require.Equal(t, 4, opts.MaxOpenConns)
}

func TestNewWiresSharedCache(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	cfg := config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "svc.db")},
		Metrics: config.MetricsConfig{
			CacheTTL:           time.Hour,
			CacheSize:          4,
			DefaultWeeks:       4,
			MaxWeeks:           12,
			OnsiteInterviewers: []string{"Sam Nadler", "Jordan Metzner"},
			Timezone:           "UTC",
		},
		Ingest: config.IngestConfig{MaxUploadSize: 1 << 20, ChunkSize: 100, DateLayouts: config.DefaultDateLayouts},
	}
	opts := DatabaseOptions(cfg.Database)
	require.NoError(t, database.RunMigrations(opts))
	db, err := database.Open(ctx, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := New(db, cfg, nil)
	_, err = svc.Dashboard.Snapshot(ctx, 4)
	require.ErrorIs(t, err, ErrNoData)

	res, err := svc.Ingest.ImportCSV(ctx, "sample.csv", strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Equal(t, 5, res.Imported)

	d, err := svc.Dashboard.Snapshot(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 5, d.RecordCount)
}
