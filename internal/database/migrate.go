package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies all embedded up migrations. It opens its own
// connection so closing the migrator leaves callers' pools untouched.
func RunMigrations(opts Options) error {
	dbURL, err := migrationURL(opts)
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// MigrationVersion reports the applied schema version.
func MigrationVersion(opts Options) (uint, bool, error) {
	dbURL, err := migrationURL(opts)
	if err != nil {
		return 0, false, err
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, false, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func migrationURL(opts Options) (string, error) {
	switch opts.Dialect {
	case DialectSQLite, "":
		if opts.Path == "" {
			return "", errors.New("database: sqlite path is required")
		}
		return "sqlite3://" + opts.Path + "?_foreign_keys=on", nil
	case DialectPostgres:
		if opts.URL == "" {
			return "", errors.New("database: postgres url is required")
		}
		return opts.URL, nil
	default:
		return "", fmt.Errorf("database: unsupported dialect %q", opts.Dialect)
	}
}
