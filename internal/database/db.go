package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names the SQL flavour behind a DB handle.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// Options configures Open.
type Options struct {
	Dialect      Dialect
	Path         string // sqlite file
	URL          string // postgres connection string
	MaxOpenConns int
	PingTimeout  time.Duration
}

const defaultPingTimeout = 5 * time.Second

// DB wraps *sql.DB with the dialect needed to rebind placeholders.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open opens the configured database with sensible defaults and verifies the connection.
func Open(ctx context.Context, opts Options) (*DB, error) {
	var (
		pool *sql.DB
		err  error
	)
	switch opts.Dialect {
	case DialectSQLite, "":
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("database: sqlite path is required")
		}
		pool, err = sql.Open(string(DialectSQLite), sqliteDSN(opts.Path))
		if err != nil {
			return nil, err
		}
		pool.SetMaxOpenConns(1) // sqlite
		pool.SetConnMaxLifetime(0)
		opts.Dialect = DialectSQLite
	case DialectPostgres:
		if strings.TrimSpace(opts.URL) == "" {
			return nil, errors.New("database: postgres url is required")
		}
		pool, err = sql.Open(string(DialectPostgres), opts.URL)
		if err != nil {
			return nil, err
		}
		if opts.MaxOpenConns > 0 {
			pool.SetMaxOpenConns(opts.MaxOpenConns)
			pool.SetMaxIdleConns(opts.MaxOpenConns / 2)
		}
		pool.SetConnMaxLifetime(time.Hour)
	default:
		return nil, fmt.Errorf("database: unsupported dialect %q", opts.Dialect)
	}

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}
	return &DB{DB: pool, Dialect: opts.Dialect}, nil
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
// Queries must not contain literal question marks.
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// WithTx runs fn in a transaction.
func WithTx(ctx context.Context, db *DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Now returns UTC time truncated to seconds (consistent with SQLite default).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
