package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"medshelf/m/internal/migrations"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// ErrUnavailable is matched by every *UnavailableError.
var ErrUnavailable = errors.New("storage unavailable")

// UnavailableError means the store could not be opened. The session cannot
// continue without it.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Options selects the store to open. With the sqlite driver and no DSN the
// store lives in Dir/Name.db.
type Options struct {
	Driver string
	DSN    string
	Name   string
	Dir    string
}

// Handle is an open, migrated store shared by every repository operation.
type Handle struct {
	db      *sqlx.DB
	dialect migrations.Dialect
	name    string
}

// Open connects to the store and brings its schema up to date.
func Open(ctx context.Context, opts Options) (*Handle, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var dialect migrations.Dialect
	switch driver {
	case DriverSQLite:
		dialect = migrations.SQLite
	case DriverPostgres:
		dialect = migrations.Postgres
	default:
		return nil, &UnavailableError{Op: "open", Err: fmt.Errorf("unsupported driver %q", driver)}
	}

	dsn, err := resolveDSN(driver, opts)
	if err != nil {
		return nil, &UnavailableError{Op: "open", Err: err}
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, &UnavailableError{Op: "connect", Err: err}
	}
	if dialect == migrations.SQLite {
		db.SetMaxOpenConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, &UnavailableError{Op: "configure", Err: err}
		}
	}

	if err := migrations.Run(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, &UnavailableError{Op: "migrate", Err: err}
	}

	return &Handle{db: db, dialect: dialect, name: opts.Name}, nil
}

// Wrap adopts an already migrated connection, mostly for tests.
func Wrap(db *sqlx.DB, dialect migrations.Dialect) *Handle {
	return &Handle{db: db, dialect: dialect}
}

func (h *Handle) DB() *sqlx.DB { return h.db }

func (h *Handle) Dialect() migrations.Dialect { return h.dialect }

func (h *Handle) Name() string { return h.name }

// Schema describes the store as currently laid out.
func (h *Handle) Schema(ctx context.Context) (migrations.Schema, error) {
	return migrations.Describe(ctx, h.db, h.dialect)
}

func (h *Handle) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

func resolveDSN(driver string, opts Options) (string, error) {
	if opts.DSN != "" {
		return opts.DSN, nil
	}
	if driver != DriverSQLite {
		return "", fmt.Errorf("driver %s requires a dsn", driver)
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return "", fmt.Errorf("store name is required")
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create store dir: %w", err)
	}
	return filepath.Join(dir, name+".db"), nil
}

func applyPragmas(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA foreign_keys = ON`,
	}
	for _, stmt := range pragmas {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}
