package migrations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// Table is the record container holding medicines.
const Table = "medicines"

const (
	metaTable        = "store_meta"
	schemaVersionKey = "schema_version"
	brandNameIndex   = "idx_medicines_brand_name"
	saltNameIndex    = "idx_medicines_salt_name"
)

// ErrSchemaTooNew is returned when the store was written by a newer build.
var ErrSchemaTooNew = errors.New("schema version is newer than supported")

// Dialect selects the SQL variant used for DDL and introspection.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Migration is one additive schema step. Up must be safe to run against a
// schema that already contains what it creates.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sqlx.Tx, d Dialect) error
}

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "create medicines container",
		Up: func(ctx context.Context, tx *sqlx.Tx, d Dialect) error {
			_, err := tx.ExecContext(ctx, createMedicinesTable(d))
			return err
		},
	},
	{
		Version:     2,
		Description: "add brand and salt name indexes",
		Up: func(ctx context.Context, tx *sqlx.Tx, d Dialect) error {
			statements := []string{
				`CREATE INDEX IF NOT EXISTS ` + brandNameIndex + ` ON ` + Table + ` (brand_name)`,
				`CREATE INDEX IF NOT EXISTS ` + saltNameIndex + ` ON ` + Table + ` (salt_name)`,
			}
			for _, stmt := range statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

func createMedicinesTable(d Dialect) string {
	idColumn := `id INTEGER PRIMARY KEY AUTOINCREMENT`
	realType := `REAL`
	if d == Postgres {
		idColumn = `id BIGSERIAL PRIMARY KEY`
		realType = `DOUBLE PRECISION`
	}
	return `CREATE TABLE IF NOT EXISTS ` + Table + ` (
            ` + idColumn + `,
            brand_name TEXT NOT NULL,
            salt_name TEXT NOT NULL,
            company_name TEXT NOT NULL,
            dosage_form TEXT NOT NULL,
            quantity ` + realType + ` NOT NULL,
            unit TEXT NOT NULL,
            price ` + realType + ` NOT NULL,
            created_at TEXT NOT NULL
        )`
}

// Default returns the migrations shipped with this build.
func Default() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

// CurrentVersion is the schema version this build writes.
func CurrentVersion() int {
	return maxVersion(defaultMigrations)
}

// Run brings the store up to the default schema.
func Run(ctx context.Context, db *sqlx.DB, d Dialect) error {
	return Apply(ctx, db, d, Default())
}

// Apply runs every migration newer than the recorded schema version, each in
// its own transaction together with the version bump. Running it against an
// up-to-date store changes nothing.
func Apply(ctx context.Context, db *sqlx.DB, d Dialect, migrations []Migration) error {
	if db == nil {
		return fmt.Errorf("run migrations: db is nil")
	}
	if err := ensureMetaTable(ctx, db); err != nil {
		return err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	current, err := Version(ctx, db)
	if err != nil {
		return err
	}
	latest := maxVersion(ordered)
	if current > latest {
		return fmt.Errorf("%w: store=%d code=%d", ErrSchemaTooNew, current, latest)
	}

	for _, m := range ordered {
		if m.Version <= current {
			continue
		}
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration v%d: %w", m.Version, err)
		}
		if err := m.Up(ctx, tx, d); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration v%d (%s): %w", m.Version, m.Description, err)
		}
		if err := setVersion(ctx, tx, m.Version); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.Version, err)
		}
	}
	return nil
}

// Version reads the recorded schema version; a fresh store reports 0.
func Version(ctx context.Context, db *sqlx.DB) (int, error) {
	var raw string
	query := db.Rebind(`SELECT value FROM ` + metaTable + ` WHERE key = ?`)
	if err := db.GetContext(ctx, &raw, query, schemaVersionKey); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", raw, err)
	}
	return v, nil
}

func ensureMetaTable(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + metaTable + ` (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        )`,
		`INSERT INTO ` + metaTable + ` (key, value) VALUES ('` + schemaVersionKey + `', '0') ON CONFLICT (key) DO NOTHING`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure meta table: %w", err)
		}
	}
	return nil
}

func setVersion(ctx context.Context, tx *sqlx.Tx, version int) error {
	query := tx.Rebind(`INSERT INTO ` + metaTable + ` (key, value) VALUES (?, ?)
        ON CONFLICT (key) DO UPDATE SET value = excluded.value`)
	if _, err := tx.ExecContext(ctx, query, schemaVersionKey, strconv.Itoa(version)); err != nil {
		return fmt.Errorf("record schema version v%d: %w", version, err)
	}
	return nil
}

func maxVersion(migrations []Migration) int {
	max := 0
	for _, m := range migrations {
		if m.Version > max {
			max = m.Version
		}
	}
	return max
}
