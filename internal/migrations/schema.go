package migrations

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// Schema describes the record container as found in a store.
type Schema struct {
	Version int      `json:"version"`
	Tables  []string `json:"tables"`
	Indexes []string `json:"indexes"`
}

// Describe lists the tables and indexes of the store, sorted by name.
// Engine-internal objects such as primary key indexes are left out.
func Describe(ctx context.Context, db *sqlx.DB, d Dialect) (Schema, error) {
	version, err := Version(ctx, db)
	if err != nil {
		return Schema{}, err
	}

	var tablesQuery, indexesQuery string
	switch d {
	case Postgres:
		tablesQuery = `SELECT tablename FROM pg_tables WHERE schemaname = current_schema()`
		indexesQuery = `SELECT indexname FROM pg_indexes WHERE schemaname = current_schema() AND indexname LIKE 'idx_%'`
	default:
		tablesQuery = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
		indexesQuery = `SELECT name FROM sqlite_master WHERE type = 'index' AND name NOT LIKE 'sqlite_%'`
	}

	schema := Schema{Version: version}
	if err := db.SelectContext(ctx, &schema.Tables, tablesQuery); err != nil {
		return Schema{}, fmt.Errorf("list tables: %w", err)
	}
	if err := db.SelectContext(ctx, &schema.Indexes, indexesQuery); err != nil {
		return Schema{}, fmt.Errorf("list indexes: %w", err)
	}
	sort.Strings(schema.Tables)
	sort.Strings(schema.Indexes)
	return schema, nil
}
