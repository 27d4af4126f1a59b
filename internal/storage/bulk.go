package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Table is a batch of rows for one table. Schema is optional.
type Table struct {
	Schema  string
	Name    string
	Columns []string
	Rows    [][]any
}

func (t Table) identifier() pgx.Identifier {
	if t.Schema != "" {
		return pgx.Identifier{t.Schema, t.Name}
	}
	return pgx.Identifier{t.Name}
}

// ReplaceTables truncates every table and bulk-loads the given rows in one
// transaction. Tables are loaded in slice order, so parents must come before
// the tables that reference them. Returns rows copied per table.
func (db *DB) ReplaceTables(ctx context.Context, tables []Table) (map[string]int64, error) {
	if len(tables) == 0 {
		return map[string]int64{}, nil
	}

	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.identifier().Sanitize()
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: begin bulk load: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "TRUNCATE "+strings.Join(names, ", ")+" CASCADE"); err != nil {
		return nil, fmt.Errorf("storage: truncate: %w", err)
	}

	counts := make(map[string]int64, len(tables))
	for i, t := range tables {
		n, err := tx.CopyFrom(ctx, t.identifier(), t.Columns, pgx.CopyFromRows(t.Rows))
		if err != nil {
			return nil, fmt.Errorf("storage: copy %s: %w", names[i], err)
		}
		counts[strings.Join(t.identifier(), ".")] = n
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("storage: commit bulk load: %w", err)
	}
	db.logger.Info("bulk load complete", "tables", len(tables))
	return counts, nil
}
