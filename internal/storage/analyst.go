package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// MaxAnalystRows caps the rows returned for generated SQL.
const MaxAnalystRows = 500

// CheckReadOnlySQL accepts exactly one SELECT or WITH statement. A single
// trailing semicolon is tolerated.
func CheckReadOnlySQL(sql string) (string, error) {
	s := strings.TrimSpace(sql)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" || strings.Contains(s, ";") {
		return "", ErrUnsafeQuery
	}
	head := strings.ToUpper(strings.Fields(s)[0])
	if head != "SELECT" && head != "WITH" {
		return "", ErrUnsafeQuery
	}
	return s, nil
}

// RunReadOnlyQuery executes generated SQL in a READ ONLY transaction with a
// statement timeout and returns each row as a column-keyed map. The
// transaction is always rolled back.
func (db *DB) RunReadOnlyQuery(ctx context.Context, sql string) ([]map[string]any, error) {
	stmt, err := CheckReadOnlySQL(sql)
	if err != nil {
		return nil, err
	}

	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("storage: begin read only: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	// SET LOCAL does not take bind parameters.
	timeoutMS := max(db.queryTimeout.Milliseconds(), 1)
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", timeoutMS)); err != nil {
		return nil, fmt.Errorf("storage: set statement timeout: %w", err)
	}

	rows, err := tx.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("storage: analyst query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := []map[string]any{}
	for rows.Next() {
		if len(out) == MaxAnalystRows {
			break
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("storage: analyst values: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[f.Name] = plainValue(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: analyst query: %w", err)
	}
	return out, nil
}

// plainValue converts pgx wire types that do not marshal cleanly into
// float64 or string.
func plainValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return v
	}
}
