package storage

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"
)

// Migration is one embedded SQL file and when it was applied.
type Migration struct {
	Version   string     `json:"version"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// RunMigrations executes unapplied SQL migration files from the provided
// filesystem in lexical order. Each file runs in its own transaction together
// with its schema_migrations row, so a failed file leaves no trace. Returns
// the number of files applied.
func (db *DB) RunMigrations(ctx context.Context, migrationsFS fs.FS) (int, error) {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return 0, err
	}

	status, err := db.MigrationStatus(ctx, migrationsFS)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range status {
		if m.AppliedAt != nil {
			db.logger.Debug("migration already applied, skipping", "file", m.Version)
			continue
		}

		content, err := fs.ReadFile(migrationsFS, m.Version)
		if err != nil {
			return applied, fmt.Errorf("storage: read migration %s: %w", m.Version, err)
		}

		db.logger.Info("running migration", "file", m.Version)
		tx, err := db.pool.Begin(ctx)
		if err != nil {
			return applied, fmt.Errorf("storage: begin migration %s: %w", m.Version, err)
		}
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			_ = tx.Rollback(ctx)
			return applied, fmt.Errorf("storage: execute migration %s: %w", m.Version, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, m.Version,
		); err != nil {
			_ = tx.Rollback(ctx)
			return applied, fmt.Errorf("storage: record migration %s: %w", m.Version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return applied, fmt.Errorf("storage: commit migration %s: %w", m.Version, err)
		}
		applied++
	}
	return applied, nil
}

// MigrationStatus lists every embedded migration with its applied time, if any.
func (db *DB) MigrationStatus(ctx context.Context, migrationsFS fs.FS) ([]Migration, error) {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("storage: read migrations dir: %w", err)
	}

	rows, err := db.pool.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("storage: load applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var v string
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("storage: scan applied migration: %w", err)
		}
		applied[v] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: load applied migrations: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		m := Migration{Version: entry.Name()}
		if at, ok := applied[m.Version]; ok {
			m.AppliedAt = &at
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })
	return out, nil
}

func (db *DB) ensureMigrationsTable(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("storage: create schema_migrations: %w", err)
	}
	return nil
}
