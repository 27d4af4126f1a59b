// Package storage provides the PostgreSQL warehouse layer for VIGIL.
//
// It manages connection pooling (pgxpool), a dedicated connection for
// LISTEN/NOTIFY, embedded migrations, and the canned queries behind the
// dashboard and copilot: assets, vegetation, risk, work orders, smart meter
// readings, ML predictions and retrieval documents.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// DB wraps a pgxpool.Pool for queries and an optional dedicated pgx.Conn
// for LISTEN/NOTIFY.
type DB struct {
	pool       *pgxpool.Pool
	notifyConn *pgx.Conn
	logger     *slog.Logger

	// queryTimeout bounds analyst-generated queries.
	queryTimeout time.Duration
}

// Option configures a DB.
type Option func(*DB)

// WithQueryTimeout sets the statement timeout applied to RunReadOnlyQuery.
func WithQueryTimeout(d time.Duration) Option {
	return func(db *DB) {
		if d > 0 {
			db.queryTimeout = d
		}
	}
}

// New creates a new DB with a connection pool.
// notifyDSN should point directly to Postgres (not a transaction pooler) and
// may be empty to disable LISTEN/NOTIFY.
func New(ctx context.Context, poolDSN, notifyDSN string, logger *slog.Logger, opts ...Option) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(poolDSN)
	if err != nil {
		return nil, fmt.Errorf("storage: parse pool DSN: %w", err)
	}

	// Register pgvector types on each new connection. Best-effort: the
	// extension may not exist until migrations have run.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if err := pgxvector.RegisterTypes(ctx, conn); err != nil {
			logger.Debug("storage: pgvector types not registered (extension may not exist yet)", "error", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}

	var notifyConn *pgx.Conn
	if notifyDSN != "" {
		notifyConn, err = pgx.Connect(ctx, notifyDSN)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("storage: connect notify: %w", err)
		}
	}

	db := &DB{
		pool:         pool,
		notifyConn:   notifyConn,
		logger:       logger,
		queryTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Pool returns the underlying connection pool for use by other packages.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// HasNotify reports whether a LISTEN/NOTIFY connection is configured.
func (db *DB) HasNotify() bool {
	return db.notifyConn != nil
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close shuts down the connection pool and notify connection.
func (db *DB) Close(ctx context.Context) {
	db.pool.Close()
	if db.notifyConn != nil {
		if err := db.notifyConn.Close(ctx); err != nil {
			db.logger.Warn("storage: close notify connection", "error", err)
		}
	}
}
