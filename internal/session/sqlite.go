package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists sessions in a local SQLite database so that
// conversations survive restarts of a single-node deployment.
type SQLiteStore struct {
	conn *sql.DB
	ttl  time.Duration
	now  func() time.Time
}

// OpenSQLite opens or creates the session database at path. Use ":memory:"
// for a throwaway database.
func OpenSQLite(ctx context.Context, path string, ttl time.Duration) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("session: %s: %w", pragma, err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS chat_session (
			id         TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chat_session_updated ON chat_session(updated_at);
	`
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("session: create schema: %w", err)
	}

	return &SQLiteStore{conn: conn, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (State, error) {
	var raw string
	err := s.conn.QueryRowContext(ctx,
		`SELECT state FROM chat_session WHERE id = ?`, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("session: load %s: %w", id, err)
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return State{}, fmt.Errorf("session: decode %s: %w", id, err)
	}
	if expired(st, s.ttl, s.now()) {
		_ = s.Delete(ctx, id)
		return State{}, ErrNotFound
	}
	return st, nil
}

func (s *SQLiteStore) Save(ctx context.Context, st State) error {
	st.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", st.ID, err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO chat_session (id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		st.ID, string(raw), st.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("session: save %s: %w", st.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM chat_session WHERE id = ?`, id); err != nil {
		return fmt.Errorf("session: delete %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM chat_session WHERE updated_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session: sweep rows affected: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
