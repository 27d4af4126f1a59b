// Package testutil provides shared test infrastructure for integration tests
// that need a PostgreSQL container with pgvector.
//
// Usage in TestMain:
//
//	func TestMain(m *testing.M) {
//	    tc, err := testutil.StartPostgres()
//	    if err != nil {
//	        fmt.Fprintln(os.Stderr, "skipping integration tests:", err)
//	        os.Exit(m.Run())
//	    }
//	    defer tc.Terminate()
//	    testDB, _ = tc.NewTestDB(context.Background(), testutil.TestLogger())
//	    os.Exit(m.Run())
//	}
package testutil

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vigil-grid/vigil/internal/storage"
	"github.com/vigil-grid/vigil/migrations"
)

//go:embed fixture.sql
var fixtureSQL string

// TestContainer wraps a testcontainers container with a DSN for connecting.
type TestContainer struct {
	Container testcontainers.Container
	DSN       string
}

// StartPostgres starts a pgvector-enabled Postgres container with the vector
// extension pre-created. It returns an error when -short is set or Docker is
// unavailable so callers can skip integration tests.
func StartPostgres() (tc *TestContainer, err error) {
	if !flag.Parsed() {
		flag.Parse()
	}
	if testing.Short() {
		return nil, fmt.Errorf("testutil: -short set")
	}

	// testcontainers panics when no Docker host can be found.
	defer func() {
		if r := recover(); r != nil {
			tc, err = nil, fmt.Errorf("testutil: docker unavailable: %v", r)
		}
	}()

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg17",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "vigil",
			"POSTGRES_PASSWORD": "vigil",
			"POSTGRES_DB":       "vigil",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("testutil: start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("testutil: container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("testutil: container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://vigil:vigil@%s:%s/vigil?sslmode=disable", host, port.Port())

	// Create the extension before any pool exists so pgvector types are
	// registered by the pool's AfterConnect hook.
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("testutil: bootstrap connection: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("testutil: create vector extension: %w", err)
	}

	return &TestContainer{Container: container, DSN: dsn}, nil
}

// NewTestDB creates a storage.DB connected to this container, runs all
// migrations and loads the fixture grid.
func (tc *TestContainer) NewTestDB(ctx context.Context, logger *slog.Logger) (*storage.DB, error) {
	db, err := storage.New(ctx, tc.DSN, tc.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("testutil: create DB: %w", err)
	}
	if _, err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return nil, fmt.Errorf("testutil: run migrations: %w", err)
	}
	if _, err := db.Pool().Exec(ctx, fixtureSQL); err != nil {
		return nil, fmt.Errorf("testutil: load fixture: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container.
func (tc *TestContainer) Terminate() {
	_ = tc.Container.Terminate(context.Background())
}

// TestLogger returns a logger configured for test output (warns only).
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
