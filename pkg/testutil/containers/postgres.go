//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers Postgres instance with the badge
// authority schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS applications (
    id                TEXT PRIMARY KEY,
    display_name      TEXT NOT NULL,
    password_hash     TEXT NOT NULL,
    callback_endpoint TEXT NOT NULL,
    callback_path     TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS badges (
    id                 TEXT PRIMARY KEY,
    name               TEXT NOT NULL,
    owner_email        TEXT NOT NULL,
    badge_type         TEXT NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL,
    expires_at         TIMESTAMPTZ,
    requesting_app_id  TEXT NOT NULL,
    UNIQUE (name, owner_email)
);

CREATE TABLE IF NOT EXISTS inference_entries (
    domain              TEXT NOT NULL,
    inferred_badge_name TEXT NOT NULL,
    schema_version      INT NOT NULL,
    PRIMARY KEY (domain, inferred_badge_name)
);

CREATE TABLE IF NOT EXISTS badge_transactions (
    id                TEXT PRIMARY KEY,
    state             TEXT NOT NULL,
    sponsor_app_id    TEXT NOT NULL,
    sponsor_app_name  TEXT NOT NULL,
    started_at        TIMESTAMPTZ NOT NULL,
    verification_code TEXT NOT NULL DEFAULT '',
    user_email        TEXT NOT NULL DEFAULT '',
    retry_count       INT NOT NULL DEFAULT 0,
    refusal_reason    TEXT NOT NULL DEFAULT ''
);
`

// NewPostgresContainer starts a Postgres container, applies the schema and
// connects. The container is terminated when the test finishes.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("sigil_test"),
		tcpostgres.WithUsername("sigil"),
		tcpostgres.WithPassword("sigil"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		t.Fatalf("failed to ping postgres: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{Container: container, DB: db}
}

// TruncateTables clears the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", "))
	_, err := p.DB.ExecContext(ctx, query)
	return err
}
