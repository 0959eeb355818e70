package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"sigil/internal/inference/models"
	"sigil/pkg/platform/sentinel"
)

// PostgresStore persists the inference graph in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE inference_entries (
//	    domain              TEXT NOT NULL,
//	    inferred_badge_name TEXT NOT NULL,
//	    schema_version      INT  NOT NULL,
//	    PRIMARY KEY (domain, inferred_badge_name)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, entry models.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inference_entries (domain, inferred_badge_name, schema_version) VALUES ($1, $2, $3)`,
		strings.ToLower(entry.Domain), entry.InferredBadgeName, entry.SchemaVersion,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert inference entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByDomain(ctx context.Context, domain string) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, inferred_badge_name, schema_version FROM inference_entries WHERE domain = $1`,
		strings.ToLower(domain),
	)
	if err != nil {
		return nil, fmt.Errorf("query inference entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.Domain, &e.InferredBadgeName, &e.SchemaVersion); err != nil {
			return nil, fmt.Errorf("scan inference entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inference entries: %w", err)
	}
	return entries, nil
}
