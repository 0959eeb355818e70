package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"sigil/internal/application/models"
	"sigil/pkg/platform/sentinel"
)

// PostgresStore persists applications in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE applications (
//	    id                TEXT PRIMARY KEY,
//	    display_name      TEXT NOT NULL,
//	    password_hash     TEXT NOT NULL,
//	    callback_endpoint TEXT NOT NULL,
//	    callback_path     TEXT NOT NULL,
//	    status            TEXT NOT NULL,
//	    created_at        TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (id, display_name, password_hash, callback_endpoint, callback_path, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		app.ID, app.DisplayName, app.PasswordHash,
		app.CallbackEndpoint, app.CallbackPath, string(app.Status), app.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Application, error) {
	query := `
		SELECT id, display_name, password_hash, callback_endpoint, callback_path, status, created_at
		FROM applications
		WHERE id = $1
	`
	var app models.Application
	var status string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&app.ID, &app.DisplayName, &app.PasswordHash,
		&app.CallbackEndpoint, &app.CallbackPath, &status, &app.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	app.Status = models.Status(status)
	return &app, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
