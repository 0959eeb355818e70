package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sigil/internal/badge/models"
	"sigil/pkg/platform/sentinel"
)

// PostgresStore persists badges in PostgreSQL. The unique constraint on
// (name, owner_email) backstops duplicate awards racing across separate
// transactions.
//
// Expected schema:
//
//	CREATE TABLE badges (
//	    id                 TEXT PRIMARY KEY,
//	    name               TEXT NOT NULL,
//	    owner_email        TEXT NOT NULL,
//	    badge_type         TEXT NOT NULL,
//	    created_at         TIMESTAMPTZ NOT NULL,
//	    expires_at         TIMESTAMPTZ,
//	    requesting_app_id  TEXT NOT NULL,
//	    UNIQUE (name, owner_email)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, badge *models.Badge) error {
	badge.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO badges (id, name, owner_email, badge_type, created_at, expires_at, requesting_app_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		badge.ID, badge.Name, badge.OwnerEmail, string(badge.Type),
		badge.CreatedAt, badge.ExpiresAt, badge.RequestingAppID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert badge: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByNameAndOwner(ctx context.Context, name, ownerEmail string) (*models.Badge, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_email, badge_type, created_at, expires_at, requesting_app_id
		FROM badges
		WHERE name = $1 AND owner_email = $2`,
		name, ownerEmail,
	)
	badge, err := scanBadge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find badge: %w", err)
	}
	return badge, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerEmail string) ([]models.Badge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_email, badge_type, created_at, expires_at, requesting_app_id
		FROM badges
		WHERE owner_email = $1`,
		ownerEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []models.Badge
	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, *badge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate badges: %w", err)
	}
	return badges, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBadge(row scanner) (*models.Badge, error) {
	var badge models.Badge
	var badgeType string
	var expiresAt sql.NullTime
	err := row.Scan(
		&badge.ID, &badge.Name, &badge.OwnerEmail, &badgeType,
		&badge.CreatedAt, &expiresAt, &badge.RequestingAppID,
	)
	if err != nil {
		return nil, err
	}
	badge.Type = models.Type(badgeType)
	if expiresAt.Valid {
		badge.ExpiresAt = &expiresAt.Time
	}
	return &badge, nil
}
