package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"sigil/internal/transaction/models"
	"sigil/pkg/platform/sentinel"
)

// PostgresStore persists transactions in the badge_transactions table:
//
//	CREATE TABLE badge_transactions (
//	    id                TEXT PRIMARY KEY,
//	    state             TEXT NOT NULL,
//	    sponsor_app_id    TEXT NOT NULL,
//	    sponsor_app_name  TEXT NOT NULL,
//	    started_at        TIMESTAMPTZ NOT NULL,
//	    verification_code TEXT NOT NULL DEFAULT '',
//	    user_email        TEXT NOT NULL DEFAULT '',
//	    retry_count       INT NOT NULL DEFAULT 0,
//	    refusal_reason    TEXT NOT NULL DEFAULT ''
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, tx *models.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO badge_transactions
		   (id, state, sponsor_app_id, sponsor_app_name, started_at,
		    verification_code, user_email, retry_count, refusal_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tx.ID, tx.State, tx.SponsorAppID, tx.SponsorAppName, tx.StartedAt,
		tx.VerificationCode, tx.UserEmail, tx.RetryCount, tx.RefusalReason,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.QueryRowContext(ctx,
		`SELECT id, state, sponsor_app_id, sponsor_app_name, started_at,
		        verification_code, user_email, retry_count, refusal_reason
		   FROM badge_transactions WHERE id = $1`,
		id,
	).Scan(&tx.ID, &tx.State, &tx.SponsorAppID, &tx.SponsorAppName, &tx.StartedAt,
		&tx.VerificationCode, &tx.UserEmail, &tx.RetryCount, &tx.RefusalReason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return &tx, nil
}

// UpdateIf relies on the guarded UPDATE for atomicity: zero rows affected
// means either the record is gone or a concurrent writer moved it out of
// expectedState, and a follow-up read disambiguates the two.
func (s *PostgresStore) UpdateIf(ctx context.Context, tx *models.Transaction, expectedState models.State) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE badge_transactions
		    SET state = $1, started_at = $2, verification_code = $3,
		        user_email = $4, retry_count = $5, refusal_reason = $6
		  WHERE id = $7 AND state = $8`,
		tx.State, tx.StartedAt, tx.VerificationCode,
		tx.UserEmail, tx.RetryCount, tx.RefusalReason,
		tx.ID, expectedState,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, tx.ID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrStateMismatch
	}
	return nil
}
