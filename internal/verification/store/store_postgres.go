package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agencyops/internal/verification/models"
	"agencyops/pkg/platform/sentinel"
	txcontext "agencyops/pkg/platform/tx"
)

// PostgresStore persists verification codes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed verification code store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Code) error {
	query := `
		INSERT INTO verification_codes (id, email, code, purpose, candidate_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		c.ID, c.Email, c.Code, c.Purpose, c.CandidateID, c.ExpiresAt, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create verification code: %w", err)
	}
	return nil
}

// Claim atomically removes and returns the newest row matching the tuple.
// Concurrent callers never observe the same row: the loser either skips the
// locked row or finds nothing left to delete.
func (s *PostgresStore) Claim(ctx context.Context, email, code, purpose string) (*models.Code, error) {
	query := `
		DELETE FROM verification_codes
		WHERE id = (
			SELECT id FROM verification_codes
			WHERE email = $1 AND code = $2 AND purpose = $3
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, email, code, purpose, candidate_id, expires_at, created_at, used_at
	`
	var (
		c      models.Code
		usedAt sql.NullTime
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, email, code, purpose).Scan(
		&c.ID, &c.Email, &c.Code, &c.Purpose, &c.CandidateID, &c.ExpiresAt, &c.CreatedAt, &usedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("verification code not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("claim verification code: %w", err)
	}
	if usedAt.Valid {
		c.UsedAt = &usedAt.Time
	}
	return &c, nil
}

// DeleteExpired removes every code whose expiry is at or before now.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM verification_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired verification codes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired verification codes rows affected: %w", err)
	}
	return int(n), nil
}
