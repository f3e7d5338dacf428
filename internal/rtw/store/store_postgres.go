package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agencyops/internal/rtw/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/sentinel"
	txcontext "agencyops/pkg/platform/tx"
)

const checkColumns = `id, contact_id, method, nationality_category, status, share_code, date_of_birth,
	statutory_excuse, outcome_notes, created_at, updated_at`

// PostgresStore persists right-to-work checks in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Check) error {
	query := `
		INSERT INTO rtw_checks (id, contact_id, method, nationality_category, status, share_code, date_of_birth,
			statutory_excuse, outcome_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var dob sql.NullTime
	if c.DateOfBirth != nil {
		dob = sql.NullTime{Time: *c.DateOfBirth, Valid: true}
	}
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		c.ID, c.ContactID, string(c.Method), c.NationalityCategory, string(c.Status), c.ShareCode, dob,
		c.StatutoryExcuse, c.OutcomeNotes, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create rtw check: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, checkID id.RtwCheckID) (*models.Check, error) {
	query := `SELECT ` + checkColumns + ` FROM rtw_checks WHERE id = $1`
	c, err := scanCheck(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, checkID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rtw check not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find rtw check: %w", err)
	}
	return c, nil
}

// RecordOutcome sets the outcome only while the check is still in its
// initial status, which for a given method is fixed.
func (s *PostgresStore) RecordOutcome(ctx context.Context, checkID id.RtwCheckID, to models.Status, statutoryExcuse bool, notes string, at time.Time) (*models.Check, error) {
	query := `
		UPDATE rtw_checks
		SET status = $2, statutory_excuse = $3, outcome_notes = $4, updated_at = $5
		WHERE id = $1 AND status IN ('pending', 'scheduled')
		RETURNING ` + checkColumns
	exec := txcontext.Exec(ctx, s.db)
	c, err := scanCheck(exec.QueryRowContext(ctx, query, checkID, string(to), statutoryExcuse, notes, at))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record rtw outcome: %w", err)
	}

	var current string
	err = exec.QueryRowContext(ctx, `SELECT status FROM rtw_checks WHERE id = $1`, checkID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rtw check not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read rtw check status: %w", err)
	}
	return nil, fmt.Errorf("rtw check already %s: %w", current, sentinel.ErrInvalidState)
}

// CountByContact reports how many checks reference contactID.
func (s *PostgresStore) CountByContact(ctx context.Context, contactID id.ContactID) (int, error) {
	var n int
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT count(*) FROM rtw_checks WHERE contact_id = $1`, contactID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rtw checks: %w", err)
	}
	return n, nil
}

type checkRow interface {
	Scan(dest ...any) error
}

func scanCheck(row checkRow) (*models.Check, error) {
	var (
		c              models.Check
		method, status string
		dob            sql.NullTime
	)
	err := row.Scan(&c.ID, &c.ContactID, &method, &c.NationalityCategory, &status, &c.ShareCode, &dob,
		&c.StatutoryExcuse, &c.OutcomeNotes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Method = models.Method(method)
	c.Status = models.Status(status)
	if dob.Valid {
		d := dob.Time
		c.DateOfBirth = &d
	}
	return &c, nil
}
