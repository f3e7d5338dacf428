package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agencyops/internal/contact/models"
	"agencyops/internal/platform/postgres"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/sentinel"
	txcontext "agencyops/pkg/platform/tx"
)

const contactColumns = `id, kind, first_name, last_name, company_name, email, phone,
	rtw_status, rtw_check_id, nationality_category, rtw_last_checked_at,
	contract_id, contract_status, contract_token, created_at, updated_at`

// PostgresStore persists contacts in PostgreSQL. Writes join the transaction
// carried by ctx when one is present.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed contact store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Contact) error {
	query := `
		INSERT INTO contacts (id, kind, first_name, last_name, company_name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		c.ID, string(c.Kind), c.FirstName, c.LastName, c.CompanyName, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("contact %s already exists: %w", c.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, contactID id.ContactID) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	return s.findOne(ctx, "find contact by id", query, contactID)
}

// FindLatestCandidateByEmail returns the most recently created candidate with
// the given (already normalized) email. Email is not unique.
func (s *PostgresStore) FindLatestCandidateByEmail(ctx context.Context, email string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE lower(email) = $1 AND kind = 'candidate'
		ORDER BY created_at DESC
		LIMIT 1`
	return s.findOne(ctx, "find candidate by email", query, email)
}

func (s *PostgresStore) FindByContractToken(ctx context.Context, token string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE contract_token = $1`
	return s.findOne(ctx, "find contact by contract token", query, token)
}

func (s *PostgresStore) AttachContract(ctx context.Context, contactID id.ContactID, a models.ContractAttachment) error {
	query := `
		UPDATE contacts
		SET contract_id = $2, contract_status = $3, contract_token = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, contactID, a.ContractID, a.Status, a.Token, a.At)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("contract token already issued: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("attach contract: %w", err)
	}
	return requireRow(res, "attach contract")
}

// SetContractStatus mirrors a contract transition onto the contact. It is a
// no-op when the contact now references a different contract.
func (s *PostgresStore) SetContractStatus(ctx context.Context, contactID id.ContactID, contractID id.ContractID, status string, at time.Time) error {
	query := `
		UPDATE contacts
		SET contract_status = $3, updated_at = $4
		WHERE id = $1 AND contract_id = $2
	`
	if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, contactID, contractID, status, at); err != nil {
		return fmt.Errorf("set contract status: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateRtw(ctx context.Context, contactID id.ContactID, u models.RtwUpdate) error {
	query := `
		UPDATE contacts
		SET rtw_status = $2, rtw_check_id = $3, nationality_category = $4, rtw_last_checked_at = $5, updated_at = $5
		WHERE id = $1
	`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, contactID, u.Status, u.CheckID, u.NationalityCategory, u.CheckedAt)
	if err != nil {
		return fmt.Errorf("update contact rtw: %w", err)
	}
	return requireRow(res, "update contact rtw")
}

// SetRtwStatus mirrors a check outcome onto the contact. It is a no-op when
// the contact now references a newer check.
func (s *PostgresStore) SetRtwStatus(ctx context.Context, contactID id.ContactID, checkID id.RtwCheckID, status string, at time.Time) error {
	query := `
		UPDATE contacts
		SET rtw_status = $3, rtw_last_checked_at = $4, updated_at = $4
		WHERE id = $1 AND rtw_check_id = $2
	`
	if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, contactID, checkID, status, at); err != nil {
		return fmt.Errorf("set contact rtw status: %w", err)
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, op, query string, args ...any) (*models.Contact, error) {
	c, err := scanContact(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func requireRow(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

type contactRow interface {
	Scan(dest ...any) error
}

func scanContact(row contactRow) (*models.Contact, error) {
	var (
		c              models.Contact
		kind           string
		rtwStatus      sql.NullString
		nationality    sql.NullString
		rtwCheckedAt   sql.NullTime
		contractStatus sql.NullString
		contractToken  sql.NullString
	)
	err := row.Scan(
		&c.ID, &kind, &c.FirstName, &c.LastName, &c.CompanyName, &c.Email, &c.Phone,
		&rtwStatus, &c.RtwCheckID, &nationality, &rtwCheckedAt,
		&c.ContractID, &contractStatus, &contractToken, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Kind = models.Kind(kind)
	c.RtwStatus = rtwStatus.String
	c.NationalityCategory = nationality.String
	if rtwCheckedAt.Valid {
		t := rtwCheckedAt.Time
		c.RtwLastCheckedAt = &t
	}
	c.ContractStatus = contractStatus.String
	c.ContractToken = contractToken.String
	return &c, nil
}
