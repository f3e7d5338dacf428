package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"agencyops/internal/contract/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/sentinel"
	txcontext "agencyops/pkg/platform/tx"
)

const contractColumns = `id, client_id, contract_type, status, signer_name, signer_position, signer_company,
	terms, sent_date, signed_date, expired_date, created_at, updated_at`

// PostgresStore persists contracts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed contract store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Contract) error {
	query := `
		INSERT INTO contracts (id, client_id, contract_type, status, terms, sent_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		c.ID, c.ClientID, string(c.Type), string(c.Status), []byte(c.Terms), nullTime(c.SentDate), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	c, err := scanContract(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, contractID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contract not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find contract: %w", err)
	}
	return c, nil
}

// Transition moves the contract to `to` only if its current status is one of
// `from`. The guard and the write are a single statement, so two concurrent
// transitions cannot both apply.
func (s *PostgresStore) Transition(ctx context.Context, contractID id.ContractID, to models.Status, from []models.Status, at time.Time, signer *models.Signer) (*models.Contract, error) {
	var signerName, signerPosition, signerCompany string
	if signer != nil {
		signerName, signerPosition, signerCompany = signer.Name, signer.Position, signer.Company
	}
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}

	query := `
		UPDATE contracts SET
			status = $2,
			updated_at = $3,
			sent_date = CASE WHEN $2 = 'sent' THEN $3 ELSE sent_date END,
			signed_date = CASE WHEN $2 = 'signed' THEN $3 ELSE signed_date END,
			expired_date = CASE WHEN $2 = 'expired' THEN $3 ELSE expired_date END,
			signer_name = CASE WHEN $2 = 'signed' THEN $5 ELSE signer_name END,
			signer_position = CASE WHEN $2 = 'signed' THEN $6 ELSE signer_position END,
			signer_company = CASE WHEN $2 = 'signed' THEN $7 ELSE signer_company END
		WHERE id = $1 AND status = ANY($4)
		RETURNING ` + contractColumns
	exec := txcontext.Exec(ctx, s.db)
	c, err := scanContract(exec.QueryRowContext(ctx, query,
		contractID, string(to), at, pq.Array(allowed), signerName, signerPosition, signerCompany,
	))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition contract: %w", err)
	}

	var current string
	err = exec.QueryRowContext(ctx, `SELECT status FROM contracts WHERE id = $1`, contractID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contract not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read contract status: %w", err)
	}
	return nil, fmt.Errorf("contract is %s, cannot move to %s: %w", current, to, sentinel.ErrInvalidState)
}

// FindSentBefore lists contracts still awaiting signature that were sent
// before cutoff, oldest first.
func (s *PostgresStore) FindSentBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts
		WHERE status = 'sent' AND sent_date < $1
		ORDER BY sent_date
		LIMIT $2`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("find stale contracts: %w", err)
	}
	defer rows.Close()

	var out []*models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale contract: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale contracts: %w", err)
	}
	return out, nil
}

type contractRow interface {
	Scan(dest ...any) error
}

func scanContract(row contractRow) (*models.Contract, error) {
	var (
		c                         models.Contract
		contractType, status      string
		terms                     []byte
		sentDate, signed, expired sql.NullTime
	)
	err := row.Scan(&c.ID, &c.ClientID, &contractType, &status, &c.SignerName, &c.SignerPosition, &c.SignerCompany,
		&terms, &sentDate, &signed, &expired, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Type = models.Type(contractType)
	c.Status = models.Status(status)
	c.Terms = terms
	c.SentDate = timePtr(sentDate)
	c.SignedDate = timePtr(signed)
	c.ExpiredDate = timePtr(expired)
	return &c, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
