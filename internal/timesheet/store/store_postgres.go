package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agencyops/internal/timesheet/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/sentinel"
	txcontext "agencyops/pkg/platform/tx"
)

const timesheetColumns = `t.id, t.client_id, t.week_starting, t.week_ending, t.status, t.approved_by, t.approved_at, t.created_at`

// PostgresStore persists timesheets and their entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the timesheet and its entries. Callers run it inside a
// transaction so a failed entry leaves no partial timesheet.
func (s *PostgresStore) Create(ctx context.Context, t *models.Timesheet, entries []models.Entry) error {
	exec := txcontext.Exec(ctx, s.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO timesheets (id, client_id, week_starting, week_ending, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.ClientID, t.WeekStarting, t.WeekEnding, string(t.Status), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create timesheet: %w", err)
	}

	for _, e := range entries {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO timesheet_entries (id, timesheet_id, worker_id, worker_name, work_date, hours, charge_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, e.ID, t.ID, e.WorkerID, e.WorkerName, e.WorkDate, e.Hours, e.ChargeRate)
		if err != nil {
			return fmt.Errorf("create timesheet entry: %w", err)
		}
	}
	return nil
}

// FindView loads the timesheet with its client's display name and the
// distinct workers who logged time on it. A missing client leaves the name
// empty.
func (s *PostgresStore) FindView(ctx context.Context, timesheetID id.TimesheetID) (*models.View, error) {
	exec := txcontext.Exec(ctx, s.db)
	query := `SELECT ` + timesheetColumns + `,
			COALESCE(NULLIF(TRIM(CONCAT_WS(' ', c.first_name, c.last_name)), ''), c.company_name, '')
		FROM timesheets t
		LEFT JOIN contacts c ON c.id = t.client_id
		WHERE t.id = $1`

	var (
		view       models.View
		status     string
		approvedAt sql.NullTime
	)
	err := exec.QueryRowContext(ctx, query, timesheetID).Scan(
		&view.ID, &view.ClientID, &view.WeekStarting, &view.WeekEnding, &status,
		&view.ApprovedBy, &approvedAt, &view.CreatedAt, &view.ClientName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("timesheet not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find timesheet: %w", err)
	}
	view.Status = models.Status(status)
	if approvedAt.Valid {
		view.ApprovedAt = &approvedAt.Time
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT DISTINCT worker_id, worker_name
		FROM timesheet_entries
		WHERE timesheet_id = $1
		ORDER BY worker_name, worker_id
	`, timesheetID)
	if err != nil {
		return nil, fmt.Errorf("find timesheet workers: %w", err)
	}
	defer rows.Close()

	view.Workers = []models.Worker{}
	for rows.Next() {
		var w models.Worker
		if err := rows.Scan(&w.ID, &w.Name); err != nil {
			return nil, fmt.Errorf("scan timesheet worker: %w", err)
		}
		view.Workers = append(view.Workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timesheet workers: %w", err)
	}
	return &view, nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, timesheetID id.TimesheetID) ([]models.Entry, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, timesheet_id, worker_id, worker_name, work_date, hours, charge_rate
		FROM timesheet_entries
		WHERE timesheet_id = $1
		ORDER BY work_date, worker_name, id
	`, timesheetID)
	if err != nil {
		return nil, fmt.Errorf("list timesheet entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.TimesheetID, &e.WorkerID, &e.WorkerName, &e.WorkDate, &e.Hours, &e.ChargeRate); err != nil {
			return nil, fmt.Errorf("scan timesheet entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timesheet entries: %w", err)
	}
	return out, nil
}

// Approve moves a submitted timesheet to approved in one conditional update.
func (s *PostgresStore) Approve(ctx context.Context, timesheetID id.TimesheetID, approver string, at time.Time) (*models.Timesheet, error) {
	exec := txcontext.Exec(ctx, s.db)
	query := `
		UPDATE timesheets t SET status = 'approved', approved_by = $2, approved_at = $3
		WHERE t.id = $1 AND t.status = 'submitted'
		RETURNING ` + timesheetColumns

	var (
		ts         models.Timesheet
		status     string
		approvedAt sql.NullTime
	)
	err := exec.QueryRowContext(ctx, query, timesheetID, approver, at).Scan(
		&ts.ID, &ts.ClientID, &ts.WeekStarting, &ts.WeekEnding, &status, &ts.ApprovedBy, &approvedAt, &ts.CreatedAt,
	)
	if err == nil {
		ts.Status = models.Status(status)
		if approvedAt.Valid {
			ts.ApprovedAt = &approvedAt.Time
		}
		return &ts, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("approve timesheet: %w", err)
	}

	var current string
	err = exec.QueryRowContext(ctx, `SELECT status FROM timesheets WHERE id = $1`, timesheetID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("timesheet not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read timesheet status: %w", err)
	}
	return nil, fmt.Errorf("timesheet is %s: %w", current, sentinel.ErrInvalidState)
}
