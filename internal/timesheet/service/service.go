package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	contactModels "agencyops/internal/contact/models"
	historyModels "agencyops/internal/history/models"
	"agencyops/internal/timesheet/models"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/platform/sentinel"
	"agencyops/pkg/platform/tx"
	"agencyops/pkg/requestcontext"
)

var (
	timesheetsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agencyops_timesheets_submitted_total",
		Help: "Timesheets created",
	})
	timesheetsApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agencyops_timesheets_approved_total",
		Help: "Timesheets approved by their client",
	})
)

var maxDailyHours = decimal.NewFromInt(24)

type Store interface {
	Create(ctx context.Context, t *models.Timesheet, entries []models.Entry) error
	FindView(ctx context.Context, timesheetID id.TimesheetID) (*models.View, error)
	ListEntries(ctx context.Context, timesheetID id.TimesheetID) ([]models.Entry, error)
	Approve(ctx context.Context, timesheetID id.TimesheetID, approver string, at time.Time) (*models.Timesheet, error)
}

type ContactStore interface {
	FindByID(ctx context.Context, contactID id.ContactID) (*contactModels.Contact, error)
}

type History interface {
	Record(ctx context.Context, clientID id.ContactID, eventType, action, description string, metadata map[string]any)
}

// Service collects weekly time entries and computes totals on read.
type Service struct {
	timesheets Store
	contacts   ContactStore
	tx         tx.Runner
	history    History
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithHistory(h History) Option {
	return func(s *Service) {
		s.history = h
	}
}

func New(timesheets Store, contacts ContactStore, runner tx.Runner, opts ...Option) (*Service, error) {
	if timesheets == nil {
		return nil, errors.New("timesheet store is required")
	}
	if contacts == nil {
		return nil, errors.New("contact store is required")
	}
	if runner == nil {
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{timesheets: timesheets, contacts: contacts, tx: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create records a submitted timesheet and its entries for a client. The week
// ends six days after it starts unless weekEnding says otherwise, and every
// entry must fall inside it.
func (s *Service) Create(ctx context.Context, req *models.CreateTimesheetRequest) (*models.Created, error) {
	clientID, err := id.ParseContactID(req.ClientID)
	if err != nil {
		return nil, err
	}
	start, err := parseDate(req.WeekStarting, "weekStarting")
	if err != nil {
		return nil, err
	}
	end := start.AddDate(0, 0, 6)
	if strings.TrimSpace(req.WeekEnding) != "" {
		if end, err = parseDate(req.WeekEnding, "weekEnding"); err != nil {
			return nil, err
		}
	}
	if end.Before(start) {
		return nil, dErrors.New(dErrors.CodeValidation, "weekEnding must not be before weekStarting")
	}
	if len(req.Entries) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "entries is required")
	}

	now := requestcontext.Now(ctx)
	ts := &models.Timesheet{
		ID:           id.TimesheetID(uuid.New()),
		ClientID:     clientID,
		WeekStarting: start,
		WeekEnding:   end,
		Status:       models.StatusSubmitted,
		CreatedAt:    now,
	}
	entries := make([]models.Entry, 0, len(req.Entries))
	for _, er := range req.Entries {
		e, err := buildEntry(ts, er)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		client, err := s.contacts.FindByID(ctx, clientID)
		if err != nil {
			return err
		}
		if client.Kind == contactModels.KindCandidate {
			return dErrors.New(dErrors.CodeValidation, "timesheets are billed to clients, not candidates")
		}
		return s.timesheets.Create(ctx, ts, entries)
	})
	if err != nil {
		return nil, translate(err, "client not found", "failed to create timesheet")
	}

	timesheetsSubmitted.Inc()
	s.record(ctx, ts, historyModels.ActionCreated, "timesheet submitted for week starting "+start.Format(models.DateLayout))
	return &models.Created{Timesheet: ts, Token: models.EncodeToken(ts.ID)}, nil
}

// ResolveByToken returns the timesheet the token names. Holding the token is
// enough to read it.
func (s *Service) ResolveByToken(ctx context.Context, token string) (*models.View, error) {
	timesheetID, err := models.DecodeToken(token)
	if err != nil {
		return nil, err
	}
	view, err := s.timesheets.FindView(ctx, timesheetID)
	if err != nil {
		return nil, translate(err, "timesheet not found", "failed to load timesheet")
	}
	return view, nil
}

// Summary returns the view with every entry and totals recomputed from them.
func (s *Service) Summary(ctx context.Context, token string) (*models.Summary, error) {
	view, err := s.ResolveByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	entries, err := s.timesheets.ListEntries(ctx, view.ID)
	if err != nil {
		return nil, translate(err, "timesheet not found", "failed to load timesheet entries")
	}
	summary := models.Summarize(*view, entries)
	return &summary, nil
}

func (s *Service) Approve(ctx context.Context, token, approver string) (*models.Timesheet, error) {
	timesheetID, err := models.DecodeToken(token)
	if err != nil {
		return nil, err
	}
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "approverName is required")
	}

	ts, err := s.timesheets.Approve(ctx, timesheetID, approver, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "timesheet already approved")
		}
		return nil, translate(err, "timesheet not found", "failed to approve timesheet")
	}

	timesheetsApproved.Inc()
	s.record(ctx, ts, historyModels.ActionApproved, "timesheet approved by "+approver)
	return ts, nil
}

func (s *Service) record(ctx context.Context, ts *models.Timesheet, action, description string) {
	if s.history == nil {
		return
	}
	s.history.Record(ctx, ts.ClientID, historyModels.TypeTimesheet, action, description,
		map[string]any{"timesheetId": ts.ID.String(), "status": string(ts.Status)})
}

func buildEntry(ts *models.Timesheet, er models.EntryRequest) (models.Entry, error) {
	workerID, err := id.ParseContactID(er.WorkerID)
	if err != nil {
		return models.Entry{}, err
	}
	name := strings.TrimSpace(er.WorkerName)
	if name == "" {
		return models.Entry{}, dErrors.New(dErrors.CodeValidation, "workerName is required")
	}
	day, err := parseDate(er.WorkDate, "workDate")
	if err != nil {
		return models.Entry{}, err
	}
	if day.Before(ts.WeekStarting) || day.After(ts.WeekEnding) {
		return models.Entry{}, dErrors.New(dErrors.CodeValidation, "workDate "+er.WorkDate+" is outside the timesheet week")
	}
	if !er.Hours.IsPositive() || er.Hours.GreaterThan(maxDailyHours) {
		return models.Entry{}, dErrors.New(dErrors.CodeValidation, "hours must be greater than 0 and at most 24")
	}
	if er.ChargeRate.IsNegative() {
		return models.Entry{}, dErrors.New(dErrors.CodeValidation, "chargeRate must not be negative")
	}
	return models.Entry{
		ID:          uuid.New(),
		TimesheetID: ts.ID,
		WorkerID:    workerID,
		WorkerName:  name,
		WorkDate:    day,
		Hours:       er.Hours.Round(2),
		ChargeRate:  er.ChargeRate.Round(2),
	}, nil
}

func parseDate(raw, field string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" must use the format YYYY-MM-DD")
	}
	return t, nil
}

func translate(err error, notFoundMsg, internalMsg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}
