package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	contactModels "agencyops/internal/contact/models"
	historyModels "agencyops/internal/history/models"
	"agencyops/internal/rtw/models"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/platform/sentinel"
	"agencyops/pkg/platform/tx"
	"agencyops/pkg/requestcontext"
)

var checksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "agencyops_rtw_checks_created_total",
	Help: "Right-to-work checks opened, by method",
}, []string{"method"})

// Home Office share codes are nine characters, usually shown in groups of three.
var shareCodePattern = regexp.MustCompile(`^[A-Z0-9]{9}$`)

type CheckStore interface {
	Create(ctx context.Context, c *models.Check) error
	FindByID(ctx context.Context, checkID id.RtwCheckID) (*models.Check, error)
	RecordOutcome(ctx context.Context, checkID id.RtwCheckID, to models.Status, statutoryExcuse bool, notes string, at time.Time) (*models.Check, error)
}

type ContactStore interface {
	FindByID(ctx context.Context, contactID id.ContactID) (*contactModels.Contact, error)
	UpdateRtw(ctx context.Context, contactID id.ContactID, u contactModels.RtwUpdate) error
	SetRtwStatus(ctx context.Context, contactID id.ContactID, checkID id.RtwCheckID, status string, at time.Time) error
}

type History interface {
	Record(ctx context.Context, clientID id.ContactID, eventType, action, description string, metadata map[string]any)
}

// Service opens right-to-work checks and records their outcomes.
type Service struct {
	checks   CheckStore
	contacts ContactStore
	tx       tx.Runner
	history  History
	logger   *slog.Logger
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

func New(checks CheckStore, contacts ContactStore, runner tx.Runner, opts ...Option) (*Service, error) {
	if checks == nil {
		return nil, errors.New("rtw check store is required")
	}
	if contacts == nil {
		return nil, errors.New("contact store is required")
	}
	if runner == nil {
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{checks: checks, contacts: contacts, tx: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create opens a check and denormalizes its status onto the candidate in one
// transaction. A missing candidate aborts before anything is written.
func (s *Service) Create(ctx context.Context, req *models.CreateCheckRequest) (*models.Created, error) {
	candidateID, err := id.ParseContactID(req.CandidateID)
	if err != nil {
		return nil, err
	}
	method := models.Method(strings.TrimSpace(req.Method))
	if !method.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "rightToWorkMethod must be one of share_code, video_call, yoti_digital")
	}
	nationality := strings.TrimSpace(req.NationalityCategory)
	if nationality == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "nationalityCategory is required")
	}
	shareCode := normalizeShareCode(req.ShareCode)
	if method == models.MethodShareCode && shareCode == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "shareCode is required for the share_code method")
	}
	if shareCode != "" && !shareCodePattern.MatchString(shareCode) {
		return nil, dErrors.New(dErrors.CodeValidation, "shareCode must be 9 letters or digits")
	}

	now := requestcontext.Now(ctx)
	dob, err := parseDateOfBirth(req.DateOfBirth, now)
	if err != nil {
		return nil, err
	}

	check := &models.Check{
		ID:                  id.RtwCheckID(uuid.New()),
		ContactID:           candidateID,
		Method:              method,
		NationalityCategory: nationality,
		Status:              method.InitialStatus(),
		ShareCode:           shareCode,
		DateOfBirth:         dob,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		contact, err := s.contacts.FindByID(ctx, candidateID)
		if err != nil {
			return err
		}
		if contact.Kind != contactModels.KindCandidate {
			return dErrors.New(dErrors.CodeValidation, "right to work checks are opened for candidates only")
		}
		if err := s.contacts.UpdateRtw(ctx, candidateID, contactModels.RtwUpdate{
			Status:              string(check.Status),
			CheckID:             check.ID,
			NationalityCategory: nationality,
			CheckedAt:           now,
		}); err != nil {
			return err
		}
		return s.checks.Create(ctx, check)
	})
	if err != nil {
		return nil, translate(err, "candidate not found", "failed to create rtw check")
	}

	checksCreated.WithLabelValues(string(method)).Inc()
	s.record(ctx, check, historyModels.ActionCreated)
	return &models.Created{Check: check, NextSteps: method.NextSteps()}, nil
}

// RecordOutcome closes a check as verified or failed. Only a check still in
// its initial status accepts an outcome.
func (s *Service) RecordOutcome(ctx context.Context, checkID id.RtwCheckID, verified bool, notes string) (*models.Check, error) {
	to := models.StatusFailed
	if verified {
		to = models.StatusVerified
	}
	now := requestcontext.Now(ctx)

	var updated *models.Check
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.checks.RecordOutcome(ctx, checkID, to, verified, strings.TrimSpace(notes), now)
		if err != nil {
			return err
		}
		if err := s.contacts.SetRtwStatus(ctx, c.ContactID, c.ID, string(to), now); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "rtw check already has an outcome")
		}
		return nil, translate(err, "rtw check not found", "failed to record rtw outcome")
	}

	action := historyModels.ActionFailed
	if verified {
		action = historyModels.ActionVerified
	}
	s.record(ctx, updated, action)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, checkID id.RtwCheckID) (*models.Check, error) {
	c, err := s.checks.FindByID(ctx, checkID)
	if err != nil {
		return nil, translate(err, "rtw check not found", "failed to load rtw check")
	}
	return c, nil
}

func (s *Service) record(ctx context.Context, c *models.Check, action string) {
	if s.history == nil {
		return
	}
	s.history.Record(ctx, c.ContactID, historyModels.TypeRtw, action,
		"right to work check "+action+" ("+string(c.Method)+")",
		map[string]any{"rtwCheckId": c.ID.String(), "status": string(c.Status)})
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

func normalizeShareCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer(" ", "", "-", "").Replace(code)
}

func parseDateOfBirth(raw string, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	dob, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "dateOfBirth must use the format YYYY-MM-DD")
	}
	if !dob.Before(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "dateOfBirth must be in the past")
	}
	return &dob, nil
}
