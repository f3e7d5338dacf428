package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	contactModels "agencyops/internal/contact/models"
	"agencyops/internal/verification/models"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/platform/sentinel"
	"agencyops/pkg/requestcontext"
)

const (
	defaultTTL     = 10 * time.Minute
	defaultPurpose = "portal_access"
	codeDigits     = 6
)

type CodeStore interface {
	Create(ctx context.Context, c *models.Code) error
	Claim(ctx context.Context, email, code, purpose string) (*models.Code, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type ContactStore interface {
	FindByID(ctx context.Context, contactID id.ContactID) (*contactModels.Contact, error)
	FindLatestCandidateByEmail(ctx context.Context, email string) (*contactModels.Contact, error)
}

// Notifier delivers an issued code to its owner.
type Notifier interface {
	SendCode(ctx context.Context, email, code, purpose string, expiresAt time.Time) error
}

// Cooldown throttles repeated code requests for the same key. Release gives
// the key back when a request fails after acquiring it.
type Cooldown interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Service issues and validates one-time verification codes.
type Service struct {
	codes          CodeStore
	contacts       ContactStore
	notifier       Notifier
	cooldown       Cooldown
	logger         *slog.Logger
	ttl            time.Duration
	defaultPurpose string
	generate       func() (string, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithCooldown enables resend throttling. A nil cooldown disables it.
func WithCooldown(c Cooldown) Option {
	return func(s *Service) {
		s.cooldown = c
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithDefaultPurpose(purpose string) Option {
	return func(s *Service) {
		if p := strings.TrimSpace(purpose); p != "" {
			s.defaultPurpose = p
		}
	}
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		s.generate = gen
	}
}

func New(codes CodeStore, contacts ContactStore, opts ...Option) (*Service, error) {
	if codes == nil {
		return nil, errors.New("code store is required")
	}
	if contacts == nil {
		return nil, errors.New("contact store is required")
	}
	s := &Service{
		codes:          codes,
		contacts:       contacts,
		logger:         slog.Default(),
		ttl:            defaultTTL,
		defaultPurpose: defaultPurpose,
		generate:       randomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue persists a new code for (email, purpose) valid for ttl. Outstanding
// codes for the same scope are left untouched.
func (s *Service) Issue(ctx context.Context, email, purpose string, candidateID id.ContactID, ttl time.Duration) (string, error) {
	email = contactModels.NormalizeEmail(email)
	if email == "" {
		return "", dErrors.New(dErrors.CodeValidation, "email is required")
	}
	record, err := s.issue(ctx, email, s.purpose(purpose), candidateID, ttl)
	if err != nil {
		return "", err
	}
	return record.Code, nil
}

func (s *Service) issue(ctx context.Context, email, purpose string, candidateID id.ContactID, ttl time.Duration) (*models.Code, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}

	code, err := s.generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	now := requestcontext.Now(ctx)
	record := &models.Code{
		ID:          id.CodeID(uuid.New()),
		Email:       email,
		Code:        code,
		Purpose:     purpose,
		CandidateID: candidateID,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification code")
	}
	codesIssued.WithLabelValues(purpose).Inc()
	return record, nil
}

// Validate consumes the code and returns the owning candidate. The claim is
// destructive whatever the outcome: an expired code is gone after the first
// attempt, and a code whose contact has vanished stays consumed.
func (s *Service) Validate(ctx context.Context, email, code, purpose string) (*models.CandidateView, error) {
	email = contactModels.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	purpose = s.purpose(purpose)
	if email == "" || code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and code are required")
	}

	record, err := s.codes.Claim(ctx, email, code, purpose)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			validations.WithLabelValues(outcomeInvalid).Inc()
			return nil, dErrors.New(dErrors.CodeInvalidCode, "invalid verification code")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate code")
	}

	if record.IsExpired(requestcontext.Now(ctx)) {
		validations.WithLabelValues(outcomeExpired).Inc()
		return nil, dErrors.New(dErrors.CodeExpired, "verification code has expired")
	}

	contact, err := s.contacts.FindByID(ctx, record.CandidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			validations.WithLabelValues(outcomeOrphaned).Inc()
			s.logger.WarnContext(ctx, "verification code references missing contact",
				"request_id", requestcontext.RequestID(ctx),
				"candidate_id", record.CandidateID.String(),
			)
			return nil, dErrors.New(dErrors.CodeNotFound, "candidate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
	}

	validations.WithLabelValues(outcomeVerified).Inc()
	return &models.CandidateView{
		ID:    contact.ID,
		Name:  contact.FullName(),
		Email: contact.Email,
		Phone: contact.Phone,
	}, nil
}

// RequestCode issues a code for the newest candidate holding email and hands
// it to the notifier.
func (s *Service) RequestCode(ctx context.Context, email, purpose string) error {
	email = contactModels.NormalizeEmail(email)
	purpose = s.purpose(purpose)
	if email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}

	candidate, err := s.contacts.FindLatestCandidateByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "candidate not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up candidate")
	}

	key := purpose + ":" + email
	held, err := s.acquire(ctx, key)
	if err != nil {
		return err
	}
	if err := s.deliver(ctx, email, purpose, candidate.ID); err != nil {
		if held {
			s.release(ctx, key)
		}
		return err
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, email, purpose string, candidateID id.ContactID) error {
	record, err := s.issue(ctx, email, purpose, candidateID, s.ttl)
	if err != nil {
		return err
	}
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.SendCode(ctx, email, record.Code, purpose, record.ExpiresAt); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUpstream, "failed to deliver verification code")
	}
	return nil
}

// acquire reports whether the cooldown key is now held by this request. An
// unavailable cooldown lets the request through without holding the key.
func (s *Service) acquire(ctx context.Context, key string) (bool, error) {
	if s.cooldown == nil {
		return false, nil
	}
	ok, err := s.cooldown.Acquire(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "cooldown unavailable, allowing request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		return false, nil
	}
	if !ok {
		return false, dErrors.New(dErrors.CodeRateLimited, "a code was sent recently, please wait before requesting another")
	}
	return true, nil
}

func (s *Service) release(ctx context.Context, key string) {
	if err := s.cooldown.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logger.WarnContext(ctx, "failed to release cooldown",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
}

// PurgeExpired deletes codes that lapsed at or before now.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := s.codes.DeleteExpired(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge expired codes")
	}
	codesPurged.Add(float64(n))
	return n, nil
}

func (s *Service) purpose(p string) string {
	if p = strings.TrimSpace(p); p != "" {
		return p
	}
	return s.defaultPurpose
}

func randomCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
