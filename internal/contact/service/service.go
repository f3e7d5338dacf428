package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"agencyops/internal/contact/models"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/platform/sentinel"
	"agencyops/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, c *models.Contact) error
	FindByID(ctx context.Context, contactID id.ContactID) (*models.Contact, error)
}

// Service registers and looks up contacts.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("contact store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Create(ctx context.Context, req *models.CreateContactRequest) (*models.Contact, error) {
	now := requestcontext.Now(ctx)
	c, err := models.NewContact(id.ContactID(uuid.New()), models.Kind(req.Kind),
		req.FirstName, req.LastName, req.CompanyName, req.Email, req.Phone, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "contact already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create contact")
	}
	s.logger.InfoContext(ctx, "contact created",
		"contact_id", c.ID.String(),
		"kind", string(c.Kind),
	)
	return c, nil
}

func (s *Service) Get(ctx context.Context, contactID id.ContactID) (*models.Contact, error) {
	c, err := s.store.FindByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contact not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contact")
	}
	return c, nil
}
