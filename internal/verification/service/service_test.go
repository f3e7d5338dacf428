package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	contactModels "agencyops/internal/contact/models"
	contactStore "agencyops/internal/contact/store"
	"agencyops/internal/verification/store"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/testutil"
)

type fakeNotifier struct {
	sent      []string
	expiresAt time.Time
	err       error
}

func (n *fakeNotifier) SendCode(_ context.Context, email, code, _ string, expiresAt time.Time) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, email+":"+code)
	n.expiresAt = expiresAt
	return nil
}

type fakeCooldown struct {
	held map[string]bool
	err  error
}

func (c *fakeCooldown) Acquire(_ context.Context, key string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if c.held[key] {
		return false, nil
	}
	c.held[key] = true
	return true, nil
}

func (c *fakeCooldown) Release(_ context.Context, key string) error {
	delete(c.held, key)
	return nil
}

type VerificationServiceSuite struct {
	suite.Suite
	codes    *store.InMemoryStore
	contacts *contactStore.InMemoryStore
	notifier *fakeNotifier
	service  *Service
	now      time.Time
	alice    *contactModels.Contact
}

func TestVerificationServiceSuite(t *testing.T) {
	suite.Run(t, new(VerificationServiceSuite))
}

func (s *VerificationServiceSuite) SetupTest() {
	s.codes = store.NewInMemory()
	s.contacts = contactStore.NewInMemory()
	s.notifier = &fakeNotifier{}
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	alice, err := contactModels.NewContact(id.ContactID(uuid.New()), contactModels.KindCandidate,
		"Alice", "Smith", "", "alice@example.com", "07700900000", s.now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.contacts.Create(context.Background(), alice))
	s.alice = alice

	svc, err := New(s.codes, s.contacts,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithNotifier(s.notifier),
		WithCodeGenerator(func() (string, error) { return "482913", nil }),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *VerificationServiceSuite) ctxAt(t time.Time) context.Context {
	return testutil.ContextAt(t)
}

func (s *VerificationServiceSuite) TestNew() {
	s.Run("nil code store returns error", func() {
		_, err := New(nil, s.contacts)
		s.ErrorContains(err, "code store is required")
	})
	s.Run("nil contact store returns error", func() {
		_, err := New(s.codes, nil)
		s.ErrorContains(err, "contact store is required")
	})
}

func (s *VerificationServiceSuite) TestValidateSucceedsExactlyOnce() {
	ctx := s.ctxAt(s.now)
	code, err := s.service.Issue(ctx, "Alice@Example.com", "holiday_request", s.alice.ID, 10*time.Minute)
	s.Require().NoError(err)
	s.Equal("482913", code)

	view, err := s.service.Validate(s.ctxAt(s.now.Add(time.Second)), "alice@example.com", "482913", "holiday_request")
	s.Require().NoError(err)
	s.Equal(s.alice.ID, view.ID)
	s.Equal("Alice Smith", view.Name)
	s.Equal("alice@example.com", view.Email)
	s.Equal("07700900000", view.Phone)

	_, err = s.service.Validate(s.ctxAt(s.now.Add(2*time.Second)), "alice@example.com", "482913", "holiday_request")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCode))
}

func (s *VerificationServiceSuite) TestExpiredThenInvalid() {
	_, err := s.service.Issue(s.ctxAt(s.now), "alice@example.com", "holiday_request", s.alice.ID, 10*time.Minute)
	s.Require().NoError(err)

	atExpiry := s.ctxAt(s.now.Add(10 * time.Minute))
	_, err = s.service.Validate(atExpiry, "alice@example.com", "482913", "holiday_request")
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	s.Equal(0, s.codes.Len(), "expired code must be removed on detection")

	_, err = s.service.Validate(atExpiry, "alice@example.com", "482913", "holiday_request")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCode))
}

func (s *VerificationServiceSuite) TestValidateWrongPurposeIsInvalid() {
	_, err := s.service.Issue(s.ctxAt(s.now), "alice@example.com", "holiday_request", s.alice.ID, time.Minute)
	s.Require().NoError(err)

	_, err = s.service.Validate(s.ctxAt(s.now), "alice@example.com", "482913", "portal_access")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCode))
	s.Equal(1, s.codes.Len())
}

func (s *VerificationServiceSuite) TestValidateMissingContactConsumesCode() {
	orphan := id.ContactID(uuid.New())
	_, err := s.service.Issue(s.ctxAt(s.now), "ghost@example.com", "", orphan, time.Minute)
	s.Require().NoError(err)

	_, err = s.service.Validate(s.ctxAt(s.now), "ghost@example.com", "482913", "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Validate(s.ctxAt(s.now), "ghost@example.com", "482913", "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCode))
}

func (s *VerificationServiceSuite) TestValidateRequiresFields() {
	_, err := s.service.Validate(s.ctxAt(s.now), " ", "123456", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.Validate(s.ctxAt(s.now), "alice@example.com", "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *VerificationServiceSuite) TestDuplicateCodesMayCoexist() {
	for range 2 {
		_, err := s.service.Issue(s.ctxAt(s.now), "alice@example.com", "holiday_request", s.alice.ID, time.Minute)
		s.Require().NoError(err)
	}
	s.Equal(2, s.codes.Len())

	_, err := s.service.Validate(s.ctxAt(s.now), "alice@example.com", "482913", "holiday_request")
	s.NoError(err)
	_, err = s.service.Validate(s.ctxAt(s.now), "alice@example.com", "482913", "holiday_request")
	s.NoError(err)
	_, err = s.service.Validate(s.ctxAt(s.now), "alice@example.com", "482913", "holiday_request")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCode))
}

func (s *VerificationServiceSuite) TestRequestCode() {
	s.Run("issues and notifies for a known candidate", func() {
		s.Require().NoError(s.service.RequestCode(s.ctxAt(s.now), "ALICE@example.com", ""))
		s.Equal([]string{"alice@example.com:482913"}, s.notifier.sent)
		s.Equal(s.now.Add(defaultTTL), s.notifier.expiresAt)

		_, err := s.service.Validate(s.ctxAt(s.now), "alice@example.com", "482913", "portal_access")
		s.NoError(err, "empty purpose falls back to the default purpose")
	})

	s.Run("unknown email is not found", func() {
		err := s.service.RequestCode(s.ctxAt(s.now), "nobody@example.com", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("notifier failure is an upstream error", func() {
		s.notifier.err = errors.New("smtp down")
		defer func() { s.notifier.err = nil }()
		err := s.service.RequestCode(s.ctxAt(s.now), "alice@example.com", "")
		s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
	})
}

func (s *VerificationServiceSuite) TestRequestCodeCooldown() {
	cd := &fakeCooldown{held: map[string]bool{}}
	WithCooldown(cd)(s.service)

	s.Require().NoError(s.service.RequestCode(s.ctxAt(s.now), "alice@example.com", "holiday_request"))
	err := s.service.RequestCode(s.ctxAt(s.now), "alice@example.com", "holiday_request")
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	s.Run("cooldown outage fails open", func() {
		cd.err = errors.New("redis down")
		defer func() { cd.err = nil }()
		s.NoError(s.service.RequestCode(s.ctxAt(s.now), "alice@example.com", "holiday_request"))
	})

	s.Run("unknown email does not start a cooldown", func() {
		err := s.service.RequestCode(s.ctxAt(s.now), "nobody@example.com", "holiday_request")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.NotContains(cd.held, "holiday_request:nobody@example.com")
	})

	s.Run("failed delivery releases the cooldown", func() {
		s.notifier.err = errors.New("smtp down")
		err := s.service.RequestCode(s.ctxAt(s.now), "alice@example.com", "portal_access")
		s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
		s.NotContains(cd.held, "portal_access:alice@example.com")

		s.notifier.err = nil
		s.NoError(s.service.RequestCode(s.ctxAt(s.now), "alice@example.com", "portal_access"))
	})
}

func (s *VerificationServiceSuite) TestPurgeExpired() {
	_, err := s.service.Issue(s.ctxAt(s.now.Add(-time.Hour)), "alice@example.com", "", s.alice.ID, time.Minute)
	s.Require().NoError(err)
	_, err = s.service.Issue(s.ctxAt(s.now), "alice@example.com", "", s.alice.ID, time.Minute)
	s.Require().NoError(err)

	n, err := s.service.PurgeExpired(context.Background(), s.now)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(1, s.codes.Len())
}

func TestRandomCodeIsSixDigits(t *testing.T) {
	for range 50 {
		code, err := randomCode()
		if err != nil {
			t.Fatalf("randomCode: %v", err)
		}
		if len(code) != codeDigits {
			t.Fatalf("expected %d digits, got %q", codeDigits, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}
