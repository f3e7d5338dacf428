package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	contactModels "agencyops/internal/contact/models"
	contactStore "agencyops/internal/contact/store"
	"agencyops/internal/contract/models"
	"agencyops/internal/contract/store"
	"agencyops/internal/history"
	historyModels "agencyops/internal/history/models"
	historyStore "agencyops/internal/history/store"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/platform/tx"
	"agencyops/pkg/testutil"
)

type brokenHistoryStore struct{}

func (brokenHistoryStore) Append(context.Context, *historyModels.Event) error {
	return errors.New("history table unavailable")
}

type ContractServiceSuite struct {
	suite.Suite
	contracts *store.InMemoryStore
	contacts  *contactStore.InMemoryStore
	events    *historyStore.InMemoryStore
	service   *Service
	client    *contactModels.Contact
	now       time.Time
}

func TestContractServiceSuite(t *testing.T) {
	suite.Run(t, new(ContractServiceSuite))
}

func (s *ContractServiceSuite) SetupTest() {
	s.contracts = store.NewInMemory()
	s.contacts = contactStore.NewInMemory()
	s.events = historyStore.NewInMemory()
	s.now = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

	client, err := contactModels.NewContact(id.ContactID(uuid.New()), contactModels.KindClient,
		"Carol", "Jones", "C1 Ltd", "carol@c1.example", "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.contacts.Create(context.Background(), client))
	s.client = client

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(s.contracts, s.contacts, tx.NewLockRunner(time.Second),
		WithLogger(logger),
		WithHistory(history.NewRecorder(s.events, history.WithLogger(logger))),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ContractServiceSuite) ctx() context.Context {
	return testutil.ContextAt(s.now)
}

func (s *ContractServiceSuite) create(status string) *models.Created {
	created, err := s.service.Create(s.ctx(), &models.CreateContractRequest{
		ClientID:     s.client.ID.String(),
		ContractType: "temp",
		Terms:        json.RawMessage(`{"standardRate": 15.5, "marginPercentage": 25}`),
		Status:       status,
	})
	s.Require().NoError(err)
	return created
}

func (s *ContractServiceSuite) TestNew() {
	_, err := New(nil, s.contacts, tx.NewLockRunner(0))
	s.ErrorContains(err, "contract store is required")
	_, err = New(s.contracts, nil, tx.NewLockRunner(0))
	s.ErrorContains(err, "contact store is required")
	_, err = New(s.contracts, s.contacts, nil)
	s.ErrorContains(err, "transaction runner is required")
}

func (s *ContractServiceSuite) TestCreateThenFetchByToken() {
	created := s.create("")
	s.NotEmpty(created.Token)

	view, err := s.service.FetchByToken(s.ctx(), created.Token)
	s.Require().NoError(err)
	s.Equal(created.Contract.ID, view.ID)
	s.Equal(models.StatusDraft, view.Status)
	s.Equal(models.TypeTemp, view.ContractType)
	s.Equal("Carol Jones", view.ProspectName)
	s.Equal("carol@c1.example", view.ProspectEmail)
	s.Nil(view.SentDate)

	var terms map[string]float64
	s.Require().NoError(json.Unmarshal(view.ContractData, &terms))
	s.Equal(map[string]float64{"standardRate": 15.5, "marginPercentage": 25}, terms)

	contact, err := s.contacts.FindByID(context.Background(), s.client.ID)
	s.Require().NoError(err)
	s.Equal(created.Contract.ID, contact.ContractID)
	s.Equal("draft", contact.ContractStatus)
	s.Equal(created.Token, contact.ContractToken)

	events := s.events.ListByClient(s.client.ID)
	s.Require().Len(events, 1)
	s.Equal(historyModels.ActionCreated, events[0].Action)
}

func (s *ContractServiceSuite) TestCreateAsSentStampsSentDate() {
	created := s.create("sent")
	s.Equal(models.StatusSent, created.Contract.Status)
	s.Require().NotNil(created.Contract.SentDate)
	s.True(s.now.Equal(*created.Contract.SentDate))
}

func (s *ContractServiceSuite) TestCreateValidation() {
	cases := []struct {
		name string
		req  models.CreateContractRequest
		code dErrors.Code
	}{
		{"bad client id", models.CreateContractRequest{ClientID: "nope", ContractType: "temp"}, dErrors.CodeInvalidInput},
		{"bad type", models.CreateContractRequest{ClientID: s.client.ID.String(), ContractType: "gig"}, dErrors.CodeValidation},
		{"signed is not an initial status", models.CreateContractRequest{ClientID: s.client.ID.String(), ContractType: "perm", Status: "signed"}, dErrors.CodeValidation},
		{"terms must be an object", models.CreateContractRequest{ClientID: s.client.ID.String(), ContractType: "perm", Terms: json.RawMessage(`[1,2]`)}, dErrors.CodeValidation},
		{"unknown client", models.CreateContractRequest{ClientID: uuid.NewString(), ContractType: "perm"}, dErrors.CodeNotFound},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Create(s.ctx(), &tc.req)
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (s *ContractServiceSuite) TestCreateRejectsCandidate() {
	candidate, err := contactModels.NewContact(id.ContactID(uuid.New()), contactModels.KindCandidate, "Dan", "", "", "", "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.contacts.Create(context.Background(), candidate))

	_, err = s.service.Create(s.ctx(), &models.CreateContractRequest{ClientID: candidate.ID.String(), ContractType: "temp"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ContractServiceSuite) TestFetchByTokenNotFound() {
	_, err := s.service.FetchByToken(s.ctx(), "unknown-token")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.FetchByToken(s.ctx(), "  ")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ContractServiceSuite) TestLifecycleNeverMovesBackward() {
	created := s.create("")
	contractID := created.Contract.ID

	_, err := s.service.Expire(s.ctx(), contractID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "draft cannot expire")

	sent, err := s.service.Send(s.ctx(), contractID)
	s.Require().NoError(err)
	s.Equal(models.StatusSent, sent.Status)

	_, err = s.service.Send(s.ctx(), contractID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "sent cannot be re-sent")

	signed, err := s.service.Sign(s.ctx(), created.Token, models.Signer{Name: "Carol Jones", Position: "Director", Company: "C1 Ltd"})
	s.Require().NoError(err)
	s.Equal(models.StatusSigned, signed.Status)
	s.Equal("Director", signed.SignerPosition)

	for name, op := range map[string]func() error{
		"send":   func() error { _, err := s.service.Send(s.ctx(), contractID); return err },
		"expire": func() error { _, err := s.service.Expire(s.ctx(), contractID); return err },
		"sign": func() error {
			_, err := s.service.Sign(s.ctx(), created.Token, models.Signer{Name: "X"})
			return err
		},
	} {
		s.True(dErrors.HasCode(op(), dErrors.CodeInvalidState), "%s after signed", name)
	}

	view, err := s.service.FetchByToken(s.ctx(), created.Token)
	s.Require().NoError(err)
	s.Equal(models.StatusSigned, view.Status)

	contact, err := s.contacts.FindByID(context.Background(), s.client.ID)
	s.Require().NoError(err)
	s.Equal("signed", contact.ContractStatus)
}

func (s *ContractServiceSuite) TestSignValidation() {
	_, err := s.service.Sign(s.ctx(), "", models.Signer{Name: "A"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.Sign(s.ctx(), "tok", models.Signer{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.Sign(s.ctx(), "tok", models.Signer{Name: "A"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ContractServiceSuite) TestTransitionUnknownContract() {
	_, err := s.service.Send(s.ctx(), id.ContractID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ContractServiceSuite) TestExpireStale() {
	old := s.create("sent")
	fresh := s.create("")
	s.now = s.now.Add(40 * 24 * time.Hour)
	_, err := s.service.Send(s.ctx(), fresh.Contract.ID)
	s.Require().NoError(err)

	n, err := s.service.ExpireStale(s.ctx(), s.service.StaleCutoff(s.now))
	s.Require().NoError(err)
	s.Equal(1, n)

	got, err := s.contracts.FindByID(context.Background(), old.Contract.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, got.Status)
	s.NotNil(got.ExpiredDate)

	got, err = s.contracts.FindByID(context.Background(), fresh.Contract.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSent, got.Status)
}

func (s *ContractServiceSuite) TestHistoryFailureDoesNotAffectPrimaryWrite() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(s.contracts, s.contacts, tx.NewLockRunner(time.Second),
		WithLogger(logger),
		WithHistory(history.NewRecorder(brokenHistoryStore{}, history.WithLogger(logger))),
	)
	s.Require().NoError(err)

	created, err := svc.Create(s.ctx(), &models.CreateContractRequest{ClientID: s.client.ID.String(), ContractType: "perm"})
	s.Require().NoError(err)
	sent, err := svc.Send(s.ctx(), created.Contract.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSent, sent.Status)

	stored, err := s.contracts.FindByID(context.Background(), created.Contract.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSent, stored.Status)
}
