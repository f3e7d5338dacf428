package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	contactModels "agencyops/internal/contact/models"
	"agencyops/internal/contract/models"
	historyModels "agencyops/internal/history/models"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/platform/sentinel"
	"agencyops/pkg/platform/tx"
	"agencyops/pkg/requestcontext"
)

const (
	tokenBytes       = 32
	staleBatchSize   = 500
	maxTermsBytes    = 64 << 10
	defaultExpiryAge = 30 * 24 * time.Hour
)

var transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "agencyops_contract_transitions_total",
	Help: "Contract status transitions applied, by target status",
}, []string{"status"})

type ContractStore interface {
	Create(ctx context.Context, c *models.Contract) error
	FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error)
	Transition(ctx context.Context, contractID id.ContractID, to models.Status, from []models.Status, at time.Time, signer *models.Signer) (*models.Contract, error)
	FindSentBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Contract, error)
}

type ContactStore interface {
	FindByID(ctx context.Context, contactID id.ContactID) (*contactModels.Contact, error)
	FindByContractToken(ctx context.Context, token string) (*contactModels.Contact, error)
	AttachContract(ctx context.Context, contactID id.ContactID, a contactModels.ContractAttachment) error
	SetContractStatus(ctx context.Context, contactID id.ContactID, contractID id.ContractID, status string, at time.Time) error
}

// History receives best-effort timeline events.
type History interface {
	Record(ctx context.Context, clientID id.ContactID, eventType, action, description string, metadata map[string]any)
}

// Service drives the contract lifecycle.
type Service struct {
	contracts   ContractStore
	contacts    ContactStore
	tx          tx.Runner
	history     History
	logger      *slog.Logger
	expireAfter time.Duration
	newToken    func() (string, error)
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

// WithExpireAfter sets how long a sent contract may wait for a signature.
func WithExpireAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.expireAfter = d
		}
	}
}

func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		s.newToken = gen
	}
}

func New(contracts ContractStore, contacts ContactStore, runner tx.Runner, opts ...Option) (*Service, error) {
	if contracts == nil {
		return nil, errors.New("contract store is required")
	}
	if contacts == nil {
		return nil, errors.New("contact store is required")
	}
	if runner == nil {
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{
		contracts:   contracts,
		contacts:    contacts,
		tx:          runner,
		logger:      slog.Default(),
		expireAfter: defaultExpiryAge,
		newToken:    randomToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create inserts a contract and points the client contact at it, together
// with a fresh access token, in one transaction.
func (s *Service) Create(ctx context.Context, req *models.CreateContractRequest) (*models.Created, error) {
	clientID, err := id.ParseContactID(req.ClientID)
	if err != nil {
		return nil, err
	}
	contractType := models.Type(strings.TrimSpace(req.ContractType))
	if !contractType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "contractType must be temp or perm")
	}
	status := models.StatusDraft
	if req.Status != "" {
		status = models.Status(req.Status)
	}
	if status != models.StatusDraft && status != models.StatusSent {
		return nil, dErrors.New(dErrors.CodeValidation, "initial status must be draft or sent")
	}
	terms, err := normalizeTerms(req.Terms)
	if err != nil {
		return nil, err
	}
	token, err := s.newToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate contract token")
	}

	now := requestcontext.Now(ctx)
	contract := &models.Contract{
		ID:        id.ContractID(uuid.New()),
		ClientID:  clientID,
		Type:      contractType,
		Status:    status,
		Terms:     terms,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == models.StatusSent {
		contract.SentDate = &now
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		client, err := s.contacts.FindByID(ctx, clientID)
		if err != nil {
			return err
		}
		if client.Kind == contactModels.KindCandidate {
			return dErrors.New(dErrors.CodeValidation, "contracts are issued to clients or prospects")
		}
		if err := s.contracts.Create(ctx, contract); err != nil {
			return err
		}
		return s.contacts.AttachContract(ctx, clientID, contactModels.ContractAttachment{
			ContractID: contract.ID,
			Status:     string(contract.Status),
			Token:      token,
			At:         now,
		})
	})
	if err != nil {
		return nil, translate(err, "client contact not found", "failed to create contract")
	}

	s.record(ctx, contract, historyModels.ActionCreated, map[string]any{
		"contractType": string(contract.Type),
		"status":       string(contract.Status),
	})
	return &models.Created{Contract: contract, Token: token}, nil
}

// FetchByToken resolves the contract referenced by the contact holding token.
// Possession of the token is the only access check.
func (s *Service) FetchByToken(ctx context.Context, token string) (*models.View, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "contract token is required")
	}
	contact, err := s.contacts.FindByContractToken(ctx, token)
	if err != nil {
		return nil, translate(err, "contract not found", "failed to resolve contract token")
	}
	if contact.ContractID.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotFound, "contract not found")
	}
	contract, err := s.contracts.FindByID(ctx, contact.ContractID)
	if err != nil {
		return nil, translate(err, "contract not found", "failed to load contract")
	}
	return &models.View{
		ID:            contract.ID,
		ProspectName:  contact.FullName(),
		ProspectEmail: contact.Email,
		ContractType:  contract.Type,
		Status:        contract.Status,
		SentDate:      contract.SentDate,
		ContractData:  contract.Terms,
	}, nil
}

func (s *Service) Send(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	return s.transition(ctx, contractID, models.StatusSent, nil)
}

func (s *Service) Expire(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	return s.transition(ctx, contractID, models.StatusExpired, nil)
}

// Sign records the signature of the contract referenced by token.
func (s *Service) Sign(ctx context.Context, token string, signer models.Signer) (*models.Contract, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "contract token is required")
	}
	signer.Name = strings.TrimSpace(signer.Name)
	if signer.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "signerName is required")
	}
	contact, err := s.contacts.FindByContractToken(ctx, token)
	if err != nil {
		return nil, translate(err, "contract not found", "failed to resolve contract token")
	}
	return s.transition(ctx, contact.ContractID, models.StatusSigned, &signer)
}

// ExpireStale expires sent contracts whose sent date is before cutoff. A
// contract signed concurrently is skipped.
func (s *Service) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.contracts.FindSentBefore(ctx, cutoff, staleBatchSize)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stale contracts")
	}
	expired := 0
	for _, c := range stale {
		if _, err := s.transition(ctx, c.ID, models.StatusExpired, nil); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvalidState) || dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// StaleCutoff is the sent-date before which a contract counts as stale at now.
func (s *Service) StaleCutoff(now time.Time) time.Time {
	return now.Add(-s.expireAfter)
}

func (s *Service) transition(ctx context.Context, contractID id.ContractID, to models.Status, signer *models.Signer) (*models.Contract, error) {
	now := requestcontext.Now(ctx)
	var updated *models.Contract
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.contracts.Transition(ctx, contractID, to, models.AllowedFrom(to), now, signer)
		if err != nil {
			return err
		}
		if err := s.contacts.SetContractStatus(ctx, c.ClientID, c.ID, string(to), now); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, fmt.Sprintf("contract cannot move to %s from its current status", to))
		}
		return nil, translate(err, "contract not found", "failed to update contract")
	}

	transitionsTotal.WithLabelValues(string(to)).Inc()
	s.record(ctx, updated, string(to), nil)
	return updated, nil
}

func (s *Service) record(ctx context.Context, c *models.Contract, action string, metadata map[string]any) {
	if s.history == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["contractId"] = c.ID.String()
	s.history.Record(ctx, c.ClientID, historyModels.TypeContract, action,
		fmt.Sprintf("%s contract %s", c.Type, action), metadata)
}

// translate maps store sentinels onto domain errors, passing domain errors
// raised inside a transaction through unchanged.
func translate(err error, notFoundMsg, internalMsg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, "contract token collision, retry")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}

func normalizeTerms(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}"), nil
	}
	if len(trimmed) > maxTermsBytes {
		return nil, dErrors.New(dErrors.CodeValidation, "terms are too large")
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, dErrors.New(dErrors.CodeValidation, "terms must be a JSON object")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "terms must be a JSON object")
	}
	return buf.Bytes(), nil
}

func randomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
