// Package store persists contacts. Every store method follows the same error
// contract: ErrNotFound when the contact does not exist, wrapped errors for
// infrastructure failures.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agencyops/internal/contact/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/sentinel"
)

// InMemoryStore keeps contacts in memory for tests and dev mode.
type InMemoryStore struct {
	mu       sync.RWMutex
	contacts map[id.ContactID]*models.Contact
}

// NewInMemory constructs an empty in-memory contact store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{contacts: make(map[id.ContactID]*models.Contact)}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contacts[c.ID]; exists {
		return fmt.Errorf("contact %s exists: %w", c.ID, sentinel.ErrConflict)
	}
	cp := *c
	s.contacts[c.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, contactID id.ContactID) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[contactID]
	if !ok {
		return nil, fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) FindLatestCandidateByEmail(_ context.Context, email string) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Contact
	for _, c := range s.contacts {
		if c.Kind != models.KindCandidate || c.Email != email {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemoryStore) FindByContractToken(_ context.Context, token string) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contacts {
		if token != "" && c.ContractToken == token {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) AttachContract(_ context.Context, contactID id.ContactID, a models.ContractAttachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[contactID]
	if !ok {
		return fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
	}
	c.ContractID = a.ContractID
	c.ContractStatus = a.Status
	c.ContractToken = a.Token
	c.UpdatedAt = a.At
	return nil
}

func (s *InMemoryStore) SetContractStatus(_ context.Context, contactID id.ContactID, contractID id.ContractID, status string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contacts[contactID]; ok && c.ContractID == contractID {
		c.ContractStatus = status
		c.UpdatedAt = at
	}
	return nil
}

func (s *InMemoryStore) UpdateRtw(_ context.Context, contactID id.ContactID, u models.RtwUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[contactID]
	if !ok {
		return fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
	}
	checkedAt := u.CheckedAt
	c.RtwStatus = u.Status
	c.RtwCheckID = u.CheckID
	c.NationalityCategory = u.NationalityCategory
	c.RtwLastCheckedAt = &checkedAt
	c.UpdatedAt = u.CheckedAt
	return nil
}

func (s *InMemoryStore) SetRtwStatus(_ context.Context, contactID id.ContactID, checkID id.RtwCheckID, status string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contacts[contactID]; ok && c.RtwCheckID == checkID {
		c.RtwStatus = status
		c.RtwLastCheckedAt = &at
		c.UpdatedAt = at
	}
	return nil
}
