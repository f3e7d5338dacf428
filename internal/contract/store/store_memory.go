// Package store persists contracts. Methods return ErrNotFound for missing
// contracts and ErrInvalidState when a guarded transition is refused.
package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"agencyops/internal/contract/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/sentinel"
)

// InMemoryStore keeps contracts in memory for tests and dev mode.
type InMemoryStore struct {
	mu        sync.RWMutex
	contracts map[id.ContractID]*models.Contract
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{contracts: make(map[id.ContractID]*models.Contract)}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contracts[c.ID]; exists {
		return fmt.Errorf("contract %s exists: %w", c.ID, sentinel.ErrConflict)
	}
	s.contracts[c.ID] = clone(c)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, contractID id.ContractID) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[contractID]
	if !ok {
		return nil, fmt.Errorf("contract not found: %w", sentinel.ErrNotFound)
	}
	return clone(c), nil
}

func (s *InMemoryStore) Transition(_ context.Context, contractID id.ContractID, to models.Status, from []models.Status, at time.Time, signer *models.Signer) (*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[contractID]
	if !ok {
		return nil, fmt.Errorf("contract not found: %w", sentinel.ErrNotFound)
	}
	if !models.CanTransition(c.Status, to) || !slices.Contains(from, c.Status) {
		return nil, fmt.Errorf("contract is %s, cannot move to %s: %w", c.Status, to, sentinel.ErrInvalidState)
	}
	c.Apply(to, at, signer)
	return clone(c), nil
}

func (s *InMemoryStore) FindSentBefore(_ context.Context, cutoff time.Time, limit int) ([]*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Contract
	for _, c := range s.contracts {
		if c.Status == models.StatusSent && c.SentDate != nil && c.SentDate.Before(cutoff) {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentDate.Before(*out[j].SentDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(c *models.Contract) *models.Contract {
	cp := *c
	cp.Terms = slices.Clone(c.Terms)
	return &cp
}
