// Package store persists right-to-work checks.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agencyops/internal/rtw/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/sentinel"
)

// InMemoryStore keeps checks in memory for tests and dev mode.
type InMemoryStore struct {
	mu     sync.RWMutex
	checks map[id.RtwCheckID]*models.Check
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{checks: make(map[id.RtwCheckID]*models.Check)}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Check) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.checks[c.ID]; exists {
		return fmt.Errorf("rtw check %s exists: %w", c.ID, sentinel.ErrConflict)
	}
	cp := *c
	s.checks[c.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, checkID id.RtwCheckID) (*models.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checks[checkID]
	if !ok {
		return nil, fmt.Errorf("rtw check not found: %w", sentinel.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) RecordOutcome(_ context.Context, checkID id.RtwCheckID, to models.Status, statutoryExcuse bool, notes string, at time.Time) (*models.Check, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checks[checkID]
	if !ok {
		return nil, fmt.Errorf("rtw check not found: %w", sentinel.ErrNotFound)
	}
	if c.Status.IsFinal() {
		return nil, fmt.Errorf("rtw check already %s: %w", c.Status, sentinel.ErrInvalidState)
	}
	c.Status = to
	c.StatutoryExcuse = statutoryExcuse
	c.OutcomeNotes = notes
	c.UpdatedAt = at
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) CountByContact(_ context.Context, contactID id.ContactID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.checks {
		if c.ContactID == contactID {
			n++
		}
	}
	return n, nil
}
