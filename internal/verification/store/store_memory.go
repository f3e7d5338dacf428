// Package store persists one-time verification codes.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agencyops/internal/verification/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/sentinel"
)

// InMemoryStore keeps codes in memory for tests and dev mode.
type InMemoryStore struct {
	mu    sync.Mutex
	codes map[id.CodeID]*models.Code
}

// NewInMemory constructs an empty in-memory code store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{codes: make(map[id.CodeID]*models.Code)}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.codes[c.ID] = &cp
	return nil
}

// Claim removes and returns the newest matching code under a single lock.
func (s *InMemoryStore) Claim(_ context.Context, email, code, purpose string) (*models.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *models.Code
	for _, c := range s.codes {
		if c.Email != email || c.Code != code || c.Purpose != purpose {
			continue
		}
		if newest == nil || c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	if newest == nil {
		return nil, fmt.Errorf("verification code not found: %w", sentinel.ErrNotFound)
	}
	delete(s.codes, newest.ID)
	return newest, nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for codeID, c := range s.codes {
		if c.IsExpired(now) {
			delete(s.codes, codeID)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports how many codes are outstanding.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}
