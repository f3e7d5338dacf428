// Package store persists timesheets and their entries.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	contactModels "agencyops/internal/contact/models"
	"agencyops/internal/timesheet/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/sentinel"
)

// ClientDirectory resolves client display names for views.
type ClientDirectory interface {
	FindByID(ctx context.Context, contactID id.ContactID) (*contactModels.Contact, error)
}

// InMemoryStore keeps timesheets in memory for tests and dev mode.
type InMemoryStore struct {
	mu         sync.RWMutex
	timesheets map[id.TimesheetID]*models.Timesheet
	entries    map[id.TimesheetID][]models.Entry
	clients    ClientDirectory
}

// NewInMemory builds a store. clients may be nil, in which case views carry
// an empty client name.
func NewInMemory(clients ClientDirectory) *InMemoryStore {
	return &InMemoryStore{
		timesheets: make(map[id.TimesheetID]*models.Timesheet),
		entries:    make(map[id.TimesheetID][]models.Entry),
		clients:    clients,
	}
}

func (s *InMemoryStore) Create(_ context.Context, t *models.Timesheet, entries []models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.timesheets[t.ID]; exists {
		return fmt.Errorf("timesheet %s exists: %w", t.ID, sentinel.ErrConflict)
	}
	cp := *t
	s.timesheets[t.ID] = &cp
	stored := make([]models.Entry, len(entries))
	for i, e := range entries {
		e.TimesheetID = t.ID
		stored[i] = e
	}
	s.entries[t.ID] = stored
	return nil
}

func (s *InMemoryStore) FindView(ctx context.Context, timesheetID id.TimesheetID) (*models.View, error) {
	s.mu.RLock()
	t, ok := s.timesheets[timesheetID]
	if !ok {
		s.mu.RUnlock()
		return nil, fmt.Errorf("timesheet not found: %w", sentinel.ErrNotFound)
	}
	view := models.View{Timesheet: *t, Workers: models.DistinctWorkers(s.entries[timesheetID])}
	s.mu.RUnlock()

	if s.clients != nil {
		if c, err := s.clients.FindByID(ctx, view.ClientID); err == nil {
			view.ClientName = c.FullName()
		}
	}
	return &view, nil
}

func (s *InMemoryStore) ListEntries(_ context.Context, timesheetID id.TimesheetID) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.entries[timesheetID])
	slices.SortStableFunc(out, func(a, b models.Entry) int {
		if c := a.WorkDate.Compare(b.WorkDate); c != 0 {
			return c
		}
		if a.WorkerName < b.WorkerName {
			return -1
		}
		if a.WorkerName > b.WorkerName {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *InMemoryStore) Approve(_ context.Context, timesheetID id.TimesheetID, approver string, at time.Time) (*models.Timesheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timesheets[timesheetID]
	if !ok {
		return nil, fmt.Errorf("timesheet not found: %w", sentinel.ErrNotFound)
	}
	if t.Status != models.StatusSubmitted {
		return nil, fmt.Errorf("timesheet is %s: %w", t.Status, sentinel.ErrInvalidState)
	}
	t.Status = models.StatusApproved
	t.ApprovedBy = approver
	t.ApprovedAt = &at
	cp := *t
	return &cp, nil
}
