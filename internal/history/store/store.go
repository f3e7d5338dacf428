// Package store appends client history events.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"agencyops/internal/history/models"
	id "agencyops/pkg/domain"
)

// PostgresStore appends events to client_history_events.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append never joins an ambient transaction: a failed history insert must not
// poison the primary write.
func (s *PostgresStore) Append(ctx context.Context, e *models.Event) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal history metadata: %w", err)
	}
	if e.Metadata == nil {
		metadata = []byte("{}")
	}
	query := `
		INSERT INTO client_history_events (id, client_id, event_type, event_action, event_date, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.ExecContext(ctx, query, e.ID, e.ClientID, e.Type, e.Action, e.Date, e.Description, metadata); err != nil {
		return fmt.Errorf("append history event: %w", err)
	}
	return nil
}

// InMemoryStore keeps events in insertion order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []models.Event
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return nil
}

// ListByClient returns the client's events in insertion order.
func (s *InMemoryStore) ListByClient(clientID id.ContactID) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Event
	for _, e := range s.events {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out
}
