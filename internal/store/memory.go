package store

import (
	"context"
	"sync"

	"swift-gateway/pkg/models"
)

// MemoryStore keeps messages in process memory. It backs tests and local
// development; semantics match the PostgreSQL store, including idempotent
// saves.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]*models.MT103Message
	order    []string

	SaveFunc func(ctx context.Context, msg *models.MT103Message) (string, error)
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string]*models.MT103Message)}
}

// SaveMessage stores msg under its id. Saving an already-present id is a
// success and leaves the stored record untouched.
func (s *MemoryStore) SaveMessage(ctx context.Context, msg *models.MT103Message) (string, error) {
	if s.SaveFunc != nil {
		return s.SaveFunc(ctx, msg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.ID]; exists {
		return msg.ID, nil
	}
	stored := *msg
	stored.Status = models.StatusPersisted
	s.messages[msg.ID] = &stored
	s.order = append(s.order, msg.ID)
	return msg.ID, nil
}

// GetByID returns the stored message or ErrNotFound.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.MT103Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *msg
	return &clone, nil
}

// GetByFilter returns stored messages matching filter in insertion order.
func (s *MemoryStore) GetByFilter(ctx context.Context, filter Filter) ([]*models.MT103Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.MT103Message
	for _, id := range s.order {
		msg := s.messages[id]
		if filter.Status != "" && msg.Status != filter.Status {
			continue
		}
		if filter.Currency != "" && msg.Currency != filter.Currency {
			continue
		}
		if filter.Reference != "" && msg.TransactionReference != filter.Reference {
			continue
		}
		clone := *msg
		out = append(out, &clone)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// UpdateStatus transitions the stored message's status.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	msg.Status = status
	return nil
}

// Count reports how many messages are stored.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
