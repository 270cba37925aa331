package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"securetransfer/internal/transfer"
	"securetransfer/pkg/platform/sentinel"
)

// InMemoryStore keeps transfers in a map. Records are copied in and out so
// callers cannot mutate stored state without calling Save, and a terminal
// record is never overwritten.
type InMemoryStore struct {
	mu        sync.RWMutex
	transfers map[uuid.UUID]transfer.Transfer
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{transfers: make(map[uuid.UUID]transfer.Transfer)}
}

func (s *InMemoryStore) Save(_ context.Context, t *transfer.Transfer) error {
	if t == nil {
		return fmt.Errorf("transfer is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.transfers[t.ID]; ok && existing.Status.IsTerminal() {
		return fmt.Errorf("save transfer %s: %w", t.ID, sentinel.ErrInvalidState)
	}
	s.transfers[t.ID] = clone(t)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, fmt.Errorf("transfer %s not found: %w", id, sentinel.ErrNotFound)
	}
	out := clone(&t)
	return &out, nil
}

// ListByParticipant returns transfers where identity is sender or receiver.
func (s *InMemoryStore) ListByParticipant(_ context.Context, identity string) ([]*transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*transfer.Transfer
	for _, t := range s.transfers {
		if t.IsParticipant(identity) {
			c := clone(&t)
			out = append(out, &c)
		}
	}
	return out, nil
}

func clone(t *transfer.Transfer) transfer.Transfer {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}

var _ transfer.TransferStore = (*InMemoryStore)(nil)
