package cart

import (
	"context"
	"sync"
)

// Store is the durable storage for a cart's line items, keyed by owner
// (user or session id). Load returns an empty slice for an unknown owner.
type Store interface {
	Load(ctx context.Context, owner string) ([]LineItem, error)
	Save(ctx context.Context, owner string, items []LineItem) error
	Delete(ctx context.Context, owner string) error
}

// MemoryStore keeps carts in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string][]LineItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]LineItem)}
}

func (s *MemoryStore) Load(ctx context.Context, owner string) ([]LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LineItem(nil), s.carts[owner]...), nil
}

func (s *MemoryStore) Save(ctx context.Context, owner string, items []LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[owner] = append([]LineItem(nil), items...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, owner)
	return nil
}
