package resource

import (
	"context"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu      sync.RWMutex
	items   map[string]*Resource
	history []History
}

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]*Resource)}
}

// Put inserts or replaces a resource.
func (s *InMemory) Put(r Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r
	s.items[r.ID] = &cp
}

func (s *InMemory) Find(ctx context.Context, id string) (Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	if !ok {
		return Resource{}, ErrNotFound
	}
	return *r, nil
}

func (s *InMemory) SetQuantity(ctx context.Context, id string, quantity int64, updatedBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	r.Quantity = quantity
	r.LastUpdatedBy = updatedBy
	r.UpdatedAt = at
	return nil
}

func (s *InMemory) AppendHistory(ctx context.Context, h History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, h)
	return nil
}

// HistoryRows returns a copy of the recorded history.
func (s *InMemory) HistoryRows() []History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]History, len(s.history))
	copy(out, s.history)
	return out
}
